package devconf

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// int64 bounds as exact float64 values for the integral-float check
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

// canonicalTree rebuilds a tree with every value in canonical scalar form.
// Defaults, parsed files and applied edits all pass through here so that
// the same configuration compares equal no matter which codec produced it.
func canonicalTree(tree interfaces.Tree) interfaces.Tree {
	out := make(interfaces.Tree, len(tree))
	for name, section := range tree {
		out[name] = canonicalSection(section)
	}
	return out
}

func canonicalSection(section interfaces.SubsystemConfig) interfaces.SubsystemConfig {
	out := make(interfaces.SubsystemConfig, len(section))
	for key, value := range section {
		out[key] = canonicalValue(value)
	}
	return out
}

// canonicalValue maps every number to int64 when integral and float64
// otherwise. JSON decodes numbers as json.Number, YAML as int or float64,
// Go literals arrive as whatever the caller wrote; all collapse to one form.
func canonicalValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool, string:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return canonicalUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return canonicalUint(v)
	case float32:
		return canonicalFloat(float64(v))
	case float64:
		return canonicalFloat(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = canonicalValue(elem)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[fmt.Sprint(key)] = canonicalValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = canonicalValue(elem)
		}
		return out
	default:
		return v
	}
}

func canonicalFloat(f float64) any {
	if f == math.Trunc(f) && f >= minInt64Float && f < maxInt64Float {
		return int64(f)
	}
	return f
}

func canonicalUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return float64(u)
}

// ParseScalar interprets a command line value literal. Bare true/false become
// booleans, integer literals int64, other numbers float64, everything else
// stays a string.
func ParseScalar(literal string) any {
	switch literal {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return f
	}
	return literal
}
