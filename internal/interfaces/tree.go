package interfaces

import (
	"reflect"
	"sort"

	"github.com/mitchellh/copystructure"
)

// SubsystemConfig is one subsystem's option set, mapping option name to a
// scalar value. Recognized keys are the ones an editing surface exposes a
// control for; every other key is opaque and must be carried through a
// load → edit → save round trip unchanged.
type SubsystemConfig map[string]any

// Tree is the full device configuration: subsystem name to option set.
type Tree map[string]SubsystemConfig

// Subsystems returns the fixed set of built-in subsystem names in
// registration and report order.
func Subsystems() []string {
	return []string{"gps", "lora", "rtlsdr", "rtc", "usb", "logging"}
}

// KnownSubsystem reports whether name is one of the built-in subsystems.
func KnownSubsystem(name string) bool {
	for _, s := range Subsystems() {
		if s == name {
			return true
		}
	}
	return false
}

// Clone returns a full recursive deep copy of the tree. Mutations to the
// clone's nested maps are never visible through the original.
func (t Tree) Clone() (Tree, error) {
	if t == nil {
		return Tree{}, nil
	}
	copied, err := copystructure.Copy(t)
	if err != nil {
		return nil, err
	}
	return copied.(Tree), nil
}

// Clone returns a deep copy of one subsystem's option set.
func (c SubsystemConfig) Clone() (SubsystemConfig, error) {
	if c == nil {
		return SubsystemConfig{}, nil
	}
	copied, err := copystructure.Copy(c)
	if err != nil {
		return nil, err
	}
	return copied.(SubsystemConfig), nil
}

// Equal reports structural equality between two trees.
func (t Tree) Equal(other Tree) bool {
	if len(t) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(t, other)
}

// Names returns the tree's subsystem names with the built-in ones first in
// their fixed order, followed by any extra subsystems sorted by name.
func (t Tree) Names() []string {
	names := make([]string, 0, len(t))
	for _, s := range Subsystems() {
		if _, ok := t[s]; ok {
			names = append(names, s)
		}
	}
	var extras []string
	for name := range t {
		if !KnownSubsystem(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(names, extras...)
}
