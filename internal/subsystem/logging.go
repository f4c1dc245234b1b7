package subsystem

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Logging manages the process logger. Unlike the hardware handles this one
// has a real side effect: a successful (re)initialization swaps the default
// logger's level and format.
type Logging struct {
	base
	apply func(level, format string)
}

// NewLogging creates the logging handle. A nil apply swaps the real process
// logger; tests inject their own func.
func NewLogging(apply func(level, format string), log logging.Logger) *Logging {
	if apply == nil {
		apply = func(level, format string) {
			logging.Reconfigure(logging.Config{Level: level, Format: format})
		}
	}
	return &Logging{base: newBase("logging", log), apply: apply}
}

func (l *Logging) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := l.activate(cfg, l.check); err != nil {
		return err
	}
	level := cast.ToString(l.cfg["level"])
	format := cast.ToString(l.cfg["format"])
	l.apply(level, format)
	l.log.Info("logger reconfigured", "level", level, "format", format)
	return nil
}

func (l *Logging) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if l.state == interfaces.StateActive {
		l.deactivate()
	}
	return l.Initialize(cfg)
}

func (l *Logging) Cleanup() error {
	l.deactivate()
	return nil
}

func (l *Logging) check(cfg interfaces.SubsystemConfig) error {
	level := cast.ToString(cfg["level"])
	if !slices.Contains(logLevels, level) {
		return fmt.Errorf("logging: level %q is not supported (choose one of %v)", level, logLevels)
	}
	format := cast.ToString(cfg["format"])
	if !slices.Contains(logFormats, format) {
		return fmt.Errorf("logging: format %q is not supported (choose one of %v)", format, logFormats)
	}
	return nil
}

// Describe renders the one-line summary for the status bar.
func (l *Logging) Describe() string {
	if l.state != interfaces.StateActive {
		return "Log: " + strings.ToLower(l.state.String())
	}
	return fmt.Sprintf("Log: %s/%s", cast.ToString(l.cfg["level"]), cast.ToString(l.cfg["format"]))
}
