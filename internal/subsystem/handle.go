// Package subsystem holds the runtime handles for the six managed device
// subsystems. Handles validate their section of the configuration tree,
// keep their own copy of it, and track lifecycle state; actual peripheral
// I/O is out of scope.
package subsystem

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// Labels maps subsystem names to the display names the status report uses.
var Labels = map[string]string{
	"gps":     "GPS",
	"lora":    "LoRa",
	"rtlsdr":  "RTL-SDR",
	"rtc":     "RTC",
	"usb":     "USB",
	"logging": "Logging",
}

// Label returns the display name for a subsystem, falling back to the raw
// name for unrecognized sections.
func Label(name string) string {
	if label, ok := Labels[name]; ok {
		return label
	}
	return name
}

// base carries what every handle shares: its name, lifecycle state and the
// configuration applied by the last successful initialization.
type base struct {
	name  string
	state interfaces.State
	cfg   interfaces.SubsystemConfig
	log   logging.Logger
}

func newBase(name string, log logging.Logger) base {
	if log == nil {
		log = logging.Default()
	}
	return base{name: name, log: log}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) State() interfaces.State {
	return b.state
}

// ExportConfig returns the handle's copy of its configuration, unrecognized
// keys included. Nil while the handle is not active.
func (b *base) ExportConfig() interfaces.SubsystemConfig {
	if b.cfg == nil {
		return nil
	}
	clone, err := b.cfg.Clone()
	if err != nil {
		return nil
	}
	return clone
}

// activate validates cfg through check and flips the handle to Active with
// its own deep copy of the section. A check failure leaves the handle
// Failed until the next apply retries it.
func (b *base) activate(cfg interfaces.SubsystemConfig, check func(interfaces.SubsystemConfig) error) error {
	if err := check(cfg); err != nil {
		b.state = interfaces.StateFailed
		b.cfg = nil
		return err
	}
	clone, err := cfg.Clone()
	if err != nil {
		b.state = interfaces.StateFailed
		b.cfg = nil
		return fmt.Errorf("%s: copying configuration: %w", b.name, err)
	}
	b.cfg = clone
	b.state = interfaces.StateActive
	return nil
}

// deactivate returns the handle to Uninitialized and drops its copy.
func (b *base) deactivate() {
	b.state = interfaces.StateUninitialized
	b.cfg = nil
}

// NewHandles builds the six built-in handles in registration and report
// order.
func NewHandles(fs afero.Fs, log logging.Logger) []interfaces.Handle {
	return []interfaces.Handle{
		NewGPS(fs, log),
		NewLoRa(log),
		NewRTLSDR(log),
		NewRTC(log),
		NewUSB(log),
		NewLogging(nil, log),
	}
}
