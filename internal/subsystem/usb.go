package subsystem

import (
	"strings"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// USB manages the USB device monitor. It has no tunable options beyond the
// enabled flag, so every configuration is accepted.
type USB struct {
	base
}

// NewUSB creates the USB handle.
func NewUSB(log logging.Logger) *USB {
	return &USB{base: newBase("usb", log)}
}

func (u *USB) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := u.activate(cfg, u.check); err != nil {
		return err
	}
	u.log.Info("usb monitor configured")
	return nil
}

func (u *USB) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if u.state == interfaces.StateActive {
		u.deactivate()
	}
	return u.Initialize(cfg)
}

func (u *USB) Cleanup() error {
	u.deactivate()
	return nil
}

func (u *USB) check(interfaces.SubsystemConfig) error {
	return nil
}

// Describe renders the one-line summary for the status bar.
func (u *USB) Describe() string {
	if u.state != interfaces.StateActive {
		return "USB: " + strings.ToLower(u.state.String())
	}
	return "USB: ready"
}
