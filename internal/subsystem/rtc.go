package subsystem

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

var rtcTypes = []string{"ds3231", "ds1307", "pcf8523", "rv3028"}

// RTC manages the I2C real-time clock configuration.
type RTC struct {
	base
	now func() time.Time
}

// NewRTC creates the RTC handle.
func NewRTC(log logging.Logger) *RTC {
	return &RTC{base: newBase("rtc", log), now: time.Now}
}

func (r *RTC) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := r.activate(cfg, r.check); err != nil {
		return err
	}
	r.log.Info("rtc configured", "type", r.cfg["type"], "i2c_device", r.cfg["i2c_device"])
	return nil
}

func (r *RTC) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if r.state == interfaces.StateActive {
		r.deactivate()
	}
	return r.Initialize(cfg)
}

func (r *RTC) Cleanup() error {
	r.deactivate()
	return nil
}

func (r *RTC) check(cfg interfaces.SubsystemConfig) error {
	chip := cast.ToString(cfg["type"])
	if !slices.Contains(rtcTypes, chip) {
		return fmt.Errorf("rtc: type %q is not supported (choose one of %v)", chip, rtcTypes)
	}
	if cast.ToString(cfg["i2c_device"]) == "" {
		return fmt.Errorf("rtc: i2c_device must not be empty")
	}
	return nil
}

// Describe renders the one-line summary for the status bar, clock included.
func (r *RTC) Describe() string {
	if r.state != interfaces.StateActive {
		return "RTC: " + strings.ToLower(r.state.String())
	}
	return fmt.Sprintf("RTC: %s %s", cast.ToString(r.cfg["type"]), r.now().Format("15:04:05"))
}
