package subsystem

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// R820T/R828D tuner range, in Hz
const (
	rtlsdrFrequencyMin = 24_000_000
	rtlsdrFrequencyMax = 1_766_000_000
)

var rtlsdrSampleRates = []int64{250000, 1024000, 2048000, 2400000}

// RTLSDR manages the RTL-SDR USB dongle configuration.
type RTLSDR struct {
	base
}

// NewRTLSDR creates the RTL-SDR handle.
func NewRTLSDR(log logging.Logger) *RTLSDR {
	return &RTLSDR{base: newBase("rtlsdr", log)}
}

func (r *RTLSDR) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := r.activate(cfg, r.check); err != nil {
		return err
	}
	r.log.Info("rtlsdr configured", "device_index", r.cfg["device_index"], "sample_rate", r.cfg["sample_rate"])
	return nil
}

func (r *RTLSDR) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if r.state == interfaces.StateActive {
		r.deactivate()
	}
	return r.Initialize(cfg)
}

func (r *RTLSDR) Cleanup() error {
	r.deactivate()
	return nil
}

func (r *RTLSDR) check(cfg interfaces.SubsystemConfig) error {
	index, err := cast.ToInt64E(cfg["device_index"])
	if err != nil {
		return fmt.Errorf("rtlsdr: device_index %v is not a number", cfg["device_index"])
	}
	if index < 0 || index > 10 {
		return fmt.Errorf("rtlsdr: device_index %d is outside 0-10", index)
	}

	if raw, ok := cfg["frequency"]; ok {
		frequency, err := cast.ToInt64E(raw)
		if err != nil {
			return fmt.Errorf("rtlsdr: frequency %v is not a number", raw)
		}
		if frequency < rtlsdrFrequencyMin || frequency > rtlsdrFrequencyMax {
			return fmt.Errorf("rtlsdr: frequency %d Hz is outside %d-%d", frequency, rtlsdrFrequencyMin, rtlsdrFrequencyMax)
		}
	}
	if raw, ok := cfg["sample_rate"]; ok {
		rate, err := cast.ToInt64E(raw)
		if err != nil {
			return fmt.Errorf("rtlsdr: sample_rate %v is not a number", raw)
		}
		if !slices.Contains(rtlsdrSampleRates, rate) {
			return fmt.Errorf("rtlsdr: sample_rate %d is not supported (choose one of %v)", rate, rtlsdrSampleRates)
		}
	}
	return nil
}

// Describe renders the one-line summary for the status bar.
func (r *RTLSDR) Describe() string {
	if r.state != interfaces.StateActive {
		return "RTL-SDR: " + strings.ToLower(r.state.String())
	}
	summary := fmt.Sprintf("RTL-SDR: device %s", cast.ToString(r.cfg["device_index"]))
	if frequency, ok := r.cfg["frequency"]; ok {
		summary += fmt.Sprintf(" @ %.3f MHz", float64(cast.ToInt64(frequency))/1e6)
	}
	return summary
}
