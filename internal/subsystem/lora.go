package subsystem

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// ISM band limits the original radio dialogs enforced, in Hz
const (
	loraFrequencyMin = 400_000_000
	loraFrequencyMax = 1_000_000_000
)

var loraBandwidths = []int64{125000, 250000, 500000}

// LoRa manages the SPI LoRa transceiver configuration.
type LoRa struct {
	base
}

// NewLoRa creates the LoRa handle.
func NewLoRa(log logging.Logger) *LoRa {
	return &LoRa{base: newBase("lora", log)}
}

func (l *LoRa) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := l.activate(cfg, l.check); err != nil {
		return err
	}
	l.log.Info("lora configured", "spi_device", l.cfg["spi_device"], "frequency", l.cfg["frequency"])
	return nil
}

func (l *LoRa) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if l.state == interfaces.StateActive {
		l.deactivate()
	}
	return l.Initialize(cfg)
}

func (l *LoRa) Cleanup() error {
	l.deactivate()
	return nil
}

func (l *LoRa) check(cfg interfaces.SubsystemConfig) error {
	if cast.ToString(cfg["spi_device"]) == "" {
		return fmt.Errorf("lora: spi_device must not be empty")
	}

	frequency, err := cast.ToInt64E(cfg["frequency"])
	if err != nil {
		return fmt.Errorf("lora: frequency %v is not a number", cfg["frequency"])
	}
	if frequency < loraFrequencyMin || frequency > loraFrequencyMax {
		return fmt.Errorf("lora: frequency %d Hz is outside %d-%d", frequency, loraFrequencyMin, loraFrequencyMax)
	}

	if raw, ok := cfg["spreading_factor"]; ok {
		sf, err := cast.ToInt64E(raw)
		if err != nil {
			return fmt.Errorf("lora: spreading_factor %v is not a number", raw)
		}
		if sf < 7 || sf > 12 {
			return fmt.Errorf("lora: spreading_factor %d is outside 7-12", sf)
		}
	}
	if raw, ok := cfg["bandwidth"]; ok {
		bw, err := cast.ToInt64E(raw)
		if err != nil {
			return fmt.Errorf("lora: bandwidth %v is not a number", raw)
		}
		if !slices.Contains(loraBandwidths, bw) {
			return fmt.Errorf("lora: bandwidth %d Hz is not supported (choose one of %v)", bw, loraBandwidths)
		}
	}
	if raw, ok := cfg["tx_power"]; ok {
		power, err := cast.ToInt64E(raw)
		if err != nil {
			return fmt.Errorf("lora: tx_power %v is not a number", raw)
		}
		if power < 2 || power > 20 {
			return fmt.Errorf("lora: tx_power %d dBm is outside 2-20", power)
		}
	}
	return nil
}

// Describe renders the one-line summary for the status bar.
func (l *LoRa) Describe() string {
	if l.state != interfaces.StateActive {
		return "LoRa: " + strings.ToLower(l.state.String())
	}
	summary := fmt.Sprintf("LoRa: %.3f MHz", float64(cast.ToInt64(l.cfg["frequency"]))/1e6)
	if sf, ok := l.cfg["spreading_factor"]; ok {
		summary += fmt.Sprintf(" SF%s", cast.ToString(sf))
	}
	return summary
}
