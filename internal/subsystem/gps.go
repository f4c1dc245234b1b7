package subsystem

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

var gpsBaudRates = []int64{4800, 9600, 19200, 38400, 57600, 115200}

// serial device patterns a GPS receiver shows up under
var gpsDevicePatterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*"}

// GPS manages the serial GPS receiver configuration.
type GPS struct {
	base
	fs afero.Fs
}

// NewGPS creates the GPS handle. A nil fs means the real OS filesystem;
// tests pass afero.NewMemMapFs().
func NewGPS(fs afero.Fs, log logging.Logger) *GPS {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &GPS{base: newBase("gps", log), fs: fs}
}

func (g *GPS) Initialize(cfg interfaces.SubsystemConfig) error {
	if err := g.activate(cfg, g.check); err != nil {
		return err
	}
	g.log.Info("gps configured", "device", g.cfg["device"], "baud_rate", g.cfg["baud_rate"])
	return nil
}

func (g *GPS) Reinitialize(cfg interfaces.SubsystemConfig) error {
	if g.state == interfaces.StateActive {
		g.deactivate()
	}
	return g.Initialize(cfg)
}

func (g *GPS) Cleanup() error {
	g.deactivate()
	return nil
}

func (g *GPS) check(cfg interfaces.SubsystemConfig) error {
	device := cast.ToString(cfg["device"])
	if device == "" {
		return fmt.Errorf("gps: device must not be empty")
	}
	baud, err := cast.ToInt64E(cfg["baud_rate"])
	if err != nil {
		return fmt.Errorf("gps: baud_rate %v is not a number", cfg["baud_rate"])
	}
	if !slices.Contains(gpsBaudRates, baud) {
		return fmt.Errorf("gps: baud_rate %d is not supported (choose one of %v)", baud, gpsBaudRates)
	}
	return nil
}

// Rescan lists candidate serial devices a GPS receiver could sit on.
func (g *GPS) Rescan() ([]string, error) {
	var devices []string
	for _, pattern := range gpsDevicePatterns {
		matches, err := afero.Glob(g.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("gps: scanning %s: %w", pattern, err)
		}
		devices = append(devices, matches...)
	}
	sort.Strings(devices)
	return devices, nil
}

// Describe renders the one-line summary for the status bar.
func (g *GPS) Describe() string {
	if g.state != interfaces.StateActive {
		return "GPS: " + strings.ToLower(g.state.String())
	}
	return fmt.Sprintf("GPS: %s @ %s baud", cast.ToString(g.cfg["device"]), cast.ToString(g.cfg["baud_rate"]))
}
