package devconf

import "github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"

// Store owns the documented defaults for every managed subsystem and fills
// gaps in externally supplied trees. It never rejects anything: unrecognized
// subsystems and keys pass through untouched.
type Store struct{}

// NewStore creates the default configuration store.
func NewStore() *Store {
	return &Store{}
}

// Defaults returns the full documented default tree. Every call builds a
// fresh tree, so callers may mutate the result freely.
func (s *Store) Defaults() interfaces.Tree {
	return canonicalTree(interfaces.Tree{
		"gps": {
			"enabled":   true,
			"device":    "/dev/ttyUSB0",
			"baud_rate": 9600,
		},
		"lora": {
			"enabled":          false,
			"spi_device":       "/dev/spidev0.0",
			"frequency":        915000000,
			"spreading_factor": 7,
		},
		"rtlsdr": {
			"enabled":      false,
			"device_index": 0,
			"sample_rate":  2048000,
			"frequency":    100000000,
		},
		"rtc": {
			"enabled":    true,
			"type":       "ds3231",
			"i2c_device": "/dev/i2c-1",
		},
		"usb": {
			"enabled": true,
		},
		"logging": {
			"level":  "info",
			"format": "text",
		},
	})
}

// Validate fills missing subsystems and missing recognized keys from the
// defaults. A present value always wins, including zero values like false
// or 0, and nothing is ever removed.
func (s *Store) Validate(tree interfaces.Tree) interfaces.Tree {
	out := canonicalTree(tree)
	for name, defaults := range s.Defaults() {
		section, ok := out[name]
		if !ok {
			out[name] = defaults
			continue
		}
		fillMissing(section, defaults)
	}
	return out
}

// fillMissing copies src entries for keys dst does not have. Used both for
// default filling and for the commit superset merge.
func fillMissing(dst, src interfaces.SubsystemConfig) {
	for key, value := range src {
		if _, ok := dst[key]; !ok {
			dst[key] = value
		}
	}
}
