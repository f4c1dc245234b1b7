package devconf

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

func newMemPersistence() (*Persistence, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewPersistence(fs, NewStore()), fs
}

func TestPersistence_RoundTrip(t *testing.T) {
	tree := interfaces.Tree{
		"gps": {
			"enabled":   false,
			"device":    "/dev/ttyACM0",
			"baud_rate": 115200,
		},
		"lora": {
			"enabled":          true,
			"frequency":        868000000,
			"spreading_factor": 9,
			"gain":             2.5,
		},
		"telemetry": {
			"endpoint": "udp://127.0.0.1:9000",
		},
	}

	for _, path := range []string{"/etc/hwctl/config.json", "/etc/hwctl/config.yaml"} {
		t.Run(path, func(t *testing.T) {
			p, _ := newMemPersistence()

			if err := p.Write(path, tree); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := p.Read(path)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}

			want := NewStore().Validate(tree)
			if !got.Equal(want) {
				t.Errorf("round trip mismatch\n got: %#v\nwant: %#v", got, want)
			}

			for _, name := range interfaces.Subsystems() {
				if _, ok := got[name]; !ok {
					t.Errorf("Read() result missing subsystem %q", name)
				}
			}
			if got["telemetry"]["endpoint"] != "udp://127.0.0.1:9000" {
				t.Error("unrecognized telemetry section did not survive the round trip")
			}
			if got["lora"]["gain"] != 2.5 {
				t.Errorf("lora.gain = %#v, want 2.5", got["lora"]["gain"])
			}
			if got["lora"]["frequency"] != int64(868000000) {
				t.Errorf("lora.frequency = %#v (%T), want int64", got["lora"]["frequency"], got["lora"]["frequency"])
			}
		})
	}
}

func TestPersistence_Read_MissingFile(t *testing.T) {
	p, _ := newMemPersistence()

	_, err := p.Read("/etc/hwctl/config.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read(missing) error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "/etc/hwctl/config.json") {
		t.Errorf("error should name the file, got: %v", err)
	}
}

func TestPersistence_Read_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
	}{
		{"truncated json", "/cfg/config.json", `{"gps": {"enabled": true`},
		{"json array root", "/cfg/config.json", `[1, 2, 3]`},
		{"yaml tab indent", "/cfg/config.yaml", "gps:\n\tenabled: true\n"},
		{"yaml scalar root", "/cfg/config.yaml", "just a string\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fs := newMemPersistence()
			if err := afero.WriteFile(fs, tt.path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := p.Read(tt.path)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Read() error = %v, want ErrParse", err)
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error should name the file, got: %v", err)
			}
		})
	}
}

func TestPersistence_Read_SectionNotMapping(t *testing.T) {
	p, fs := newMemPersistence()
	content := `{"schemaVersion": 1, "gps": "not a mapping"}`
	if err := afero.WriteFile(fs, "/cfg/config.json", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.Read("/cfg/config.json")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Read() error = %v, want ErrParse", err)
	}
	if !strings.Contains(err.Error(), "'gps'") {
		t.Errorf("error should name the offending section, got: %v", err)
	}
}

func TestPersistence_Read_SchemaVersion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"current version", `{"schemaVersion": 1, "gps": {"enabled": true}}`, false},
		{"absent version is treated as 1", `{"gps": {"enabled": true}}`, false},
		{"future version", `{"schemaVersion": 2}`, true},
		{"zero version", `{"schemaVersion": 0}`, true},
		{"negative version", `{"schemaVersion": -3}`, true},
		{"non-integer version", `{"schemaVersion": "one"}`, true},
		{"fractional version", `{"schemaVersion": 1.5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fs := newMemPersistence()
			if err := afero.WriteFile(fs, "/cfg/config.json", []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := p.Read("/cfg/config.json")
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("Read() error = %v, want ErrParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v, want nil", err)
			}
		})
	}
}

func TestPersistence_Read_EmptyFile(t *testing.T) {
	for _, path := range []string{"/cfg/config.json", "/cfg/config.yaml"} {
		t.Run(path, func(t *testing.T) {
			p, fs := newMemPersistence()
			if err := afero.WriteFile(fs, path, []byte("\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := p.Read(path)
			if err != nil {
				t.Fatalf("Read(empty) error = %v", err)
			}
			if !got.Equal(NewStore().Defaults()) {
				t.Errorf("Read(empty) = %#v, want full defaults", got)
			}
		})
	}
}

func TestPersistence_Read_MissingSectionFilled(t *testing.T) {
	p, fs := newMemPersistence()
	content := `{
  "schemaVersion": 1,
  "gps": {"enabled": true, "device": "/dev/ttyUSB1", "baud_rate": 4800},
  "lora": {"enabled": false, "spi_device": "/dev/spidev0.0", "frequency": 915000000, "spreading_factor": 7},
  "rtlsdr": {"enabled": false, "device_index": 0, "sample_rate": 2048000, "frequency": 100000000},
  "rtc": {"enabled": true, "type": "ds3231", "i2c_device": "/dev/i2c-1"},
  "logging": {"level": "info", "format": "text"}
}`
	if err := afero.WriteFile(fs, "/cfg/config.json", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := p.Read("/cfg/config.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	usb, ok := got["usb"]
	if !ok {
		t.Fatal("Read() did not fill the missing usb section")
	}
	if usb["enabled"] != true {
		t.Errorf("usb.enabled = %#v, want the default true", usb["enabled"])
	}
	if got["gps"]["baud_rate"] != int64(4800) {
		t.Errorf("gps.baud_rate = %#v, want the file's 4800", got["gps"]["baud_rate"])
	}
}

func TestPersistence_Write_FailureLeavesOldFileIntact(t *testing.T) {
	base := afero.NewMemMapFs()
	writable := NewPersistence(base, NewStore())

	original := NewStore().Defaults()
	if err := writable.Write("/cfg/config.json", original); err != nil {
		t.Fatalf("seed Write() error = %v", err)
	}
	before, err := afero.ReadFile(base, "/cfg/config.json")
	if err != nil {
		t.Fatal(err)
	}

	readonly := NewPersistence(afero.NewReadOnlyFs(base), NewStore())
	changed := NewStore().Defaults()
	changed["gps"]["device"] = "/dev/ttyACM3"

	err = readonly.Write("/cfg/config.json", changed)
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Write() on read-only fs error = %v, want ErrWrite", err)
	}

	after, err := afero.ReadFile(base, "/cfg/config.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("failed Write() modified the previous configuration file")
	}
}

func TestPersistence_Write_Document(t *testing.T) {
	p, fs := newMemPersistence()
	tree := NewStore().Defaults()

	if err := p.Write("/cfg/config.json", tree); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := afero.ReadFile(fs, "/cfg/config.json")
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Write() produced invalid JSON: %v", err)
	}
	if v, ok := doc["schemaVersion"].(float64); !ok || int(v) != CurrentSchemaVersion {
		t.Errorf("schemaVersion = %#v, want %d", doc["schemaVersion"], CurrentSchemaVersion)
	}
	for _, name := range interfaces.Subsystems() {
		if _, ok := doc[name]; !ok {
			t.Errorf("document missing subsystem section %q", name)
		}
	}

	names, err := afero.Glob(fs, "/cfg/.*")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("Write() left temp files behind: %v", names)
	}
}
