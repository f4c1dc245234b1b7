package manager

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

func quietLogger() logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "text", Output: io.Discard})
}

func newTestManager() (*Manager, afero.Fs) {
	fs := afero.NewMemMapFs()
	return New(fs, quietLogger()), fs
}

type fakeHandle struct {
	name  string
	state interfaces.State
	cfg   interfaces.SubsystemConfig
}

func (f *fakeHandle) Name() string            { return f.name }
func (f *fakeHandle) State() interfaces.State { return f.state }

func (f *fakeHandle) Initialize(cfg interfaces.SubsystemConfig) error {
	f.cfg = cfg
	f.state = interfaces.StateActive
	return nil
}

func (f *fakeHandle) ExportConfig() interfaces.SubsystemConfig { return f.cfg }

func (f *fakeHandle) Reinitialize(cfg interfaces.SubsystemConfig) error {
	return f.Initialize(cfg)
}

func (f *fakeHandle) Cleanup() error {
	f.state = interfaces.StateUninitialized
	return nil
}

func TestLoad_MissingFileStartsFromDefaults(t *testing.T) {
	m, _ := newTestManager()

	if err := m.Load("/cfg/config.json"); err != nil {
		t.Fatalf("Load() with missing file error = %v", err)
	}

	tree, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !tree.Equal(devconf.NewStore().Defaults()) {
		t.Error("live tree after loading a missing file should equal the defaults")
	}
	if m.ConfigPath() != "/cfg/config.json" {
		t.Errorf("ConfigPath() = %q, want /cfg/config.json", m.ConfigPath())
	}
}

func TestLoad_ParseErrorSurfaces(t *testing.T) {
	m, fs := newTestManager()
	if err := afero.WriteFile(fs, "/cfg/config.json", []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := m.Load("/cfg/config.json")
	if !errors.Is(err, devconf.ErrParse) {
		t.Fatalf("Load() error = %v, want ErrParse", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/config.json"

	first := New(fs, quietLogger())
	if err := first.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := first.SetValue("gps", "device", "/dev/ttyACM7"); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if err := first.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := New(fs, quietLogger())
	if err := second.Load(path); err != nil {
		t.Fatalf("Load() on fresh manager error = %v", err)
	}

	tree, err := second.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if tree["gps"]["device"] != "/dev/ttyACM7" {
		t.Errorf("gps.device = %v, want /dev/ttyACM7", tree["gps"]["device"])
	}
	if tree["gps"]["enabled"] != true {
		t.Errorf("gps.enabled = %v, want untouched default true", tree["gps"]["enabled"])
	}
}

func TestSave_WithoutLoadedFileFails(t *testing.T) {
	m, _ := newTestManager()
	if err := m.Save(); err == nil {
		t.Fatal("Save() without a loaded file should fail")
	}
}

func TestCurrent_ReturnsACopy(t *testing.T) {
	m, _ := newTestManager()

	tree, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	tree["gps"]["device"] = "/dev/hijacked"

	fresh, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if fresh["gps"]["device"] == "/dev/hijacked" {
		t.Error("mutating a Current() snapshot leaked into the live tree")
	}
}

func TestEditLifecycle(t *testing.T) {
	m, _ := newTestManager()

	id, err := m.BeginEdit()
	if err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if id == "" {
		t.Fatal("BeginEdit() returned an empty session ID")
	}

	if err := m.ApplyEdit("lora", "frequency", int64(868000000)); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	// Staged but not committed: visible in Working, invisible in Current.
	working, err := m.Working()
	if err != nil {
		t.Fatalf("Working() error = %v", err)
	}
	if working["lora"]["frequency"] != int64(868000000) {
		t.Errorf("working lora.frequency = %v, want staged 868000000", working["lora"]["frequency"])
	}
	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["lora"]["frequency"] != int64(915000000) {
		t.Errorf("live lora.frequency = %v, want untouched 915000000", live["lora"]["frequency"])
	}

	if err := m.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	live, err = m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["lora"]["frequency"] != int64(868000000) {
		t.Errorf("live lora.frequency after commit = %v, want 868000000", live["lora"]["frequency"])
	}
	if live["gps"]["enabled"] != true {
		t.Errorf("gps.enabled after commit = %v, want preserved true", live["gps"]["enabled"])
	}
	if _, open := m.SessionID(); open {
		t.Error("session still reported open after commit")
	}
}

func TestBeginEdit_SecondSessionRefused(t *testing.T) {
	m, _ := newTestManager()

	id, err := m.BeginEdit()
	if err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}

	_, err = m.BeginEdit()
	if !errors.Is(err, devconf.ErrSessionAlreadyOpen) {
		t.Fatalf("second BeginEdit() error = %v, want ErrSessionAlreadyOpen", err)
	}
	if !strings.Contains(err.Error(), id) {
		t.Errorf("error %q should name the open session %q", err, id)
	}
}

func TestSessionOps_WithoutSession(t *testing.T) {
	m, _ := newTestManager()

	tests := []struct {
		name string
		call func() error
	}{
		{"ApplyEdit", func() error { return m.ApplyEdit("gps", "device", "/dev/ttyUSB1") }},
		{"Working", func() error { _, err := m.Working(); return err }},
		{"Commit", func() error { return m.Commit() }},
		{"Cancel", func() error { return m.Cancel() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, devconf.ErrNoSessionOpen) {
				t.Errorf("%s error = %v, want ErrNoSessionOpen", tt.name, err)
			}
		})
	}
}

func TestCancel_DiscardsEditsAndFreesTheSlot(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if err := m.ApplyEdit("rtc", "type", "pcf8523"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["rtc"]["type"] != "ds3231" {
		t.Errorf("rtc.type after cancel = %v, want untouched ds3231", live["rtc"]["type"])
	}

	if _, err := m.BeginEdit(); err != nil {
		t.Errorf("BeginEdit() after cancel error = %v, session slot should be free", err)
	}
}

func TestReload_RefusedWhileSessionOpen(t *testing.T) {
	m, _ := newTestManager()
	if err := m.Load("/cfg/config.json"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := m.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if err := m.Reload(); !errors.Is(err, devconf.ErrSessionAlreadyOpen) {
		t.Fatalf("Reload() with open session error = %v, want ErrSessionAlreadyOpen", err)
	}

	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := m.Reload(); err != nil {
		t.Errorf("Reload() after cancel error = %v", err)
	}
}

func TestReload_PicksUpExternalChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/config.json"
	m := New(fs, quietLogger())
	if err := m.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Another writer replaces the file behind the manager's back.
	p := devconf.NewPersistence(fs, devconf.NewStore())
	external := devconf.NewStore().Defaults()
	external["rtlsdr"]["device_index"] = int64(3)
	if err := p.Write(path, external); err != nil {
		t.Fatalf("external Write() error = %v", err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["rtlsdr"]["device_index"] != int64(3) {
		t.Errorf("rtlsdr.device_index after reload = %v, want 3", live["rtlsdr"]["device_index"])
	}
}

func TestSetValue(t *testing.T) {
	m, _ := newTestManager()

	if err := m.SetValue("usb", "enabled", false); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["usb"]["enabled"] != false {
		t.Errorf("usb.enabled = %v, want false", live["usb"]["enabled"])
	}

	t.Run("unknown subsystem", func(t *testing.T) {
		err := m.SetValue("wifi", "enabled", true)
		if !errors.Is(err, devconf.ErrUnknownSubsystem) {
			t.Fatalf("SetValue(wifi) error = %v, want ErrUnknownSubsystem", err)
		}
		// The failed transaction must not leave a session open.
		if _, open := m.SessionID(); open {
			t.Error("failed SetValue left a session open")
		}
	})

	t.Run("refused while a session is open", func(t *testing.T) {
		if _, err := m.BeginEdit(); err != nil {
			t.Fatalf("BeginEdit() error = %v", err)
		}
		defer m.Cancel()
		if err := m.SetValue("gps", "enabled", false); !errors.Is(err, devconf.ErrSessionAlreadyOpen) {
			t.Errorf("SetValue() with open session error = %v, want ErrSessionAlreadyOpen", err)
		}
	})
}

func TestWriteDefaults_LeavesLiveTreeAlone(t *testing.T) {
	m, fs := newTestManager()
	if err := m.SetValue("gps", "baud_rate", int64(115200)); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}

	if err := m.WriteDefaults("/cfg/fresh.json"); err != nil {
		t.Fatalf("WriteDefaults() error = %v", err)
	}

	p := devconf.NewPersistence(fs, devconf.NewStore())
	written, err := p.Read("/cfg/fresh.json")
	if err != nil {
		t.Fatalf("Read() of defaults file error = %v", err)
	}
	if written["gps"]["baud_rate"] != int64(9600) {
		t.Errorf("written gps.baud_rate = %v, want pristine 9600", written["gps"]["baud_rate"])
	}

	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["gps"]["baud_rate"] != int64(115200) {
		t.Errorf("live gps.baud_rate = %v, want 115200 still", live["gps"]["baud_rate"])
	}
}

func TestRegisterAndBroadcast(t *testing.T) {
	m, _ := newTestManager()
	h := &fakeHandle{name: "gps"}
	if err := m.Register("gps", h); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	results, err := m.Broadcast()
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if results["gps"].Outcome != interfaces.OutcomeReinitialized {
		t.Fatalf("gps outcome = %v, want reinitialized", results["gps"].Outcome)
	}
	if h.State() != interfaces.StateActive {
		t.Errorf("handle state = %v, want active", h.State())
	}

	// Disabling the subsystem turns the next broadcast into a skip.
	if err := m.SetValue("gps", "enabled", false); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	results, err = m.Broadcast()
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if results["gps"].Outcome != interfaces.OutcomeSkipped {
		t.Fatalf("gps outcome after disable = %v, want skipped", results["gps"].Outcome)
	}
	if h.State() != interfaces.StateUninitialized {
		t.Errorf("handle state after skip = %v, want uninitialized", h.State())
	}

	cleanupErrs := m.Cleanup()
	if len(cleanupErrs) != 0 {
		t.Errorf("Cleanup() errors = %v, want none", cleanupErrs)
	}
}

func TestBroadcast_HandleReceivesACopy(t *testing.T) {
	m, _ := newTestManager()
	h := &fakeHandle{name: "gps"}
	if err := m.Register("gps", h); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := m.Broadcast(); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	h.cfg["device"] = "/dev/hijacked"

	live, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if live["gps"]["device"] == "/dev/hijacked" {
		t.Error("mutating the handle's config leaked into the live tree")
	}
}

func TestDeliver(t *testing.T) {
	h := NewOutputHandler()

	t.Run("file target", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		if err := Deliver(h, "report body", "file:"+path); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(data) != "report body" {
			t.Errorf("file content = %q, want %q", data, "report body")
		}
	})

	t.Run("unsupported target", func(t *testing.T) {
		if err := Deliver(h, "x", "printer"); err == nil {
			t.Fatal("Deliver() with unsupported target should fail")
		}
	})
}
