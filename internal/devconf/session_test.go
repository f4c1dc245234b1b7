package devconf

import (
	"errors"
	"strings"
	"testing"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

func TestSession_BeginIsolatesLiveTree(t *testing.T) {
	live := NewStore().Defaults()
	snapshot, err := live.Clone()
	if err != nil {
		t.Fatal(err)
	}

	session, err := Begin(live)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if session.ID() == "" {
		t.Error("Begin() produced a session without an ID")
	}

	if err := session.ApplyEdit("gps", "device", "/dev/ttyACM0"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if err := session.ApplyEdit("gps", "enabled", false); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	if !live.Equal(snapshot) {
		t.Error("edits before commit leaked into the live tree")
	}
}

func TestSession_ApplyEdit_UnknownSubsystem(t *testing.T) {
	session, err := Begin(NewStore().Defaults())
	if err != nil {
		t.Fatal(err)
	}

	err = session.ApplyEdit("wifi", "enabled", true)
	if !errors.Is(err, ErrUnknownSubsystem) {
		t.Fatalf("ApplyEdit(wifi) error = %v, want ErrUnknownSubsystem", err)
	}
	if got := err.Error(); !strings.Contains(got, "'wifi'") {
		t.Errorf("error should name the subsystem, got: %v", got)
	}

	working, err := session.Working()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := working["wifi"]; ok {
		t.Error("rejected edit still created a wifi section")
	}
}

func TestSession_CommitPreservesUntouchedValues(t *testing.T) {
	live := NewStore().Defaults()

	session, err := Begin(live)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.ApplyEdit("gps", "device", "/dev/ttyACM0"); err != nil {
		t.Fatal(err)
	}

	committed, err := session.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if committed["gps"]["device"] != "/dev/ttyACM0" {
		t.Errorf("gps.device = %#v, want the staged edit", committed["gps"]["device"])
	}
	if committed["gps"]["enabled"] != true {
		t.Errorf("gps.enabled = %#v, want untouched true", committed["gps"]["enabled"])
	}
	if committed["lora"]["spreading_factor"] != int64(7) {
		t.Errorf("lora.spreading_factor = %#v, want untouched 7", committed["lora"]["spreading_factor"])
	}
	for _, name := range interfaces.Subsystems() {
		if _, ok := committed[name]; !ok {
			t.Errorf("committed tree missing subsystem %q", name)
		}
	}
}

func TestSession_CommitStagedEditsWin(t *testing.T) {
	live := NewStore().Defaults()

	session, err := Begin(live)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.ApplyEdit("gps", "enabled", false); err != nil {
		t.Fatal(err)
	}
	if err := session.ApplyEdit("rtlsdr", "device_index", 0); err != nil {
		t.Fatal(err)
	}

	committed, err := session.Commit()
	if err != nil {
		t.Fatal(err)
	}

	if committed["gps"]["enabled"] != false {
		t.Error("staged false was clobbered by the baseline true on commit")
	}
	if committed["rtlsdr"]["device_index"] != int64(0) {
		t.Errorf("rtlsdr.device_index = %#v, want staged 0", committed["rtlsdr"]["device_index"])
	}
}

func TestSession_CommitRestoresTrimmedEntries(t *testing.T) {
	live := NewStore().Defaults()
	live["custom"] = interfaces.SubsystemConfig{"keep": "me"}

	session, err := Begin(live)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate an editing surface that hands back a pruned tree.
	delete(session.working, "usb")
	delete(session.working, "custom")
	delete(session.working["gps"], "baud_rate")

	committed, err := session.Commit()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := committed["usb"]; !ok {
		t.Error("commit lost the usb subsystem dropped from the working copy")
	}
	if committed["custom"]["keep"] != "me" {
		t.Error("commit lost the unrecognized custom section")
	}
	if committed["gps"]["baud_rate"] != int64(9600) {
		t.Errorf("gps.baud_rate = %#v, want restored 9600", committed["gps"]["baud_rate"])
	}
}

func TestSession_CancelDiscardsEdits(t *testing.T) {
	live := NewStore().Defaults()
	snapshot, err := live.Clone()
	if err != nil {
		t.Fatal(err)
	}

	session, err := Begin(live)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.ApplyEdit("lora", "frequency", 433000000); err != nil {
		t.Fatal(err)
	}
	if err := session.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if !live.Equal(snapshot) {
		t.Error("cancelled session modified the live tree")
	}
	if !session.Closed() {
		t.Error("Cancel() did not close the session")
	}
}

func TestSession_ClosedSessionRejectsFurtherUse(t *testing.T) {
	tests := []struct {
		name  string
		close func(s *Session) error
	}{
		{"after commit", func(s *Session) error { _, err := s.Commit(); return err }},
		{"after cancel", func(s *Session) error { return s.Cancel() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := Begin(NewStore().Defaults())
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.close(session); err != nil {
				t.Fatal(err)
			}

			if err := session.ApplyEdit("gps", "enabled", true); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("ApplyEdit() error = %v, want ErrSessionClosed", err)
			}
			if _, err := session.Working(); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("Working() error = %v, want ErrSessionClosed", err)
			}
			if _, err := session.Commit(); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("Commit() error = %v, want ErrSessionClosed", err)
			}
			if err := session.Cancel(); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("Cancel() error = %v, want ErrSessionClosed", err)
			}
		})
	}
}

func TestSession_WorkingReturnsCopy(t *testing.T) {
	session, err := Begin(NewStore().Defaults())
	if err != nil {
		t.Fatal(err)
	}

	working, err := session.Working()
	if err != nil {
		t.Fatal(err)
	}
	working["gps"]["device"] = "/dev/null"
	delete(working, "rtc")

	committed, err := session.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if committed["gps"]["device"] != "/dev/ttyUSB0" {
		t.Error("mutating the Working() snapshot leaked into the session")
	}
	if _, ok := committed["rtc"]; !ok {
		t.Error("deleting from the Working() snapshot leaked into the session")
	}
}

func TestSession_EditValueCanonicalized(t *testing.T) {
	session, err := Begin(NewStore().Defaults())
	if err != nil {
		t.Fatal(err)
	}

	if err := session.ApplyEdit("lora", "frequency", 868000000.0); err != nil {
		t.Fatal(err)
	}
	if err := session.ApplyEdit("gps", "baud_rate", 115200); err != nil {
		t.Fatal(err)
	}

	committed, err := session.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if committed["lora"]["frequency"] != int64(868000000) {
		t.Errorf("lora.frequency = %#v (%T), want canonical int64", committed["lora"]["frequency"], committed["lora"]["frequency"])
	}
	if committed["gps"]["baud_rate"] != int64(115200) {
		t.Errorf("gps.baud_rate = %#v (%T), want canonical int64", committed["gps"]["baud_rate"], committed["gps"]["baud_rate"])
	}
}
