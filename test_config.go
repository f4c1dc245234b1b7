package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/manager"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/settings"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/subsystem"
)

func main() {
	fmt.Println("Testing hwctl Configuration System")
	fmt.Println("==================================")

	workDir, err := os.MkdirTemp("", "hwctl-smoke-")
	if err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	configPath := filepath.Join(workDir, "config.json")
	settingsPath := filepath.Join(workDir, "settings.toml")

	testSettings := `
config_path = "` + configPath + `"
format = "json"
log_level = "warn"
target = "stdout"
`
	if err := os.WriteFile(settingsPath, []byte(testSettings), 0644); err != nil {
		log.Fatalf("Failed to create test settings: %v", err)
	}

	// Test 1: Settings precedence (file, env, flag)
	fmt.Println("\n1. Testing settings precedence:")
	os.Setenv("HWCTL_FORMAT", "yaml")
	defer os.Unsetenv("HWCTL_FORMAT")

	sm := settings.NewManager()
	if _, err := sm.Load(settingsPath); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	sm.SetFlag("log_level", "debug")
	cfg, err := sm.Resolve()
	if err != nil {
		log.Fatalf("Failed to resolve settings: %v", err)
	}
	fmt.Printf("   Format (env override): %s\n", cfg.Format)
	fmt.Printf("   Log level (flag override): %s\n", cfg.LogLevel)
	fmt.Printf("   Config path (from file): %s\n", cfg.ConfigPath)
	if err := sm.Validate(cfg); err != nil {
		log.Fatalf("Settings validation failed: %v", err)
	}
	fmt.Printf("   ✓ Settings are valid\n")

	// Test 2: Defaults when the config file is missing
	fmt.Println("\n2. Testing defaults fallback:")
	mgr := manager.New(nil, nil)
	if err := mgr.Load(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	tree, err := mgr.Current()
	if err != nil {
		log.Fatalf("Failed to snapshot config: %v", err)
	}
	fmt.Printf("   GPS device: %v\n", tree["gps"]["device"])
	fmt.Printf("   LoRa frequency: %v\n", tree["lora"]["frequency"])
	fmt.Printf("   RTC type: %v\n", tree["rtc"]["type"])

	// Test 3: Editing session with single-session enforcement
	fmt.Println("\n3. Testing editing session:")
	if _, err := mgr.BeginEdit(); err != nil {
		log.Fatalf("Failed to begin session: %v", err)
	}
	if _, err := mgr.BeginEdit(); errors.Is(err, devconf.ErrSessionAlreadyOpen) {
		fmt.Printf("   ✓ Second session correctly refused: %v\n", err)
	} else {
		fmt.Printf("   ✗ Second session should have been refused (got %v)\n", err)
	}
	if err := mgr.ApplyEdit("gps", "device", "/dev/ttyACM0"); err != nil {
		log.Fatalf("Failed to stage edit: %v", err)
	}
	if err := mgr.ApplyEdit("lora", "frequency", int64(868000000)); err != nil {
		log.Fatalf("Failed to stage edit: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	if err := mgr.Save(); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	fmt.Printf("   ✓ Committed and saved to %s\n", configPath)

	// Test 4: Reload picks the saved values back up
	fmt.Println("\n4. Testing reload:")
	if err := mgr.Reload(); err != nil {
		log.Fatalf("Failed to reload: %v", err)
	}
	tree, err = mgr.Current()
	if err != nil {
		log.Fatalf("Failed to snapshot config: %v", err)
	}
	fmt.Printf("   GPS device after reload: %v\n", tree["gps"]["device"])
	fmt.Printf("   LoRa frequency after reload: %v\n", tree["lora"]["frequency"])
	fmt.Printf("   GPS baud rate (preserved default): %v\n", tree["gps"]["baud_rate"])

	// Test 5: Malformed file surfaces a parse error with guidance
	fmt.Println("\n5. Testing parse error handling:")
	brokenPath := filepath.Join(workDir, "broken.json")
	if err := os.WriteFile(brokenPath, []byte("{this is not json"), 0644); err != nil {
		log.Fatalf("Failed to write broken file: %v", err)
	}
	p := devconf.NewPersistence(nil, devconf.NewStore())
	if _, err := p.Read(brokenPath); errors.Is(err, devconf.ErrParse) {
		fmt.Printf("   ✓ Parse error correctly reported:\n     %v\n", err)
	} else {
		fmt.Printf("   ✗ Expected a parse error (got %v)\n", err)
	}

	// Test 6: Broadcast to the built-in handles
	fmt.Println("\n6. Testing broadcast:")
	for _, h := range subsystem.NewHandles(nil, nil) {
		if err := mgr.Register(h.Name(), h); err != nil {
			log.Fatalf("Failed to register %s: %v", h.Name(), err)
		}
	}
	results, err := mgr.Broadcast()
	if err != nil {
		log.Fatalf("Failed to broadcast: %v", err)
	}
	for _, h := range mgr.Handles() {
		r := results[h.Name()]
		if r.Reason != "" {
			fmt.Printf("   %s: %s (%s)\n", h.Name(), r.Outcome, r.Reason)
		} else {
			fmt.Printf("   %s: %s\n", h.Name(), r.Outcome)
		}
	}

	for name, err := range mgr.Cleanup() {
		if err != nil {
			fmt.Printf("   cleanup %s failed: %v\n", name, err)
		}
	}

	fmt.Println("\n✓ Configuration system test completed successfully!")
}
