// Package app wires settings, the configuration manager, subsystem handles
// and the status renderer into the command implementations.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.yaml.in/yaml/v3"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interactive"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/manager"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/settings"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/status"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/subsystem"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/watch"
	"github.com/cvalentine99/uConsole-RF-Tools/pkg/models"
)

// environment is everything a command needs once settings are resolved and
// the configuration is loaded.
type environment struct {
	settings *interfaces.Settings
	mgr      *manager.Manager
	log      logging.Logger
}

// resolveSettings loads the tool settings, applies the request's flag
// overrides and reconfigures the process logger accordingly.
func resolveSettings(request *models.Request) (*interfaces.Settings, logging.Logger, error) {
	sm := settings.NewManager()
	if _, err := sm.Load(request.SettingsPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}

	applyRequestFlags(sm, request)

	cfg, err := sm.Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve settings: %w", err)
	}
	if err := sm.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid settings: %w", err)
	}

	logging.Reconfigure(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	return cfg, logging.Default(), nil
}

// applyRequestFlags records explicitly set command-line flags for
// precedence resolution.
func applyRequestFlags(sm *settings.Manager, request *models.Request) {
	if request.ConfigPath != "" {
		sm.SetFlag("config_path", request.ConfigPath)
	}
	if request.Format != "" {
		sm.SetFlag("format", request.Format)
	}
	if request.TemplatePath != "" {
		sm.SetFlag("status_template", request.TemplatePath)
	}
	if request.Target != "" {
		sm.SetFlag("target", request.Target)
	}
	if request.FullscreenSet {
		sm.SetFlag("fullscreen", request.Fullscreen)
	}
}

// bootstrap resolves settings, loads the device configuration and
// optionally registers the built-in subsystem handles.
func bootstrap(request *models.Request, withHandles bool) (*environment, error) {
	cfg, log, err := resolveSettings(request)
	if err != nil {
		return nil, err
	}

	resolveInteractiveMode(request, cfg)

	mgr := manager.New(nil, log)
	if err := mgr.Load(cfg.ConfigPath); err != nil {
		return nil, err
	}

	env := &environment{settings: cfg, mgr: mgr, log: log}
	if withHandles {
		for _, h := range subsystem.NewHandles(nil, log) {
			if err := mgr.Register(h.Name(), h); err != nil {
				return nil, err
			}
		}
	}
	return env, nil
}

// resolveInteractiveMode determines the final interactive mode based on
// flags and settings
func resolveInteractiveMode(request *models.Request, cfg *interfaces.Settings) {
	// Priority: explicit flags > settings default
	if request.ForceInteractive {
		request.Interactive = true
	} else if request.ForceNonInteractive {
		request.Interactive = false
	} else {
		request.Interactive = cfg.InteractiveDefault
	}
}

// Run renders the status report for the current configuration. This is the
// root command.
func Run(request *models.Request) error {
	env, err := bootstrap(request, true)
	if err != nil {
		return err
	}

	tree, err := env.mgr.Current()
	if err != nil {
		return err
	}

	fullscreen := env.settings.Fullscreen
	if request.FullscreenSet {
		fullscreen = request.Fullscreen
	}

	renderer := status.NewRenderer(nil, env.settings.StatusTemplate)
	data := status.Build(tree, env.mgr.Handles(), env.mgr.ConfigPath(), fullscreen)
	out, err := renderer.Render(data)
	if err != nil {
		return err
	}

	return manager.Deliver(manager.NewOutputHandler(), out, resolveTarget(request, "stdout"))
}

// ShowConfig prints the validated configuration tree.
func ShowConfig(request *models.Request) error {
	env, err := bootstrap(request, false)
	if err != nil {
		return err
	}

	tree, err := env.mgr.Current()
	if err != nil {
		return err
	}

	rendered, err := marshalTree(tree, env.settings.Format)
	if err != nil {
		return err
	}

	return manager.Deliver(manager.NewOutputHandler(), rendered, resolveTarget(request, env.settings.Target))
}

// SetValue stages, commits and saves a single edit. The value literal is
// sniffed: bool, then integer, then float, then string.
func SetValue(request *models.Request, subsystemName, key, literal string) error {
	env, err := bootstrap(request, request.Apply)
	if err != nil {
		return err
	}

	value := devconf.ParseScalar(literal)
	if err := env.mgr.SetValue(subsystemName, key, value); err != nil {
		return err
	}
	if err := env.mgr.Save(); err != nil {
		return err
	}
	fmt.Printf("Set %s.%s = %v\n", subsystemName, key, value)

	if request.Apply {
		results, err := env.mgr.Broadcast()
		if err != nil {
			return err
		}
		printResults(results, env.mgr.Handles())
	}
	return nil
}

// EditConfig opens an editing session, either the interactive survey editor
// or an external editor on the configuration file itself.
func EditConfig(request *models.Request) error {
	env, err := bootstrap(request, true)
	if err != nil {
		return err
	}

	if request.EditorRequested {
		return editExternally(request, env)
	}
	return editInteractively(request, env)
}

// editExternally opens the configuration file in an external editor, then
// re-reads and re-validates it.
func editExternally(request *models.Request, env *environment) error {
	path := env.mgr.ConfigPath()

	// The file must exist before an editor can usefully open it.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := env.mgr.Save(); err != nil {
			return err
		}
	}

	editor := resolveEditor(request.Editor)
	handler := manager.NewOutputHandler()
	if err := handler.OpenInEditor(path, editor); err != nil {
		return err
	}

	if err := env.mgr.Reload(); err != nil {
		return fmt.Errorf("edited configuration is not usable: %w", err)
	}
	fmt.Printf("Reloaded %s\n", path)

	if request.Apply {
		results, err := env.mgr.Broadcast()
		if err != nil {
			return err
		}
		printResults(results, env.mgr.Handles())
	}
	return nil
}

// editInteractively runs the survey editor over an editing session.
func editInteractively(request *models.Request, env *environment) error {
	if _, err := env.mgr.BeginEdit(); err != nil {
		return err
	}

	ed := interactive.NewEditor(request.NumberSelect)
	commit, edits, err := ed.Run(env.mgr)
	if err != nil {
		_ = env.mgr.Cancel()
		return err
	}

	if !commit || edits == 0 {
		if err := env.mgr.Cancel(); err != nil {
			return err
		}
		fmt.Println("No changes")
		return nil
	}

	if err := env.mgr.Commit(); err != nil {
		return err
	}
	if err := env.mgr.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved %d edit(s) to %s\n", edits, env.mgr.ConfigPath())

	doApply := request.Apply
	if !doApply && request.Interactive {
		doApply, err = ed.ConfirmBroadcast()
		if err != nil {
			return err
		}
	}
	if doApply {
		results, err := env.mgr.Broadcast()
		if err != nil {
			return err
		}
		printResults(results, env.mgr.Handles())
	}
	return nil
}

// ApplyConfig reads the configuration and broadcasts it to every subsystem.
// Per-subsystem failures are reported, not fatal.
func ApplyConfig(request *models.Request) error {
	env, err := bootstrap(request, true)
	if err != nil {
		return err
	}

	fmt.Printf("Applying configuration from %s\n", env.mgr.ConfigPath())
	results, err := env.mgr.Broadcast()
	if err != nil {
		return err
	}
	printResults(results, env.mgr.Handles())
	return nil
}

// WatchConfig re-applies the configuration whenever the file changes on
// disk, until interrupted.
func WatchConfig(request *models.Request) error {
	env, err := bootstrap(request, true)
	if err != nil {
		return err
	}

	// Bring the subsystems up on the current configuration first.
	results, err := env.mgr.Broadcast()
	if err != nil {
		return err
	}
	printResults(results, env.mgr.Handles())

	watcher, err := watch.New(env.mgr.ConfigPath(), env.log)
	if err != nil {
		return err
	}
	watcher.OnChange(func() {
		before, err := env.mgr.Current()
		if err != nil {
			env.log.Error("snapshot failed", "error", err)
			return
		}
		if err := env.mgr.Reload(); err != nil {
			env.log.Error("reload failed, keeping previous configuration", "error", err)
			return
		}
		after, err := env.mgr.Current()
		if err != nil {
			env.log.Error("snapshot failed", "error", err)
			return
		}
		// Editors fire several events per save; a write that leaves the
		// tree identical must not re-initialize live subsystems.
		if before.Equal(after) {
			env.log.Debug("configuration unchanged, skipping broadcast")
			return
		}
		env.log.Info("configuration changed, re-applying")
		results, err := env.mgr.Broadcast()
		if err != nil {
			env.log.Error("broadcast failed", "error", err)
			return
		}
		logResults(env.log, results)
	})
	watcher.StartAsync()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", env.mgr.ConfigPath())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	watcher.Stop()
	for name, err := range env.mgr.Cleanup() {
		if err != nil {
			env.log.Error("cleanup failed", "subsystem", name, "error", err)
		}
	}
	return nil
}

// RescanDevices lists candidate devices from every handle that can discover
// them.
func RescanDevices(request *models.Request) error {
	env, err := bootstrap(request, true)
	if err != nil {
		return err
	}

	found := false
	for _, h := range env.mgr.Handles() {
		scanner, ok := h.(interfaces.Rescanner)
		if !ok {
			continue
		}
		found = true

		devices, err := scanner.Rescan()
		if err != nil {
			fmt.Printf("%s: rescan failed: %v\n", h.Name(), err)
			continue
		}
		if len(devices) == 0 {
			fmt.Printf("%s: (none found)\n", h.Name())
			continue
		}
		fmt.Printf("%s:\n", h.Name())
		for _, device := range devices {
			fmt.Printf("  %s\n", device)
		}
	}

	if !found {
		fmt.Println("No subsystems support rescanning")
	}
	return nil
}

// InitConfig writes the documented defaults to the configuration path. An
// existing file is only replaced with --force or interactive confirmation.
func InitConfig(request *models.Request) error {
	cfg, log, err := resolveSettings(request)
	if err != nil {
		return err
	}
	resolveInteractiveMode(request, cfg)

	path := cfg.ConfigPath
	if _, err := os.Stat(path); err == nil && !request.Force {
		if !request.Interactive {
			return fmt.Errorf("refusing to overwrite %s (use --force)", path)
		}
		overwrite, err := interactive.NewEditor(request.NumberSelect).ConfirmOverwrite(path)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Aborted")
			return nil
		}
	}

	mgr := manager.New(nil, log)
	if err := mgr.WriteDefaults(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

// resolveTarget picks the output target from the request flags, falling
// back to the provided default.
func resolveTarget(request *models.Request, fallback string) string {
	if request.Copy {
		return "clipboard"
	}
	if request.Target != "" {
		return request.Target
	}
	return fallback
}

// marshalTree serializes the tree without the document envelope, for
// display rather than persistence.
func marshalTree(tree interfaces.Tree, format string) (string, error) {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(tree)
		if err != nil {
			return "", fmt.Errorf("failed to render configuration as yaml: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render configuration as json: %w", err)
		}
		return string(data), nil
	}
}

// formatResult renders one broadcast outcome line.
func formatResult(name string, result interfaces.Result) string {
	if result.Reason != "" {
		return fmt.Sprintf("  %s: %s (%s)", name, result.Outcome, result.Reason)
	}
	return fmt.Sprintf("  %s: %s", name, result.Outcome)
}

// printResults prints broadcast outcomes in registration order.
func printResults(results map[string]interfaces.Result, handles []interfaces.Handle) {
	for _, name := range resultOrder(results, handles) {
		fmt.Println(formatResult(name, results[name]))
	}
}

// logResults reports broadcast outcomes through the logger, for the watch
// loop where stdout is the status channel.
func logResults(log logging.Logger, results map[string]interfaces.Result) {
	for name, result := range results {
		switch result.Outcome {
		case interfaces.OutcomeFailed:
			log.Error("subsystem re-initialization failed", "subsystem", name, "reason", result.Reason)
		case interfaces.OutcomeSkipped:
			log.Debug("subsystem skipped", "subsystem", name, "reason", result.Reason)
		default:
			log.Info("subsystem reinitialized", "subsystem", name)
		}
	}
}

// resultOrder returns the result keys in handle registration order, with
// any stragglers sorted at the end.
func resultOrder(results map[string]interfaces.Result, handles []interfaces.Handle) []string {
	order := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, h := range handles {
		if _, ok := results[h.Name()]; ok && !seen[h.Name()] {
			order = append(order, h.Name())
			seen[h.Name()] = true
		}
	}

	var rest []string
	for name := range results {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// resolveEditor resolves the external editor using precedence rules
func resolveEditor(requestEditor string) string {
	// Precedence: --editor flag > $VISUAL > $EDITOR > common editors
	if requestEditor != "" {
		return requestEditor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	for _, editor := range []string{"nvim", "vim", "vi", "nano"} {
		if _, err := os.Stat("/usr/bin/" + editor); err == nil {
			return editor
		}
	}
	return "vi" // Final fallback
}
