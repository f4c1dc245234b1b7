package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/app"
	"github.com/cvalentine99/uConsole-RF-Tools/pkg/models"
)

// Build-time variables injected via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = runtime.Version()
)

var rootCmd = &cobra.Command{
	Use:   "hwctl",
	Short: "Configuration manager for the uConsole RF expansion hardware",
	Long: `hwctl manages the shared configuration for the uConsole RF subsystems:
GPS, LoRa radio, RTL-SDR receiver, real-time clock and USB, plus the tool's
own logging.

Running hwctl without a subcommand renders the status report for the current
configuration. Edits are staged in a session and committed atomically; apply
pushes the committed configuration to every subsystem, where a failure in
one never blocks the others.

Interactive mode can be controlled via settings (interactive_default),
overridden with -i (force interactive) or -y (force non-interactive).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if version flag is set
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			versionCmd.Run(cmd, args)
			return nil
		}

		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		if err := applyStatusFlags(cmd, request); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}

		return app.Run(request)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print detailed version information including build version, commit, date, and platform details.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hwctl version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  go version: %s\n", goVersion)
		fmt.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the validated configuration tree",
	Long:  "Print the current configuration with defaults filled in. Unrecognized entries from the file are included.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}

		if request.Format, err = cmd.Flags().GetString("format"); err != nil {
			return fmt.Errorf("invalid format flag: %w", err)
		}
		if request.Copy, err = cmd.Flags().GetBool("copy"); err != nil {
			return fmt.Errorf("invalid copy flag: %w", err)
		}
		if request.Target, err = cmd.Flags().GetString("target"); err != nil {
			return fmt.Errorf("invalid target flag: %w", err)
		}

		return app.ShowConfig(request)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <subsystem> <option> <value>",
	Short: "Set one configuration value",
	Long: `Stage, commit and save a single configuration edit. The value literal is
detected as bool, integer, float or string, in that order:

  hwctl set gps device /dev/ttyACM0
  hwctl set lora frequency 868000000
  hwctl set rtlsdr enabled true`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		if request.Apply, err = cmd.Flags().GetBool("apply"); err != nil {
			return fmt.Errorf("invalid apply flag: %w", err)
		}

		return app.SetValue(request, args[0], args[1], args[2])
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the configuration in a session",
	Long: `Open an editing session over the configuration. By default a guided menu
stages edits until you commit or discard them; with --editor the configuration
file is opened in an external editor and re-validated afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}

		if request.Editor, err = cmd.Flags().GetString("editor"); err != nil {
			return fmt.Errorf("invalid editor flag: %w", err)
		}
		// Track if --editor flag was explicitly set
		request.EditorRequested = cmd.Flags().Changed("editor")

		if request.Apply, err = cmd.Flags().GetBool("apply"); err != nil {
			return fmt.Errorf("invalid apply flag: %w", err)
		}

		return app.EditConfig(request)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Push the configuration to every subsystem",
	Long: `Read the configuration and re-initialize every subsystem with its section.
Per-subsystem failures are reported individually and never stop the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		return app.ApplyConfig(request)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Render the status report",
	Long:  "Render the status report: a one-line bar by default, a full per-subsystem report with --fullscreen, or a custom template with --template.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		if err := applyStatusFlags(cmd, request); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		return app.Run(request)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-apply the configuration whenever the file changes",
	Long:  "Watch the configuration file and push every change to the subsystems until interrupted. Ctrl+C cleans the subsystems up in registration order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		return app.WatchConfig(request)
	},
}

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "List candidate devices per subsystem",
	Long:  "Ask each subsystem that supports discovery to list its candidate devices (serial adapters for GPS).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		return app.RescanDevices(request)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  "Write the documented defaults to the configuration path. An existing file is only replaced after confirmation or with --force.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := buildRequestFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		if request.Force, err = cmd.Flags().GetBool("force"); err != nil {
			return fmt.Errorf("invalid force flag: %w", err)
		}
		return app.InitConfig(request)
	},
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(initCmd)

	// Command specific flags
	showCmd.Flags().String("format", "", "output format (json, yaml)")
	showCmd.Flags().Bool("copy", false, "copy the output to the clipboard")
	showCmd.Flags().StringP("target", "t", "", "output target (clipboard, stdout, file:/path)")

	setCmd.Flags().Bool("apply", false, "also push the new configuration to the subsystems")

	editCmd.Flags().StringP("editor", "e", "", "open the configuration file in an external editor")
	editCmd.Flags().Bool("apply", false, "push the committed configuration without asking")

	statusCmd.Flags().Bool("fullscreen", false, "render the full per-subsystem report")
	statusCmd.Flags().String("template", "", "custom status template file")

	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file")

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "device configuration file (default ~/.config/hwctl/config.json)")
	rootCmd.PersistentFlags().String("settings", "", "tool settings file (default ~/.config/hwctl/settings.toml)")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "noninteractive mode - use defaults without prompts")
	rootCmd.PersistentFlags().BoolP("interactive", "i", false, "force interactive mode (overrides settings default)")
	rootCmd.PersistentFlags().BoolP("numbers", "n", false, "enable number key selection in menus")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "print version information")

	// Root renders the status report, so it carries the status flags too
	rootCmd.Flags().Bool("fullscreen", false, "render the full per-subsystem report")
	rootCmd.Flags().String("template", "", "custom status template file")
}

// buildRequestFromFlags constructs a Request from the global flags
func buildRequestFromFlags(cmd *cobra.Command) (*models.Request, error) {
	request := models.NewRequest()

	var err error

	if request.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, fmt.Errorf("invalid config flag: %w", err)
	}

	if request.SettingsPath, err = cmd.Flags().GetString("settings"); err != nil {
		return nil, fmt.Errorf("invalid settings flag: %w", err)
	}

	// Handle interactive mode flags
	if request.ForceNonInteractive, err = cmd.Flags().GetBool("yes"); err != nil {
		return nil, fmt.Errorf("invalid yes flag: %w", err)
	}

	if request.ForceInteractive, err = cmd.Flags().GetBool("interactive"); err != nil {
		return nil, fmt.Errorf("invalid interactive flag: %w", err)
	}

	// Validate that both flags are not set
	if request.ForceInteractive && request.ForceNonInteractive {
		return nil, fmt.Errorf("cannot use both --interactive and --yes flags")
	}

	// Set initial interactive mode (will be resolved after settings loading)
	request.Interactive = true

	if request.NumberSelect, err = cmd.Flags().GetBool("numbers"); err != nil {
		return nil, fmt.Errorf("invalid numbers flag: %w", err)
	}

	return request, nil
}

// applyStatusFlags reads the status rendering flags shared by the root and
// status commands
func applyStatusFlags(cmd *cobra.Command, request *models.Request) error {
	var err error

	if request.Fullscreen, err = cmd.Flags().GetBool("fullscreen"); err != nil {
		return fmt.Errorf("invalid fullscreen flag: %w", err)
	}
	// Track if --fullscreen was explicitly set
	request.FullscreenSet = cmd.Flags().Changed("fullscreen")

	if request.TemplatePath, err = cmd.Flags().GetString("template"); err != nil {
		return fmt.Errorf("invalid template flag: %w", err)
	}

	return nil
}

func main() {
	// Disable usage on error to show only our custom error messages
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
