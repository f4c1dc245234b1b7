// Package settings manages the tool's own configuration, as distinct from
// the device configuration tree it edits. Precedence is flags > environment
// > settings file > defaults.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// Manager implements the SettingsManager interface
type Manager struct {
	v     *viper.Viper
	flags map[string]interface{} // Store flag values for precedence
}

// NewManager creates a new settings manager
func NewManager() *Manager {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("HWCTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return &Manager{
		v:     v,
		flags: make(map[string]interface{}),
	}
}

// setDefaults sets the default settings values
func setDefaults(v *viper.Viper) {
	v.SetDefault("config_path", "~/.config/hwctl/config.json")
	v.SetDefault("format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("status_template", "")
	v.SetDefault("target", "stdout")
	v.SetDefault("interactive_default", true)
	v.SetDefault("fullscreen", false)
}

// Load loads settings from the specified path
func (m *Manager) Load(path string) (*interfaces.Settings, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".config", "hwctl", "settings.toml")
	}

	path = expandPath(path)

	// Settings file is optional; absent means env + defaults.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m.getSettingsFromViper(), nil
	}

	m.v.SetConfigFile(path)

	if err := m.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	return m.getSettingsFromViper(), nil
}

// SetFlag sets a flag value for precedence resolution
func (m *Manager) SetFlag(key string, value interface{}) {
	m.flags[key] = value
}

// Resolve applies precedence rules (flags > env > file > defaults)
func (m *Manager) Resolve() (*interfaces.Settings, error) {
	base := m.getSettingsFromViper()

	// String flags land in an overlay whose zero fields are then filled
	// from the resolved base.
	overlay := &interfaces.Settings{}
	if val, ok := m.flags["config_path"]; ok {
		overlay.ConfigPath = expandPath(cast.ToString(val))
	}
	if val, ok := m.flags["format"]; ok {
		overlay.Format = cast.ToString(val)
	}
	if val, ok := m.flags["log_level"]; ok {
		overlay.LogLevel = cast.ToString(val)
	}
	if val, ok := m.flags["log_format"]; ok {
		overlay.LogFormat = cast.ToString(val)
	}
	if val, ok := m.flags["status_template"]; ok {
		overlay.StatusTemplate = expandPath(cast.ToString(val))
	}
	if val, ok := m.flags["target"]; ok {
		overlay.Target = cast.ToString(val)
	}

	if err := mergo.Merge(overlay, *base); err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	// Boolean flags cannot ride the zero-value merge: an explicit false
	// from the command line must beat a true from the file.
	if val, ok := m.flags["fullscreen"]; ok {
		overlay.Fullscreen = cast.ToBool(val)
	}
	if val, ok := m.flags["interactive_default"]; ok {
		overlay.InteractiveDefault = cast.ToBool(val)
	}

	return overlay, nil
}

// Validate validates the settings values
func (m *Manager) Validate(settings *interfaces.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}

	validFormats := map[string]bool{
		"json": true,
		"yaml": true,
	}
	if !validFormats[settings.Format] {
		return fmt.Errorf("invalid format: %s (must be 'json' or 'yaml')", settings.Format)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[settings.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be 'debug', 'info', 'warn' or 'error')", settings.LogLevel)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[settings.LogFormat] {
		return fmt.Errorf("invalid log_format: %s (must be 'text' or 'json')", settings.LogFormat)
	}

	validTargets := map[string]bool{
		"clipboard": true,
		"stdout":    true,
	}
	// Also allow file: prefix
	if !validTargets[settings.Target] && !strings.HasPrefix(settings.Target, "file:") {
		return fmt.Errorf("invalid target: %s (must be 'clipboard', 'stdout', or 'file:/path')", settings.Target)
	}

	if settings.ConfigPath == "" {
		return fmt.Errorf("config_path must not be empty")
	}

	// The device configuration directory must exist or be creatable.
	configDir := filepath.Dir(expandPath(settings.ConfigPath))
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("config directory does not exist and cannot be created: %s", configDir)
		}
	}

	return nil
}

// getSettingsFromViper converts viper state to a Settings struct.
// This handles env > file > defaults precedence (flags are applied separately)
func (m *Manager) getSettingsFromViper() *interfaces.Settings {
	return &interfaces.Settings{
		ConfigPath:         expandPath(m.v.GetString("config_path")),
		Format:             m.v.GetString("format"),
		LogLevel:           m.v.GetString("log_level"),
		LogFormat:          m.v.GetString("log_format"),
		StatusTemplate:     expandPath(m.v.GetString("status_template")),
		Target:             m.v.GetString("target"),
		InteractiveDefault: m.v.GetBool("interactive_default"),
		Fullscreen:         m.v.GetBool("fullscreen"),
	}
}

// expandPath expands ~ to user home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path // Return original path if we can't get home dir
	}

	return filepath.Join(homeDir, path[2:])
}
