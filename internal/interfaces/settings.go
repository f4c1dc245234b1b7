package interfaces

// Settings represents the tool's own configuration, as distinct from the
// device configuration tree it manages
type Settings struct {
	ConfigPath         string `toml:"config_path"`
	Format             string `toml:"format"`
	LogLevel           string `toml:"log_level"`
	LogFormat          string `toml:"log_format"`
	StatusTemplate     string `toml:"status_template"`
	Target             string `toml:"target"`
	InteractiveDefault bool   `toml:"interactive_default"`
	Fullscreen         bool   `toml:"fullscreen"`
}

// SettingsManager handles tool settings loading and resolution
type SettingsManager interface {
	// Load loads settings from the specified path
	Load(path string) (*Settings, error)

	// Resolve applies precedence rules (flags > env > file > defaults)
	Resolve() (*Settings, error)

	// Validate validates the settings values
	Validate(settings *Settings) error
}
