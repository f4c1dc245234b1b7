package models

// Request represents the resolved command-line state handed to the app layer
type Request struct {
	ConfigPath   string
	SettingsPath string
	Format       string
	Target       string
	Copy         bool
	TemplatePath string
	Editor       string

	Fullscreen bool
	// Track if --fullscreen was explicitly set
	FullscreenSet bool

	// Track if --editor flag was explicitly set
	EditorRequested bool

	Interactive         bool
	ForceInteractive    bool
	ForceNonInteractive bool
	NumberSelect        bool

	// Force overwriting an existing file (init command)
	Force bool

	// Also broadcast after a committed edit (set/edit commands)
	Apply bool
}

// NewRequest creates a request with the defaults the commands expect
func NewRequest() *Request {
	return &Request{
		Interactive: true,
	}
}
