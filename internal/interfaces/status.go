package interfaces

import "time"

// SubsystemStatus is one subsystem's entry in the status report
type SubsystemStatus struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	State   string         `json:"state"`
	Enabled bool           `json:"enabled"`
	Summary string         `json:"summary"`
	Config  map[string]any `json:"config"`
}

// StatusData contains all variables available to status templates
type StatusData struct {
	Now        time.Time         `json:"now"`
	Fullscreen bool              `json:"fullscreen"`
	ConfigPath string            `json:"config_path"`
	Items      []SubsystemStatus `json:"items"`
}

// StatusRenderer renders the status report from live handle state
type StatusRenderer interface {
	// Render renders data with the builtin one-line or fullscreen template,
	// or with a custom template file when configured
	Render(data StatusData) (string, error)
}
