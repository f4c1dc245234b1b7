// Package status renders the configuration status report, the CLI analog
// of the control center's status bar and main window.
package status

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/subsystem"
)

// builtinBarTemplate is the one-line status bar.
const builtinBarTemplate = `{{ .Now.Format "15:04:05" }}{{ range .Items }} | {{ .Summary }}{{ end }}`

// builtinFullTemplate is the multi-line report behind --fullscreen.
const builtinFullTemplate = `Hardware Control Center
Config: {{ .ConfigPath }}
Time:   {{ .Now.Format "2006-01-02 15:04:05" }}

{{ range .Items }}{{ $item := . -}}
[{{ .Label }}] {{ .State }}{{ if not .Enabled }} (disabled){{ end }}
{{ range $key := sortAlpha (keys $item.Config) }}    {{ $key }} = {{ scalar (index $item.Config $key) }}
{{ end }}{{ end }}`

// Renderer implements the StatusRenderer interface. With an empty template
// path it uses the builtin bar or fullscreen template; otherwise it loads
// the template file and executes it with the same function map.
type Renderer struct {
	fs           afero.Fs
	templatePath string
}

// NewRenderer creates a status renderer. A nil fs means the real OS
// filesystem.
func NewRenderer(fs afero.Fs, templatePath string) *Renderer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Renderer{fs: fs, templatePath: templatePath}
}

// Build assembles the status report data from a configuration tree and the
// live handles, if any. Handles contribute their lifecycle state, and an
// active handle's own summary replaces the tree-derived one.
func Build(tree interfaces.Tree, handles []interfaces.Handle, configPath string, fullscreen bool) interfaces.StatusData {
	byName := make(map[string]interfaces.Handle, len(handles))
	for _, h := range handles {
		byName[h.Name()] = h
	}

	data := interfaces.StatusData{
		Now:        time.Now(),
		Fullscreen: fullscreen,
		ConfigPath: configPath,
	}
	for _, name := range tree.Names() {
		cfg := tree[name]
		item := interfaces.SubsystemStatus{
			Name:    name,
			Label:   subsystem.Label(name),
			State:   interfaces.StateUninitialized.String(),
			Enabled: enabledIn(cfg),
			Summary: summarize(name, cfg),
			Config:  map[string]any(cfg),
		}
		if h, ok := byName[name]; ok {
			item.State = h.State().String()
			if d, isDescriber := h.(interfaces.Describer); isDescriber && h.State() == interfaces.StateActive {
				item.Summary = d.Describe()
			}
		}
		data.Items = append(data.Items, item)
	}
	return data
}

// Render executes the configured template with the provided data.
func (r *Renderer) Render(data interfaces.StatusData) (string, error) {
	tmpl, err := r.load(data.Fullscreen)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute status template: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) load(fullscreen bool) (*template.Template, error) {
	name := "status"
	content := builtinBarTemplate
	if fullscreen {
		content = builtinFullTemplate
	}

	if r.templatePath != "" {
		raw, err := afero.ReadFile(r.fs, r.templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", r.templatePath, err)
		}
		content = string(raw)
		name = filepath.Base(r.templatePath)
	}

	tmpl, err := template.New(name).Funcs(funcMap()).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// funcMap merges the sprig functions with the report helpers.
func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["mhz"] = mhz
	fm["onOff"] = onOff
	fm["scalar"] = scalar
	return fm
}

// mhz renders a Hz value in MHz the way the radio panels did
func mhz(v any) string {
	return fmt.Sprintf("%.3f MHz", float64(cast.ToInt64(v))/1e6)
}

// onOff renders a boolean the way the panels label it
func onOff(v any) string {
	if cast.ToBool(v) {
		return "on"
	}
	return "off"
}

// scalar renders any config value compactly
func scalar(v any) string {
	return cast.ToString(v)
}

func enabledIn(cfg interfaces.SubsystemConfig) bool {
	raw, ok := cfg["enabled"]
	if !ok {
		return true
	}
	return cast.ToBool(raw)
}

// summarize derives a subsystem's one-line summary from its configuration
// alone, used whenever no active handle can speak for itself.
func summarize(name string, cfg interfaces.SubsystemConfig) string {
	enabled := enabledIn(cfg)
	switch name {
	case "gps":
		if !enabled {
			return "GPS: off"
		}
		return fmt.Sprintf("GPS: %s @ %s", cast.ToString(cfg["device"]), cast.ToString(cfg["baud_rate"]))
	case "lora":
		if !enabled {
			return "LoRa: off"
		}
		summary := "LoRa: " + mhz(cfg["frequency"])
		if sf, ok := cfg["spreading_factor"]; ok {
			summary += " SF" + cast.ToString(sf)
		}
		return summary
	case "rtlsdr":
		if !enabled {
			return "RTL-SDR: off"
		}
		summary := "RTL-SDR: device " + cast.ToString(cfg["device_index"])
		if frequency, ok := cfg["frequency"]; ok {
			summary += " @ " + mhz(frequency)
		}
		return summary
	case "rtc":
		if !enabled {
			return "RTC: off"
		}
		return "RTC: " + cast.ToString(cfg["type"])
	case "usb":
		return "USB: " + onOff(enabled)
	case "logging":
		return fmt.Sprintf("Log: %s/%s", cast.ToString(cfg["level"]), cast.ToString(cfg["format"]))
	default:
		return subsystem.Label(name) + ": configured"
	}
}
