// Package broadcast fans configuration changes out to the registered
// subsystem handles. Every subsystem gets its own outcome; one subsystem
// failing never stops the others.
package broadcast

import (
	"sync"

	"github.com/spf13/cast"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// Registry holds the subsystem handles in registration order and applies
// configuration trees to them.
type Registry struct {
	mu      sync.Mutex
	handles map[string]interfaces.Handle
	order   []string
	log     logging.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to the
// process default.
func NewRegistry(log logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	return &Registry{
		handles: make(map[string]interfaces.Handle),
		log:     log,
	}
}

// Register adds a handle under name. Registration order is the order Apply
// and Cleanup walk the subsystems in. Registering the same name twice is an
// error.
func (r *Registry) Register(name string, handle interfaces.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[name]; exists {
		return devconf.NewDuplicateRegistrationError(name)
	}
	r.handles[name] = handle
	r.order = append(r.order, name)
	return nil
}

// Handles returns the registered handles in registration order.
func (r *Registry) Handles() []interfaces.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]interfaces.Handle, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handles[name])
	}
	return out
}

// Apply walks the registered subsystems in order and reinitializes each one
// from its section of tree. A subsystem with enabled=false is torn down if
// it was active and reported as skipped. A handle error marks only that
// subsystem as failed; the walk always continues.
func (r *Registry) Apply(tree interfaces.Tree) map[string]interfaces.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make(map[string]interfaces.Result, len(r.order))
	for _, name := range r.order {
		handle := r.handles[name]
		section, ok := tree[name]
		if !ok {
			section = interfaces.SubsystemConfig{}
		}
		results[name] = r.applyOne(name, handle, section)
	}
	return results
}

func (r *Registry) applyOne(name string, handle interfaces.Handle, section interfaces.SubsystemConfig) interfaces.Result {
	// enabled defaults to true: sections like logging carry no such flag
	enabled := true
	if raw, ok := section["enabled"]; ok {
		enabled = cast.ToBool(raw)
	}

	if !enabled {
		if handle.State() == interfaces.StateActive {
			if err := handle.Cleanup(); err != nil {
				r.log.Error("subsystem teardown failed", "subsystem", name, "error", err)
				return interfaces.Result{Outcome: interfaces.OutcomeFailed, Reason: err.Error()}
			}
		}
		r.log.Debug("subsystem skipped", "subsystem", name)
		return interfaces.Result{Outcome: interfaces.OutcomeSkipped, Reason: "disabled"}
	}

	if err := handle.Reinitialize(section); err != nil {
		r.log.Error("subsystem reinitialization failed", "subsystem", name, "error", err)
		return interfaces.Result{Outcome: interfaces.OutcomeFailed, Reason: err.Error()}
	}
	r.log.Info("subsystem reinitialized", "subsystem", name)
	return interfaces.Result{Outcome: interfaces.OutcomeReinitialized}
}

// Cleanup tears every handle down in registration order and collects the
// per-subsystem errors. The map is empty when everything shut down cleanly.
func (r *Registry) Cleanup() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make(map[string]error)
	for _, name := range r.order {
		if err := r.handles[name].Cleanup(); err != nil {
			r.log.Error("subsystem cleanup failed", "subsystem", name, "error", err)
			failures[name] = err
		}
	}
	return failures
}
