package interfaces

// Outcome classifies what a broadcast did for one subsystem
type Outcome int

const (
	// OutcomeReinitialized means the handle tore down and came back up on
	// the new configuration
	OutcomeReinitialized Outcome = iota

	// OutcomeSkipped means the subsystem is disabled in the configuration
	OutcomeSkipped

	// OutcomeFailed means re-initialization errored; the reason carries the
	// handle's error
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeReinitialized:
		return "reinitialized"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the per-subsystem outcome of one broadcast
type Result struct {
	Outcome Outcome
	Reason  string
}

// Broadcaster propagates a committed configuration tree to the registered
// subsystem handles
type Broadcaster interface {
	// Register records handle under a subsystem name
	Register(name string, handle Handle) error

	// Apply pushes each registered subsystem's config to its handle and
	// reports one Result per attempted subsystem; a failure for one never
	// prevents the others from being attempted
	Apply(tree Tree) map[string]Result

	// Handles returns the registered handles in registration order
	Handles() []Handle

	// Cleanup tears every handle down in registration order
	Cleanup() map[string]error
}
