package interfaces

// State tracks a subsystem handle across its lifetime. A handle starts
// Uninitialized, becomes Active on a successful (re)initialization, returns
// to Uninitialized on cleanup, and is Failed after an attempt that errored
// until the next apply retries it.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is the live runtime instance of one subsystem. A handle keeps its
// own copy of the SubsystemConfig it was initialized with and never reaches
// back into the live tree; the broadcast layer looks handles up by name and
// pushes new configuration to them.
type Handle interface {
	// Name returns the subsystem name the handle serves
	Name() string

	// State returns the current lifecycle state
	State() State

	// Initialize brings the subsystem up from Uninitialized
	Initialize(cfg SubsystemConfig) error

	// ExportConfig returns the handle's own copy of its configuration,
	// unrecognized keys included
	ExportConfig() SubsystemConfig

	// Reinitialize tears down any live resource and establishes a new one
	// reflecting cfg, rather than merely relabeling displayed state
	Reinitialize(cfg SubsystemConfig) error

	// Cleanup releases whatever the handle holds
	Cleanup() error
}

// Rescanner is implemented by handles that can discover candidate devices
type Rescanner interface {
	Rescan() ([]string, error)
}

// Describer is implemented by handles that can summarize their live state
// for the status report
type Describer interface {
	Describe() string
}
