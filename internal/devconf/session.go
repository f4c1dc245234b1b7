package devconf

import (
	"github.com/google/uuid"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// Session is one open editing pass over the configuration tree. All edits
// land in a private working copy; the tree the session was opened on is
// never touched.
type Session struct {
	id      string
	base    interfaces.Tree
	working interfaces.Tree
	closed  bool
}

// Begin opens an editing session over tree. Both the baseline and the
// working copy are deep copies, so neither later edits nor caller-side
// mutation can leak across.
func Begin(tree interfaces.Tree) (*Session, error) {
	base, err := tree.Clone()
	if err != nil {
		return nil, err
	}
	working, err := tree.Clone()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:      uuid.NewString(),
		base:    base,
		working: working,
	}, nil
}

// ID returns the session identifier used in errors and logs.
func (s *Session) ID() string {
	return s.id
}

// Closed reports whether the session was already committed or cancelled.
func (s *Session) Closed() bool {
	return s.closed
}

// ApplyEdit stages value under subsystem/key in the working copy. Only the
// managed subsystems are editable; unrecognized sections of the file are
// preserved but off limits.
func (s *Session) ApplyEdit(subsystem, key string, value any) error {
	if s.closed {
		return NewSessionClosedError(s.id)
	}
	if !interfaces.KnownSubsystem(subsystem) {
		return NewUnknownSubsystemError(subsystem)
	}
	section, ok := s.working[subsystem]
	if !ok {
		section = interfaces.SubsystemConfig{}
		s.working[subsystem] = section
	}
	section[key] = canonicalValue(value)
	return nil
}

// Working returns a deep copy of the staged tree for display. Mutating the
// result does not affect the session.
func (s *Session) Working() (interfaces.Tree, error) {
	if s.closed {
		return nil, NewSessionClosedError(s.id)
	}
	return s.working.Clone()
}

// Commit closes the session and returns the staged tree with every
// subsystem and key of the baseline restored fill-missing-only. Whatever
// existed when the session began is still present afterwards, staged edits
// always win over restored baseline values.
func (s *Session) Commit() (interfaces.Tree, error) {
	if s.closed {
		return nil, NewSessionClosedError(s.id)
	}
	s.closed = true

	merged := s.working
	s.working = nil
	for name, baseSection := range s.base {
		section, ok := merged[name]
		if !ok {
			merged[name] = baseSection
			continue
		}
		fillMissing(section, baseSection)
	}
	s.base = nil
	return merged, nil
}

// Cancel closes the session and discards every staged edit.
func (s *Session) Cancel() error {
	if s.closed {
		return NewSessionClosedError(s.id)
	}
	s.closed = true
	s.working = nil
	s.base = nil
	return nil
}
