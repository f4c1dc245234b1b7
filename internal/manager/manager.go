// Package manager coordinates the configuration store, persistence, editing
// sessions and the broadcast registry behind a single facade owning the
// live tree.
package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/broadcast"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/devconf"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// Manager owns the live configuration tree and the single open-session
// slot. Every entry point takes the mutex; the watch command re-enters
// from the fsnotify goroutine.
type Manager struct {
	mu sync.Mutex

	store       interfaces.ConfigStore
	persistence interfaces.ConfigPersistence
	broadcaster interfaces.Broadcaster
	log         logging.Logger

	path    string
	tree    interfaces.Tree
	session *devconf.Session
}

// New creates a manager with all required components wired. A nil fs means
// the real filesystem; a nil log means the process default logger.
func New(fs afero.Fs, log logging.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logging.Default()
	}
	store := devconf.NewStore()
	return &Manager{
		store:       store,
		persistence: devconf.NewPersistence(fs, store),
		broadcaster: broadcast.NewRegistry(log),
		log:         log,
		tree:        store.Defaults(),
	}
}

// ConfigPath returns the path of the currently loaded configuration file.
func (m *Manager) ConfigPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Load reads the configuration file at path and makes it the live tree.
// An absent file is not an error: the tool starts from validated defaults
// and the file appears on the first save. Parse errors surface unchanged.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(path)
}

// Reload re-reads the current configuration file. It refuses while an
// editing session is open, silently replacing the session's baseline would
// lose edits.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return devconf.NewSessionAlreadyOpenError(m.session.ID())
	}
	if m.path == "" {
		return fmt.Errorf("no configuration file loaded")
	}
	return m.loadLocked(m.path)
}

func (m *Manager) loadLocked(path string) error {
	if m.session != nil {
		return devconf.NewSessionAlreadyOpenError(m.session.ID())
	}

	tree, err := m.persistence.Read(path)
	if err != nil {
		if !errors.Is(err, devconf.ErrNotFound) {
			return err
		}
		m.log.Warn("configuration file not found, starting from defaults", "path", path)
		tree = m.store.Defaults()
	}

	m.path = path
	m.tree = tree
	return nil
}

// Current returns a deep copy of the live tree. Mutating the result never
// affects the manager.
func (m *Manager) Current() (interfaces.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Clone()
}

// BeginEdit opens an editing session over the live tree and returns its ID.
// Only one session may be open at a time.
func (m *Manager) BeginEdit() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return "", devconf.NewSessionAlreadyOpenError(m.session.ID())
	}

	session, err := devconf.Begin(m.tree)
	if err != nil {
		return "", fmt.Errorf("failed to open editing session: %w", err)
	}
	m.session = session
	m.log.Debug("editing session opened", "session", session.ID())
	return session.ID(), nil
}

// SessionID returns the open session's ID, if any.
func (m *Manager) SessionID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	return m.session.ID(), true
}

// ApplyEdit stages value under subsystem/key in the open session.
func (m *Manager) ApplyEdit(subsystem, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return devconf.NewNoSessionOpenError()
	}
	return m.session.ApplyEdit(subsystem, key, value)
}

// Working returns a deep copy of the open session's staged tree.
func (m *Manager) Working() (interfaces.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, devconf.NewNoSessionOpenError()
	}
	return m.session.Working()
}

// Commit closes the open session and installs the merged result as the
// live tree. Whatever existed when the session began is still present
// afterwards.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return devconf.NewNoSessionOpenError()
	}

	merged, err := m.session.Commit()
	m.session = nil
	if err != nil {
		return err
	}

	m.tree = merged
	m.log.Debug("editing session committed")
	return nil
}

// Cancel closes the open session and discards its staged edits.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return devconf.NewNoSessionOpenError()
	}

	err := m.session.Cancel()
	m.session = nil
	if err != nil {
		return err
	}

	m.log.Debug("editing session cancelled")
	return nil
}

// SetValue stages and commits a single edit as one transaction. It fails
// like BeginEdit when a session is already open.
func (m *Manager) SetValue(subsystem, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return devconf.NewSessionAlreadyOpenError(m.session.ID())
	}

	session, err := devconf.Begin(m.tree)
	if err != nil {
		return fmt.Errorf("failed to open editing session: %w", err)
	}
	if err := session.ApplyEdit(subsystem, key, value); err != nil {
		_ = session.Cancel()
		return err
	}

	merged, err := session.Commit()
	if err != nil {
		return err
	}
	m.tree = merged
	return nil
}

// Save writes the live tree to the loaded configuration file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return fmt.Errorf("no configuration file loaded")
	}
	return m.persistence.Write(m.path, m.tree)
}

// SaveAs writes the live tree to path and makes path the current file.
func (m *Manager) SaveAs(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persistence.Write(path, m.tree); err != nil {
		return err
	}
	m.path = path
	return nil
}

// WriteDefaults writes a pristine defaults tree to path without touching
// the live tree. Used by the init command.
func (m *Manager) WriteDefaults(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistence.Write(path, m.store.Defaults())
}

// Register records handle under a subsystem name in the broadcast registry.
func (m *Manager) Register(name string, handle interfaces.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcaster.Register(name, handle)
}

// Handles returns the registered handles in registration order.
func (m *Manager) Handles() []interfaces.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcaster.Handles()
}

// Broadcast pushes the live tree to every registered handle and reports
// the per-subsystem outcomes. Handles receive a deep copy.
func (m *Manager) Broadcast() (map[string]interfaces.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tree, err := m.tree.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot configuration: %w", err)
	}
	return m.broadcaster.Apply(tree), nil
}

// Cleanup tears every registered handle down in registration order.
func (m *Manager) Cleanup() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcaster.Cleanup()
}
