package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/errors"
)

// ManagerConfig configures a session manager. Bus is required; everything
// else has working defaults.
type ManagerConfig struct {
	Bus    *bus.Bus
	Logger *slog.Logger

	// WatchChanges starts a filesystem watcher on each opened on-disk
	// index and publishes IndexChanged when it mutates.
	WatchChanges  bool
	WatchDebounce time.Duration
}

// Manager owns at most one open index at a time. All state transitions
// are serialized under its mutex and announced on the event bus.
type Manager struct {
	bus           *bus.Bus
	log           *slog.Logger
	watchChanges  bool
	watchDebounce time.Duration

	mu         sync.Mutex
	path       string
	dirImpl    string
	readOnly   bool
	reader     *Reader
	lock       *flock.Flock
	watcher    *changeWatcher
	generation uint64
}

// NewManager builds a manager publishing on the given bus.
func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		bus:           cfg.Bus,
		log:           log,
		watchChanges:  cfg.WatchChanges,
		watchDebounce: cfg.WatchDebounce,
	}
}

// Open opens the index at path using the named directory implementation.
// An already open index is closed first, so Open doubles as "switch to
// another index". Write-mode opens take an advisory lock next to the
// index so two writers never share it.
func (m *Manager) Open(ctx context.Context, path, dirImpl string, readOnly bool) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Any open session goes first, even when the new open fails: a
	// failed Open leaves the manager closed, never half-switched.
	if m.reader != nil {
		m.closeLocked()
	}

	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "index path must not be blank", nil)
	}

	dir, err := LookupDirectory(dirImpl)
	if err != nil {
		return nil, err
	}
	if err := dir.Validate(path); err != nil {
		return nil, err
	}

	var lk *flock.Flock
	if !readOnly && dirImpl != DirMem {
		lk = flock.New(path + ".lock")
		held, err := lk.TryLock()
		if err != nil {
			return nil, errors.New(errors.ErrCodeIndexLocked,
				fmt.Sprintf("acquire write lock for %s", path), err)
		}
		if !held {
			return nil, errors.New(errors.ErrCodeIndexLocked,
				fmt.Sprintf("index %s is locked by another writer", path), nil).
				WithSuggestion("open the index read-only or stop the other writer")
		}
	}

	idx, err := dir.Open(path, readOnly)
	if err != nil {
		if lk != nil {
			lk.Unlock()
		}
		return nil, err
	}

	m.generation++
	reader := &Reader{idx: idx, path: path, generation: m.generation}

	m.path = path
	m.dirImpl = dirImpl
	m.readOnly = readOnly
	m.reader = reader
	m.lock = lk

	if m.watchChanges && dirImpl != DirMem {
		w, werr := newChangeWatcher(path, m.bus, m.log, m.watchDebounce)
		if werr != nil {
			m.log.Warn("index change watcher unavailable", "path", path, "error", werr)
		} else {
			m.watcher = w
		}
	}

	m.log.Info("index opened",
		"path", path, "dir", dirImpl, "read_only", readOnly, "generation", reader.generation)
	bus.Publish(m.bus, Opened{Path: path, DirImpl: dirImpl, ReadOnly: readOnly, Reader: reader})
	return reader, nil
}

// Close closes the current index. With nothing open it is a no-op, so
// callers can Close unconditionally.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reader == nil {
		return nil
	}
	m.closeLocked()
	return nil
}

// closeLocked tears down the open session. Callers hold m.mu.
func (m *Manager) closeLocked() {
	path := m.path

	if m.watcher != nil {
		m.watcher.stop()
		m.watcher = nil
	}
	if err := m.reader.close(); err != nil {
		m.log.Warn("close index", "path", path, "error", err)
	}
	if m.lock != nil {
		if err := m.lock.Unlock(); err != nil {
			m.log.Warn("release write lock", "path", path, "error", err)
		}
		m.lock = nil
	}

	// path, dirImpl and readOnly survive close so the session can be
	// reopened; only the next Open replaces them.
	m.reader = nil

	m.log.Info("index closed", "path", path)
	bus.Publish(m.bus, Closed{Path: path})
}

// Reopen closes and reopens the current index in the same mode. With
// nothing open it falls back to the most recently opened index; having
// never opened one is a lifecycle error.
func (m *Manager) Reopen(ctx context.Context) (*Reader, error) {
	path, dirImpl, readOnly, err := m.reopenTarget()
	if err != nil {
		return nil, err
	}
	return m.Open(ctx, path, dirImpl, readOnly)
}

// ReopenToggled reopens like Reopen but flips the read-only mode, which
// is how a read-only browse session upgrades to a writable one and back.
func (m *Manager) ReopenToggled(ctx context.Context) (*Reader, error) {
	path, dirImpl, readOnly, err := m.reopenTarget()
	if err != nil {
		return nil, err
	}
	return m.Open(ctx, path, dirImpl, !readOnly)
}

func (m *Manager) reopenTarget() (path, dirImpl string, readOnly bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return "", "", false, errors.LifecycleError(errors.ErrCodeNothingToReopen,
			"no index has been opened in this session")
	}
	return m.path, m.dirImpl, m.readOnly, nil
}

// IsOpen reports whether an index is currently open.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader != nil
}

// IsReadOnly reports the mode of the open index. False when closed.
func (m *Manager) IsReadOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader != nil && m.readOnly
}

// Path returns the most recently opened index path, or "" when no index
// has ever been opened. It survives Close; only Open replaces it.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Reader returns the current reader, or nil when closed.
func (m *Manager) Reader() *Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader
}
