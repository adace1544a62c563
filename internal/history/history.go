// Package history keeps a small local record of opened indexes and
// executed queries. Everything here is best effort: a broken history
// database degrades the experience, never the session.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/errors"
	"github.com/seekerlabs/indexscope/internal/session"
)

// defaultKeep bounds how many entries each table retains.
const defaultKeep = 100

const schema = `
CREATE TABLE IF NOT EXISTS recent_indexes (
	path      TEXT PRIMARY KEY,
	dir_impl  TEXT NOT NULL,
	read_only INTEGER NOT NULL,
	opened_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS recent_queries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	raw         TEXT NOT NULL,
	field       TEXT NOT NULL,
	total_hits  INTEGER NOT NULL,
	executed_at TIMESTAMP NOT NULL
);
`

// IndexEntry is one remembered index open.
type IndexEntry struct {
	Path     string
	DirImpl  string
	ReadOnly bool
	OpenedAt time.Time
}

// QueryEntry is one remembered query execution.
type QueryEntry struct {
	Raw        string
	Field      string
	TotalHits  uint64
	ExecutedAt time.Time
}

// Store persists history in a local SQLite database.
type Store struct {
	db   *sql.DB
	log  *slog.Logger
	keep int
	sub  *bus.Subscription
}

// Open creates or opens the history database at path, creating parent
// directories as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage,
			fmt.Sprintf("create history directory for %s", path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage,
			fmt.Sprintf("open history database %s", path), err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.New(errors.ErrCodeHistoryStorage,
			fmt.Sprintf("initialize history database %s", path), err)
	}

	return &Store{db: db, log: logger, keep: defaultKeep}, nil
}

// DefaultPath returns the standard history database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "indexscope", "history.db")
	}
	return filepath.Join(home, ".indexscope", "history.db")
}

// Attach subscribes the store to session events so index opens get
// recorded automatically. Recording failures are logged, not returned.
func (s *Store) Attach(b *bus.Bus) {
	s.sub = bus.Subscribe(b, func(ev session.Opened) {
		if err := s.RecordOpen(ev.Path, ev.DirImpl, ev.ReadOnly); err != nil {
			s.log.Warn("record index open", "path", ev.Path, "error", err)
		}
	})
}

// Close detaches from the bus and closes the database.
func (s *Store) Close() error {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	if err := s.db.Close(); err != nil {
		return errors.New(errors.ErrCodeHistoryStorage, "close history database", err)
	}
	return nil
}

// RecordOpen remembers an index open, replacing any earlier entry for
// the same path.
func (s *Store) RecordOpen(path, dirImpl string, readOnly bool) error {
	_, err := s.db.Exec(`
		INSERT INTO recent_indexes (path, dir_impl, read_only, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			dir_impl = excluded.dir_impl,
			read_only = excluded.read_only,
			opened_at = excluded.opened_at`,
		path, dirImpl, boolInt(readOnly), time.Now().UTC())
	if err != nil {
		return errors.New(errors.ErrCodeHistoryStorage, "record index open", err)
	}
	return s.prune("recent_indexes", "opened_at")
}

// RecordQuery remembers an executed query.
func (s *Store) RecordQuery(raw, field string, totalHits uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO recent_queries (raw, field, total_hits, executed_at)
		VALUES (?, ?, ?, ?)`,
		raw, field, totalHits, time.Now().UTC())
	if err != nil {
		return errors.New(errors.ErrCodeHistoryStorage, "record query", err)
	}
	return s.prune("recent_queries", "executed_at")
}

// RecentIndexes lists remembered opens, most recent first.
func (s *Store) RecentIndexes(limit int) ([]IndexEntry, error) {
	if limit <= 0 {
		limit = s.keep
	}
	rows, err := s.db.Query(`
		SELECT path, dir_impl, read_only, opened_at
		FROM recent_indexes ORDER BY opened_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage, "list recent indexes", err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var ro int
		if err := rows.Scan(&e.Path, &e.DirImpl, &ro, &e.OpenedAt); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryStorage, "scan recent index", err)
		}
		e.ReadOnly = ro != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage, "list recent indexes", err)
	}
	return entries, nil
}

// RecentQueries lists remembered queries, most recent first.
func (s *Store) RecentQueries(limit int) ([]QueryEntry, error) {
	if limit <= 0 {
		limit = s.keep
	}
	rows, err := s.db.Query(`
		SELECT raw, field, total_hits, executed_at
		FROM recent_queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage, "list recent queries", err)
	}
	defer rows.Close()

	var entries []QueryEntry
	for rows.Next() {
		var e QueryEntry
		if err := rows.Scan(&e.Raw, &e.Field, &e.TotalHits, &e.ExecutedAt); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryStorage, "scan recent query", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeHistoryStorage, "list recent queries", err)
	}
	return entries, nil
}

// prune keeps each table bounded so the database never grows past a few
// screens of history.
func (s *Store) prune(table, orderCol string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE rowid NOT IN (
			SELECT rowid FROM %s ORDER BY %s DESC LIMIT ?
		)`, table, table, orderCol)
	if _, err := s.db.Exec(query, s.keep); err != nil {
		return errors.New(errors.ErrCodeHistoryStorage, "prune history", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
