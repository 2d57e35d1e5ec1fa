// Package ledger records which requests of a batch run have completed so an
// interrupted run can resume without re-issuing them.
//
// Entries only ever go from absent to done. The ledger is written back after
// every mark, so a crash loses at most the request that was in flight.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
)

// Store persists the ledger mapping.
type Store interface {
	// Load returns the persisted entries. Unreadable data yields an empty map and the cause.
	Load(ctx context.Context) (map[string]bool, error)
	// Persist writes the full mapping.
	Persist(ctx context.Context, entries map[string]bool) error
	Close() error
}

// KeyMode selects what identifies a unit of work.
type KeyMode string

const (
	// KeyData keys on the derived request data: two records producing the same
	// payload are one unit of work.
	KeyData KeyMode = "data"
	// KeyRecord keys on the record position plus its request data.
	KeyRecord KeyMode = "record"
)

// ParseKeyMode validates a key mode name; empty means KeyData.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyData:
		return KeyData, nil
	case KeyRecord:
		return KeyRecord, nil
	}
	return "", fmt.Errorf("unknown ledger key mode %q (use data or record)", s)
}

// Key returns the ledger key for the record at index with the given request data.
func (m KeyMode) Key(index int, data string) string {
	if m == KeyRecord {
		return fmt.Sprintf("%d:%s", index, data)
	}
	return data
}

type Ledger struct {
	entries map[string]bool
	store   Store
	path    string
}

// Open loads the ledger at path. An empty path gives an in-memory ledger that
// never persists. A path prefixed with "sqlite:" or ending in .db, .sqlite or
// .sqlite3 uses SQLite; anything else is a JSON file. Unreadable content is
// reported to sink and treated as an empty ledger. An existing SQLite file that
// is not a usable database is moved to <file>.corrupt and recreated; only a
// store that cannot be created at all is an error.
func Open(ctx context.Context, path string, sink event.Sink) (*Ledger, error) {
	if sink == nil {
		sink = event.Nop()
	}
	l := &Ledger{entries: make(map[string]bool), path: path}
	if path == "" {
		return l, nil
	}

	store, err := openStore(path, sink)
	if err != nil {
		return nil, err
	}
	l.store = store
	l.load(ctx, sink)
	return l, nil
}

// OpenReadOnly loads the ledger at path without creating, repairing or
// writing anything. A missing ledger reads as empty. The result never persists.
func OpenReadOnly(ctx context.Context, path string, sink event.Sink) (*Ledger, error) {
	if sink == nil {
		sink = event.Nop()
	}
	l := &Ledger{entries: make(map[string]bool), path: path}
	if path == "" {
		return l, nil
	}

	dsn, isSQLite := sqliteDSN(path)
	if !isSQLite {
		entries, err := NewJSONStore(path).Load(ctx)
		if err != nil {
			event.Warn(sink, fmt.Sprintf("ledger %s unreadable, treating as empty", path), err)
		}
		l.add(entries)
		return l, nil
	}

	if _, err := os.Stat(sqliteFile(dsn)); err != nil {
		return l, nil
	}
	store, err := openSQLiteStore(readOnlyDSN(dsn), false)
	if err != nil {
		event.Warn(sink, fmt.Sprintf("ledger %s unreadable, treating as empty", path), err)
		return l, nil
	}
	defer store.Close()

	entries, err := store.Load(ctx)
	if err != nil {
		event.Warn(sink, fmt.Sprintf("ledger %s unreadable, treating as empty", path), err)
	}
	l.add(entries)
	return l, nil
}

func (l *Ledger) load(ctx context.Context, sink event.Sink) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		event.Warn(sink, fmt.Sprintf("ledger %s unreadable, starting fresh", l.path), err)
	}
	l.add(entries)
}

func (l *Ledger) add(entries map[string]bool) {
	for k, done := range entries {
		if done {
			l.entries[k] = true
		}
	}
}

// sqliteDSN reports whether path names a SQLite ledger and returns its data source.
func sqliteDSN(path string) (string, bool) {
	if dsn, ok := strings.CutPrefix(path, "sqlite://"); ok {
		return dsn, true
	}
	if dsn, ok := strings.CutPrefix(path, "sqlite:"); ok {
		return dsn, true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return path, true
	}
	return "", false
}

// sqliteFile strips the URI scheme and query from dsn, leaving the file path.
func sqliteFile(dsn string) string {
	file := strings.TrimPrefix(dsn, "file:")
	file, _, _ = strings.Cut(file, "?")
	return file
}

func readOnlyDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}

func openStore(path string, sink event.Sink) (Store, error) {
	dsn, ok := sqliteDSN(path)
	if !ok {
		return NewJSONStore(path), nil
	}

	store, err := OpenSQLiteStore(dsn)
	if err == nil {
		return store, nil
	}
	file := sqliteFile(dsn)
	if info, statErr := os.Stat(file); statErr != nil || info.IsDir() {
		return nil, err
	}

	aside := file + ".corrupt"
	event.Warn(sink, fmt.Sprintf("ledger %s unreadable, moved to %s and starting fresh", path, aside), err)
	if renameErr := os.Rename(file, aside); renameErr != nil {
		return nil, fmt.Errorf("moving unreadable ledger aside: %w", renameErr)
	}
	return OpenSQLiteStore(dsn)
}

// Has reports whether key is marked done.
func (l *Ledger) Has(key string) bool {
	return l.entries[key]
}

// Mark records key as done in memory.
func (l *Ledger) Mark(key string) {
	l.entries[key] = true
}

// Persist writes the whole mapping. Without a backing store it does nothing.
func (l *Ledger) Persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Persist(ctx, l.entries); err != nil {
		return fmt.Errorf("persisting ledger %s: %w", l.path, err)
	}
	return nil
}

// MarkAndPersist marks key and immediately writes the ledger back.
func (l *Ledger) MarkAndPersist(ctx context.Context, key string) error {
	l.Mark(key)
	return l.Persist(ctx)
}

// Len returns the number of completed entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Persistent reports whether the ledger is backed by storage.
func (l *Ledger) Persistent() bool {
	return l.store != nil
}

func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
