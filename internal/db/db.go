package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// MemoryLocation is the reserved location for a private, non-persistent
// store. Every NewDB(MemoryLocation) call gets its own empty database.
const MemoryLocation = ":memory:"

var (
	// ErrStoreUnavailable is returned when the store location cannot be
	// opened, created or migrated.
	ErrStoreUnavailable = errors.New("trajectory store unavailable")
	// ErrStoreClosed is returned by every operation on a closed handle.
	ErrStoreClosed = errors.New("trajectory store closed")
	// ErrRecordNotFound is returned by Get for an unknown id.
	ErrRecordNotFound = errors.New("trajectory not found")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pragmas applied to every pooled connection through the DSN. journal_mode
// only applies to file stores.
var pragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(1)",
}

// DB is a handle on one trajectory store. Appends through a handle are
// serialised; queries may run concurrently.
type DB struct {
	*sql.DB
	location string

	mu     sync.RWMutex // guards closed; held for reading by every operation
	closed bool

	writeMu sync.Mutex
}

// NewDB opens the store at location, creating it if needed, and brings the
// schema up to date. Opening an existing store never alters its records.
func NewDB(location string) (*DB, error) {
	db, err := OpenDB(location)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.DB.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, location, err)
	}
	return db, nil
}

// OpenDB opens a connection to the store without touching the schema. It is
// used by the migrate command; everything else should use NewDB.
func OpenDB(location string) (*DB, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrStoreUnavailable)
	}

	sqlDB, err := sql.Open("sqlite", dsn(location))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, location, err)
	}
	if location == MemoryLocation {
		// each connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, location, err)
	}

	return &DB{DB: sqlDB, location: location}, nil
}

func dsn(location string) string {
	params := make([]string, 0, len(pragmas)+1)
	if location != MemoryLocation {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + strings.Join(params, "&")
}

// Location returns the location the store was opened with.
func (db *DB) Location() string {
	return db.location
}

// Close releases the underlying connections. It waits for in-flight
// operations on this handle to finish.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrStoreClosed
	}
	db.closed = true
	return db.DB.Close()
}

// acquire marks the start of an operation. The returned func must be called
// when the operation is done.
func (db *DB) acquire() (func(), error) {
	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	return db.mu.RUnlock, nil
}
