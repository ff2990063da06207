// Package objectdb is a small embedded object database: named, versioned
// SQLite files holding JSON objects in integer-keyed collections.
//
// A database is opened by name and version. Opening with a version higher
// than the stored one runs a single upgrade transaction that creates every
// collection the schema declares and the file does not have yet.
package objectdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// DefaultBusyTimeout bounds how long sqlite waits on a lock held by another process.
const DefaultBusyTimeout = 5 * time.Second

// StoreSpec declares one object collection.
type StoreSpec struct {
	Name string
	// KeyPath names the JSON field holding the key. Empty means keys are
	// kept out of line and must be generated.
	KeyPath string
	// AutoIncrement assigns increasing keys to objects added without one.
	AutoIncrement bool
}

// Schema is the name, version and collections of one database.
// Every context opening the same database must use the same name and version.
type Schema struct {
	Name    string
	Version int
	Stores  []StoreSpec
}

// Options configures where and how databases are opened.
type Options struct {
	Dir         string        // directory holding <name>.db files
	Driver      string        // DriverPure (default) or DriverCgo
	BusyTimeout time.Duration // defaults to DefaultBusyTimeout
}

// DB is an open database handle. It is safe for concurrent use.
type DB struct {
	sql     *sql.DB
	name    string
	path    string
	version int

	mu     sync.RWMutex
	stores map[string]StoreSpec
}

var safeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if s.Version < 1 {
		return fmt.Errorf("schema %s: version must be >= 1, got %d", s.Name, s.Version)
	}
	seen := make(map[string]bool, len(s.Stores))
	for _, st := range s.Stores {
		if st.Name == "" {
			return fmt.Errorf("schema %s: store name is required", s.Name)
		}
		if seen[st.Name] {
			return fmt.Errorf("schema %s: duplicate store %q", s.Name, st.Name)
		}
		if st.KeyPath == "" && !st.AutoIncrement {
			return fmt.Errorf("schema %s: store %q needs a key path or auto increment", s.Name, st.Name)
		}
		seen[st.Name] = true
	}
	return nil
}

// Path returns the file a database name maps to inside dir.
func Path(dir, name string) string {
	return filepath.Join(dir, safeName.ReplaceAllString(name, "_")+".db")
}

// Open connects to the database named by the schema, creating and upgrading
// it as needed.
//
// Opens of the same file are serialized inside the process: a second opener
// waits until the first open (and its upgrade) has finished. If ctx ends
// first, Open fails with ErrBlocked. Close takes the same lock. Across
// processes sqlite's busy timeout applies and a lock timeout also surfaces
// as ErrBlocked.
func Open(ctx context.Context, opts Options, schema Schema) (*DB, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}

	driver := opts.Driver
	if driver == "" {
		driver = DriverPure
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	path := Path(dir, schema.Name)

	release, err := openLocks.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	defer release()

	db, err := sql.Open(driver, dsn(driver, path, busy))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", schema.Name, err)
	}

	// One connection: sqlite has a single writer and pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classify(fmt.Errorf("failed to connect to database %s: %w", schema.Name, err))
	}

	if err := applyPragmas(ctx, db, busy); err != nil {
		_ = db.Close()
		return nil, classify(err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, classify(fmt.Errorf("failed to apply schema: %w", err))
	}

	if err := upgrade(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	stores, err := loadStores(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{
		sql:     db,
		name:    schema.Name,
		path:    path,
		version: schema.Version,
		stores:  stores,
	}, nil
}

// Close releases the underlying connection. It holds the file's open lock
// so the final WAL checkpoint never races a new opener in this process.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	release, err := openLocks.acquire(context.Background(), db.path)
	if err != nil {
		return err
	}
	defer release()
	return db.sql.Close()
}

// Name returns the database name.
func (db *DB) Name() string { return db.name }

// Version returns the version the database was opened with.
func (db *DB) Version() int { return db.version }

// Path returns the backing file.
func (db *DB) Path() string { return db.path }

// StoreNames lists the collections, sorted.
func (db *DB) StoreNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.stores))
	for name := range db.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping checks the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

func (db *DB) spec(name string) (StoreSpec, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.stores[name]
	return s, ok
}

func applyPragmas(ctx context.Context, db *sql.DB, busy time.Duration) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// upgrade runs the one-time upgrade step when the requested version is newer.
// It takes the write lock up front so two processes never both upgrade.
func upgrade(ctx context.Context, db *sql.DB, schema Schema) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return classify(fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return classify(fmt.Errorf("failed to begin upgrade: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var current int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}

	if schema.Version < current {
		return fmt.Errorf("%w: %s is at v%d, requested v%d", ErrVersion, schema.Name, current, schema.Version)
	}

	if schema.Version > current {
		for _, st := range schema.Stores {
			_, err := conn.ExecContext(ctx,
				`INSERT INTO object_stores (name, key_path, auto_increment) VALUES (?, ?, ?)
				 ON CONFLICT(name) DO NOTHING`,
				st.Name, st.KeyPath, boolToInt(st.AutoIncrement))
			if err != nil {
				return fmt.Errorf("failed to create store %s: %w", st.Name, err)
			}
		}
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schema.Version)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return classify(fmt.Errorf("failed to commit upgrade: %w", err))
	}
	committed = true
	return nil
}

func loadStores(ctx context.Context, db *sql.DB) (map[string]StoreSpec, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, key_path, auto_increment FROM object_stores")
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stores := make(map[string]StoreSpec)
	for rows.Next() {
		var (
			spec StoreSpec
			auto int
		)
		if err := rows.Scan(&spec.Name, &spec.KeyPath, &auto); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		spec.AutoIncrement = auto != 0
		stores[spec.Name] = spec
	}
	return stores, rows.Err()
}

func classify(err error) error {
	if isBusy(err) {
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// lockTable serializes opens per database file.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

var openLocks = &lockTable{locks: make(map[string]chan struct{})}

func (t *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	ch, ok := t.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[key] = ch
	}
	t.mu.Unlock()

	release := func() { <-ch }

	select {
	case ch <- struct{}{}:
		return release, nil
	default:
	}

	select {
	case ch <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for %s: %v", ErrBlocked, filepath.Base(key), ctx.Err())
	}
}
