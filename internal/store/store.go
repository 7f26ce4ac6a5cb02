package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/layoutdb/internal/ids"
	"github.com/roach88/layoutdb/internal/layout"
)

//go:embed schema.sql
var schemaSQL string

// Supported database/sql driver names.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// Options configures Open. The zero value is usable.
type Options struct {
	// Driver selects the SQLite driver. Defaults to DriverCGO.
	Driver string

	// ProfileSerial is the default profileId for new item rows.
	ProfileSerial int64

	// IDs is the allocator to seed. A new one is created when nil.
	IDs *ids.Allocator

	// Now stamps the modified column. Defaults to time.Now.
	Now func() time.Time

	// Hooks receives the non-SQL side effects of migration steps.
	Hooks MigrationHooks

	chain *Chain
}

// Outcome describes what Open did to the schema.
type Outcome struct {
	From      int  // persisted version found on open
	To        int  // version after open
	Created   bool // database had no layout tables
	Recreated bool // tables were dropped and recreated
	Err       error
}

// Empty reports whether the store was left with no rows, so the caller
// should load a first-run layout.
func (o Outcome) Empty() bool {
	return o.Created || o.Recreated
}

// Store provides durable storage for the home-screen layout.
type Store struct {
	db      *sql.DB
	path    string
	ids     *ids.Allocator
	now     func() time.Time
	serial  int64
	hooks   MigrationHooks
	outcome Outcome
}

// Open creates or opens a SQLite database at the given path, brings the
// schema to CurrentVersion and seeds the id allocator.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// A migration failure is not an error: the store is recreated empty and
// the failure is reported in Outcome().Err.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPure {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		ids:    opts.IDs,
		now:    opts.Now,
		serial: opts.ProfileSerial,
		hooks:  opts.Hooks,
	}
	if s.ids == nil {
		s.ids = ids.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.hooks == nil {
		s.hooks = noHooks{}
	}

	chain := opts.chain
	if chain == nil {
		chain = DefaultChain()
	}

	outcome, err := s.migrate(ctx, chain)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	s.outcome = outcome

	if err := s.healTables(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.ids.Initialize(ctx, s); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ids: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// IDs returns the allocator seeded from this store.
func (s *Store) IDs() *ids.Allocator {
	return s.ids
}

// Outcome returns what Open did to the schema.
func (s *Store) Outcome() Outcome {
	return s.outcome
}

// ProfileSerial returns the default profile serial for new rows.
func (s *Store) ProfileSerial() int64 {
	return s.serial
}

// Version returns the persisted schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	return userVersion(ctx, s.db)
}

// MaxID returns the largest _id in table, or 0 when the table is empty.
func (s *Store) MaxID(ctx context.Context, table string) (int64, error) {
	return maxID(ctx, s.db, table)
}

// TableExists reports whether table is present in the database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, s.db, table)
}

// Recreate drops both tables and creates them empty at CurrentVersion.
// Both watermarks are reset once the transaction commits.
func (s *Store) Recreate(ctx context.Context) error {
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.recreate(ctx)
	})
	if err != nil {
		return err
	}
	s.ids.Reset(0, 0)
	return nil
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

// currentSchema returns the DDL with the default profile serial filled in.
func (s *Store) currentSchema() string {
	return strings.ReplaceAll(schemaSQL, "{{profile_serial}}", strconv.FormatInt(s.serial, 10))
}

// healTables recreates any table that disappeared while the version
// says it should exist.
func (s *Store) healTables(ctx context.Context) error {
	for _, table := range []string{layout.TableItems, layout.TableScreens} {
		ok, err := tableExists(ctx, s.db, table)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if ok {
			continue
		}
		slog.Warn("table missing, recreating", "table", table)
		if _, err := s.db.ExecContext(ctx, s.currentSchema()); err != nil {
			return fmt.Errorf("recreate table %s: %w", table, err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userVersion(ctx context.Context, q queryer) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(ctx context.Context, q queryer, version int) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func maxID(ctx context.Context, q queryer, table string) (int64, error) {
	if _, ok := tableColumns[table]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	var id int64
	// table is validated above; identifiers cannot be bound as parameters.
	err := q.QueryRowContext(ctx, "SELECT IFNULL(MAX(_id), 0) FROM "+table).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("max id of %s: %w", table, err)
	}
	return id, nil
}
