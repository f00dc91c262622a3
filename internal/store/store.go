package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value SQLite reports once it is
// applied.
type pragma struct {
	name   string
	set    string
	expect string
}

// Routing reads happen while imports write, so the journal is WAL. The
// busy timeout covers an import transaction holding the write lock.
var pragmas = []pragma{
	{name: "journal_mode", set: "WAL", expect: "wal"},
	{name: "synchronous", set: "NORMAL", expect: "1"},
	{name: "busy_timeout", set: "5000", expect: "5000"},
	{name: "foreign_keys", set: "ON", expect: "1"},
}

// migration upgrades a database to version. Databases created from the
// current schema.sql already contain every migration's effect, so each
// statement must be a no-op on them.
type migration struct {
	version int
	desc    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		desc:    "index routing programs by merchant",
		stmt: `CREATE INDEX IF NOT EXISTS idx_routing_programs_merchant
			ON routing_programs(tenant, merchant)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store holds merchant connector accounts, connector filters and analyzed
// routing programs in one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the routing database at path, creating it if needed, and
// brings its schema up to date. ":memory:" opens a private in-memory
// database that lives as long as the Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// prepare configures a fresh handle. One connection serializes writers and
// keeps an in-memory database alive.
func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("failed to apply pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration newer than the database's user_version,
// each in its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.desc, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: set version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// Close releases the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for tooling that inspects the tables directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma compares the live value of a pragma with expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
