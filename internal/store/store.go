package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Version 1 is the first
// journal layout (sessions, inputs, commands). Bump it together with an
// entry in upgrades when schema.sql changes shape.
const schemaVersion = 1

// upgrades maps a version to the statements that bring a database at the
// previous version up to it. Version 1 is created from schema.sql directly.
var upgrades = map[int][]string{}

// Store is a SQLite-backed session journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path in WAL mode with a single
// connection, then creates or upgrades the schema. Opening a database
// written by a newer schema fails.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer; journal writes are sequential anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// prepareSchema initialises a fresh database from schema.sql, or walks an
// existing one through upgrades up to schemaVersion.
func prepareSchema(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}
	switch {
	case version > schemaVersion:
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, schemaVersion)
	case version == 0:
		if _, err := db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	default:
		for v := version + 1; v <= schemaVersion; v++ {
			for _, stmt := range upgrades[v] {
				if _, err := db.Exec(stmt); err != nil {
					return fmt.Errorf("upgrade to v%d: %w", v, err)
				}
			}
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// verifyPragma is a test helper comparing a pragma's current value.
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
