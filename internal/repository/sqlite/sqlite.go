// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// The engine's local persistence needs are deliberately small: a key/value
// table holding the current-session slot plus the Apple-credential session
// cache, and a local_users table for guest and local-mode accounts. SQLite
// gives us both in a single on-device file with no server to manage, and
// ":memory:" keeps the tests hermetic.
//
// We use modernc.org/sqlite (pure Go translation of SQLite) rather than the
// CGo driver, so the binary cross-compiles without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.SessionStore
// and repository.LocalUserRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open is lazy; Ping surfaces bad paths and permissions now rather
	// than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows reads concurrent with a write. The orchestrator
	// serializes its own writes, but the HTTP surface reads freely.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New — it
// flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// which is all a single-file on-device store needs.
func (db *DB) migrate() error {
	// kv holds JSON-serialized sessions: the fixed current-session key plus
	// the apple:<subject> cache family.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}

	// local_users backs guest identities and local-mode password accounts.
	// email is UNIQUE so duplicate registration surfaces as a constraint hit.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS local_users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			is_guest      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_local_users_email ON local_users(email);
	`)
	if err != nil {
		return fmt.Errorf("creating local_users table: %w", err)
	}

	return nil
}
