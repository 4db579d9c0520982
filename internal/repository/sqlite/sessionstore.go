package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/repository"
)

// compile-time check that *DB implements repository.SessionStore
var _ repository.SessionStore = (*DB)(nil)

// currentSessionKey is the fixed kv key for the active session slot.
const currentSessionKey = "session:current"

// Save serializes the session as JSON into the current-session slot,
// overwriting any prior value.
func (db *DB) Save(ctx context.Context, session *model.Session) error {
	return db.put(ctx, currentSessionKey, session)
}

// Load returns the last saved session, or (nil, nil) when the slot is empty.
func (db *DB) Load(ctx context.Context) (*model.Session, error) {
	return db.get(ctx, currentSessionKey)
}

// SaveCached writes a session under an arbitrary cache key, e.g.
// "apple:<subject>" for Sign in with Apple reuse.
func (db *DB) SaveCached(ctx context.Context, key string, session *model.Session) error {
	if key == "" {
		return fmt.Errorf("sqlite: cache key must not be empty")
	}
	return db.put(ctx, key, session)
}

// LoadCached returns the session cached under key, or (nil, nil) on miss.
func (db *DB) LoadCached(ctx context.Context, key string) (*model.Session, error) {
	return db.get(ctx, key)
}

// Clear removes the current-session slot and every Apple-credential cache
// entry. A logout must leave no session material behind, so both go in one
// statement.
func (db *DB) Clear(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE key = ? OR key LIKE ?`,
		currentSessionKey,
		repository.AppleCachePrefix+"%",
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing session slots: %w", err)
	}
	return nil
}

// put upserts a JSON-serialized session under key. SQLite's ON CONFLICT
// clause makes this a single round-trip.
func (db *DB) put(ctx context.Context, key string, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("sqlite: session must not be nil")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("sqlite: serializing session %s: %w", session.ID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(payload),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing key %s: %w", key, err)
	}
	return nil
}

// get reads and deserializes the session under key. Absence is not an error.
func (db *DB) get(ctx context.Context, key string) (*model.Session, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading key %s: %w", key, err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("sqlite: deserializing key %s: %w", key, err)
	}
	return &session, nil
}
