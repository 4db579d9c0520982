// Package repository declares the storage interfaces the orchestrator
// depends on. Concrete implementations live in subpackages (sqlite) and in
// test fakes — the orchestrator only ever sees these interfaces.
package repository

import (
	"context"

	"github.com/sakif/linkup/internal/model"
)

// AppleCachePrefix scopes the per-credential session cache for
// Sign in with Apple. Clear purges every key under it.
const AppleCachePrefix = "apple:"

// SessionStore persists the current session slot plus the credential-scoped
// session cache. All methods are synchronous; the store does no internal
// locking — the orchestrator serializes access.
type SessionStore interface {
	// Save writes the current-session slot, overwriting any prior value.
	Save(ctx context.Context, session *model.Session) error

	// Load returns the last saved session, or (nil, nil) when the slot is
	// empty. A nil error with a nil session is the normal logged-out state,
	// not a failure.
	Load(ctx context.Context) (*model.Session, error)

	// SaveCached writes a session under an arbitrary cache key (e.g.
	// AppleCachePrefix + credential subject) for later reuse.
	SaveCached(ctx context.Context, key string, session *model.Session) error

	// LoadCached returns the session cached under key, or (nil, nil) on miss.
	LoadCached(ctx context.Context, key string) (*model.Session, error)

	// Clear removes the current-session slot and every credential-scoped
	// cache entry under AppleCachePrefix.
	Clear(ctx context.Context) error
}

// LocalUserRepository stores on-device account records: guests, and password
// accounts for the local-only and local-fallback modes.
type LocalUserRepository interface {
	Create(ctx context.Context, user *model.LocalUser) error
	GetByID(ctx context.Context, id string) (*model.LocalUser, error)
	// GetByEmail returns apperror.ErrNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*model.LocalUser, error)
	Delete(ctx context.Context, id string) error
}
