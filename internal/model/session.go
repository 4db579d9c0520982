// Package model defines the data structures shared across the auth engine.
package model

import (
	"time"

	"github.com/sakif/linkup/internal/prodate"
)

// GuestLikesSeed is the remaining-likes counter every fresh guest session
// starts with.
const GuestLikesSeed = 10

// Session is the locally held representation of the currently authenticated
// identity. Exactly one Session is "current" at a time.
//
// Sessions are treated as immutable values: the orchestrator never mutates a
// field in place — profile completion, refresh, and import confirmation all
// build a replacement Session and swap it in atomically together with the
// store write.
//
// WHY ID string?
// Remote identities carry the backend's opaque identifier; guest and Apple
// sessions get a locally generated xid. A string holds both without the
// engine caring which provider issued it. The ID is immutable once set.
type Session struct {
	ID                    string    `json:"id"                    db:"id"`
	Email                 string    `json:"email"                 db:"email"`
	Name                  string    `json:"name"                  db:"name"`
	CreatedAt             time.Time `json:"createdAt"             db:"created_at"`
	LastLoginAt           time.Time `json:"lastLoginAt"           db:"last_login_at"`
	IsGuest               bool      `json:"isGuest"               db:"is_guest"`
	ProfileSetupCompleted bool      `json:"profileSetupCompleted" db:"profile_setup_completed"`
	IsPro                 bool      `json:"isPro"                 db:"is_pro"`
	ProExpiry             string    `json:"proExpiry,omitempty"   db:"pro_expiry"` // raw backend string, parsed lazily
	LikesRemaining        int       `json:"likesRemaining"        db:"likes_remaining"`
}

// ProExpiryTime returns the parsed expiry instant, or false when the raw
// string is absent or unparseable.
func (s *Session) ProExpiryTime() (time.Time, bool) {
	return prodate.Parse(s.ProExpiry)
}

// ProActive reports whether the pro entitlement is live right now.
// An unparseable expiry counts as not active — fail closed.
func (s *Session) ProActive(now time.Time) bool {
	return prodate.IsProActive(s.IsPro, s.ProExpiry, now)
}

// CanLike reports whether this session may send a like: active pro, or a
// positive remaining-likes counter.
func (s *Session) CanLike(now time.Time) bool {
	return prodate.CanLike(s.IsPro, s.ProExpiry, s.LikesRemaining, now)
}

// AuthState is the tri-state projection of Session existence the UI binds to.
type AuthState string

const (
	// StateLoading is the initial state before any check completes.
	StateLoading AuthState = "loading"
	// StateAuthenticated means a current Session exists.
	StateAuthenticated AuthState = "authenticated"
	// StateUnauthenticated means no current Session exists.
	StateUnauthenticated AuthState = "unauthenticated"
)
