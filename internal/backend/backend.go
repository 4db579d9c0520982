// Package backend defines the client for the remote identity service — the
// system of record for credentials and profile data.
//
// The orchestrator only ever sees the IdentityBackend interface; the HTTP
// implementation in this package and the fakes in the session tests are both
// swappable behind it. Nothing here holds session state.
package backend

import (
	"context"

	"github.com/sakif/linkup/internal/model"
)

// AuthIdentity is the minimal identity the backend returns from a
// credential check: who authenticated, nothing more. The full profile comes
// from a separate GetIdentityRecord call.
type AuthIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUpAttributes carries the optional profile attributes supplied at
// registration time.
type SignUpAttributes struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IdentityBackend is the remote identity service surface the engine consumes.
//
// Error contract: credential and uniqueness failures come back already
// classified as apperror kinds (invalid-credentials, email-exists, ...);
// transport failures as ErrNetwork; anything unrecognised as ErrUnknown.
// Record lookups return (nil, nil) for a clean "no such record" — absence is
// an answer, not an error.
type IdentityBackend interface {
	// Authenticate checks an identifier/secret pair.
	Authenticate(ctx context.Context, identifier, secret string) (*AuthIdentity, error)

	// SignUp registers a new credentialed identity.
	SignUp(ctx context.Context, identifier, secret string, attrs SignUpAttributes) (*AuthIdentity, error)

	// SignOut invalidates the backend-side session. Best effort — callers
	// log and swallow its failure.
	SignOut(ctx context.Context) error

	// GetIdentityRecord fetches the canonical profile, or (nil, nil) when
	// the identity has no record yet.
	GetIdentityRecord(ctx context.Context, id string) (*model.IdentityRecord, error)

	// CreateIdentityRecord provisions a new canonical profile.
	CreateIdentityRecord(ctx context.Context, record *model.IdentityRecord) (*model.IdentityRecord, error)

	// UpdateIdentityRecord applies a partial-field update.
	UpdateIdentityRecord(ctx context.Context, id string, update model.IdentityUpdate) error

	// GetExtendedProfile fetches the rich-profile row, or (nil, nil) when
	// none exists. Existence alone is evidence of profile completion.
	GetExtendedProfile(ctx context.Context, id string) (*model.ExtendedProfile, error)

	// GrantTrialEntitlement grants the introductory trial. Best effort on
	// registration — failure never fails the sign-up.
	GrantTrialEntitlement(ctx context.Context, id string) error

	// CheckAndCorrectEntitlementExpiry asks the backend to re-evaluate a
	// possibly lapsed entitlement. Returns whether the entitlement is
	// currently active after correction.
	CheckAndCorrectEntitlementExpiry(ctx context.Context, id string) (bool, error)

	// UpdateImportStatus marks a profile-import record (e.g. "confirmed").
	UpdateImportStatus(ctx context.Context, importID, status string) error

	// LogImportAction appends an audit entry to an import record.
	LogImportAction(ctx context.Context, importID, action, detail string) error
}
