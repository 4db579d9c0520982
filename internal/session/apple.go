package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/repository"
)

// AppleCredential is the verified credential the platform's Sign in with
// Apple flow hands the app. Apple only discloses email and name on the very
// first authorization, so every field except Subject may be empty on
// subsequent sign-ins — which is exactly why the per-subject cache exists.
type AppleCredential struct {
	Subject    string `json:"subject"`
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// SignInWithApple installs a session for the given platform credential.
//
// Idempotent per credential subject: a previously cached session for this
// subject is reused as-is with no network call; otherwise a new session is
// synthesized and persisted both as current and under the subject-scoped
// cache key for next time.
func (o *Orchestrator) SignInWithApple(ctx context.Context, cred AppleCredential) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if cred.Subject == "" {
		return nil, o.fail("apple sign-in", apperror.Validation(apperror.ErrInvalidCredentials,
			"subject", "the sign-in credential is incomplete"))
	}

	cacheKey := repository.AppleCachePrefix + cred.Subject

	cached, err := o.store.LoadCached(ctx, cacheKey)
	if err != nil {
		return nil, o.fail("apple sign-in",
			apperror.Wrap(apperror.ErrUnknown, "could not read the session cache", err))
	}
	if cached != nil {
		// Cache hit: reuse the stored identity, refresh only the login time.
		refreshed := *cached
		refreshed.LastLoginAt = o.now()
		if err := o.saveAppleSession(ctx, cacheKey, &refreshed); err != nil {
			return nil, o.fail("apple sign-in", err)
		}
		o.logger.Info("apple sign-in reused cached session",
			slog.String("sessionID", refreshed.ID))
		return o.result(&refreshed)
	}

	email := cred.Email
	if email == "" {
		// Apple withheld the email (or relayed sign-ins after the first):
		// fall back to a private-relay placeholder keyed by the subject so
		// the session always has a stable address.
		email = fmt.Sprintf("%s@privaterelay.appleid.com", cred.Subject)
	}

	now := o.now()
	session := &model.Session{
		ID:             "apple-" + xid.New().String(),
		Email:          email,
		Name:           appleDisplayName(cred, email),
		CreatedAt:      now,
		LastLoginAt:    now,
		LikesRemaining: model.GuestLikesSeed,
	}

	if err := o.saveAppleSession(ctx, cacheKey, session); err != nil {
		return nil, o.fail("apple sign-in", err)
	}

	o.logger.Info("apple sign-in created session",
		slog.String("sessionID", session.ID),
		slog.String("subject", cred.Subject),
	)
	return o.result(session)
}

// saveAppleSession writes the session to the current slot and the subject
// cache, then swaps it in. Both writes belong to the same logical unit as
// the in-memory update.
func (o *Orchestrator) saveAppleSession(ctx context.Context, cacheKey string, s *model.Session) error {
	if err := o.store.SaveCached(ctx, cacheKey, s); err != nil {
		return apperror.Wrap(apperror.ErrUnknown, "could not save the session", err)
	}
	return o.apply(ctx, s)
}

// appleDisplayName picks a display name in priority order: given+family
// name, given name alone, then the email local-part.
func appleDisplayName(cred AppleCredential, email string) string {
	given := strings.TrimSpace(cred.GivenName)
	family := strings.TrimSpace(cred.FamilyName)
	switch {
	case given != "" && family != "":
		return given + " " + family
	case given != "":
		return given
	default:
		return emailLocalPart(email)
	}
}
