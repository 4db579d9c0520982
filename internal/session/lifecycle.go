package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/model"
)

// Logout signs out remotely (best effort), then unconditionally clears the
// in-memory session, the persisted slot, and every Apple-credential cache
// entry. It cannot fail: whatever the backend says, the process ends up
// unauthenticated with no session material left on device.
func (o *Orchestrator) Logout(ctx context.Context) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.backend != nil {
		if err := o.backend.SignOut(ctx); err != nil {
			o.logger.Warn("remote sign-out failed", slog.String("error", err.Error()))
		}
	}

	o.clear(ctx)
	o.logger.Info("user logged out")
}

// RefreshSession re-checks the subscription expiry server-side, re-fetches
// the identity record, and replaces the current session. It is advisory:
// every failure is logged and the existing session is returned unchanged —
// a refresh must never log the user out or degrade their session.
func (o *Orchestrator) RefreshSession(ctx context.Context) *model.Session {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	return o.refreshLocked(ctx)
}

func (o *Orchestrator) refreshLocked(ctx context.Context) *model.Session {
	current := o.CurrentUser()
	if current == nil {
		return nil
	}
	if current.IsGuest || o.backend == nil {
		// Nothing remote to reconcile against.
		return current
	}

	// Ask the backend to correct a lapsed entitlement before re-reading the
	// record, so the fetch below sees the corrected state.
	if _, err := o.backend.CheckAndCorrectEntitlementExpiry(ctx, current.ID); err != nil {
		o.logger.Warn("entitlement expiry check failed",
			slog.String("sessionID", current.ID),
			slog.String("error", err.Error()),
		)
	}

	record, err := o.backend.GetIdentityRecord(ctx, current.ID)
	if err != nil || record == nil {
		if err != nil {
			o.logger.Warn("session refresh fetch failed",
				slog.String("sessionID", current.ID),
				slog.String("error", err.Error()),
			)
		}
		return current
	}

	refreshed := o.sessionFromRecord(record, current.ProfileSetupCompleted)
	// The ID and creation time are immutable across refreshes.
	refreshed.ID = current.ID
	refreshed.CreatedAt = current.CreatedAt

	if err := o.apply(ctx, refreshed); err != nil {
		o.logger.Warn("session refresh apply failed",
			slog.String("sessionID", current.ID),
			slog.String("error", err.Error()),
		)
		return current
	}

	o.logger.Info("session refreshed",
		slog.String("sessionID", refreshed.ID),
		slog.Bool("proActive", refreshed.ProActive(o.now())),
	)
	return refreshed
}

// ConfirmImportedProfile marks a pending LinkedIn import confirmed, applies
// the user-approved fields to the identity record, writes the audit entry,
// and refreshes the session so the imported data shows up immediately.
//
// The confirmation step is separate from the raw fetch on purpose: the user
// reviews the imported data before it overwrites their profile.
func (o *Orchestrator) ConfirmImportedProfile(ctx context.Context, importID, name, email, avatarURL string) (*model.Session, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	current := o.CurrentUser()
	if current == nil {
		return nil, o.fail("import confirmation", apperror.New(apperror.ErrForbidden,
			"sign in before confirming an imported profile"))
	}
	if importID == "" {
		return nil, o.fail("import confirmation", apperror.Validation(apperror.ErrUnknown,
			"importId", "the import reference is missing"))
	}
	if o.backend == nil {
		return nil, o.fail("import confirmation", apperror.New(apperror.ErrNetwork,
			"the identity service is not available"))
	}

	if err := o.backend.UpdateImportStatus(ctx, importID, "confirmed"); err != nil {
		return nil, o.fail("import confirmation", err)
	}

	// Only the non-empty supplied fields touch the record.
	update := model.IdentityUpdate{}
	applied := 0
	if name != "" {
		update.Name = &name
		applied++
	}
	if email != "" {
		update.Email = &email
		applied++
	}
	if avatarURL != "" {
		update.AvatarURL = &avatarURL
		applied++
	}
	if applied > 0 {
		if err := o.backend.UpdateIdentityRecord(ctx, current.ID, update); err != nil {
			return nil, o.fail("import confirmation", err)
		}
	}

	if err := o.backend.LogImportAction(ctx, importID, "confirmed",
		fmt.Sprintf("applied %d field(s)", applied)); err != nil {
		// The audit line is best effort; the confirmation already happened.
		o.logger.Warn("import audit log failed",
			slog.String("importID", importID),
			slog.String("error", err.Error()),
		)
	}

	o.logger.Info("imported profile confirmed",
		slog.String("importID", importID),
		slog.Int("fieldsApplied", applied),
	)
	return o.refreshLocked(ctx), nil
}
