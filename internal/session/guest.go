package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sakif/linkup/internal/model"
)

// guestNames is the fixed pool of display names for guest sessions. The
// xid's per-ID counter indexes the pool, so consecutive guests rotate
// through the names.
var guestNames = [...]string{
	"Curious Visitor",
	"Friendly Stranger",
	"Quiet Observer",
	"New Face",
}

// GuestLogin synthesizes a locally unique guest identity with no remote
// call. From the caller's perspective the transition to authenticated is
// synchronous — there is no intermediate loading flicker.
//
// Guests always start with profile setup incomplete and the pre-seeded
// likes counter. Two guest logins always produce two distinct session IDs.
func (o *Orchestrator) GuestLogin(ctx context.Context) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	id := xid.New()
	now := o.now()
	session := &model.Session{
		ID:                    "guest-" + id.String(),
		Email:                 fmt.Sprintf("%s@guest.linkup.local", id.String()),
		Name:                  guestNames[int(id.Counter())%len(guestNames)],
		CreatedAt:             now,
		LastLoginAt:           now,
		IsGuest:               true,
		ProfileSetupCompleted: false,
		LikesRemaining:        model.GuestLikesSeed,
	}

	// Guests get a local record so the rest of the app can treat them like
	// any other account; its failure is logged, not fatal — the session
	// itself is the product here.
	if o.locals != nil {
		if err := o.locals.Create(ctx, &model.LocalUser{
			ID:      session.ID,
			Email:   session.Email,
			Name:    session.Name,
			IsGuest: true,
		}); err != nil {
			o.logger.Warn("guest local record insert failed",
				slog.String("guestID", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := o.apply(ctx, session); err != nil {
		return nil, o.fail("guest login", err)
	}

	o.logger.Info("guest session created",
		slog.String("sessionID", session.ID),
		slog.String("name", session.Name),
	)
	return o.result(session)
}
