package session

import (
	"context"
	"log/slog"

	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/linkedin"
)

// BeginLinkedInImport starts a LinkedIn authorization attempt and returns
// the authorization URL. Handshake failures travel the same event channel
// as every other operation, so the UI has a single failure-notification
// path regardless of where the error originated.
func (o *Orchestrator) BeginLinkedInImport(ctx context.Context) (string, error) {
	if o.handshake == nil {
		return "", o.fail("linkedin import", apperror.New(apperror.ErrUnknown,
			"LinkedIn import is not configured"))
	}

	authURL, err := o.handshake.Begin(ctx)
	if err != nil {
		return "", o.fail("linkedin import", err)
	}
	return authURL, nil
}

// CompleteLinkedInImport consumes the intercepted callback URL, runs the
// CSRF check and the token exchange, and — when a session exists — records
// the result server-side as a pending import for the user to confirm.
func (o *Orchestrator) CompleteLinkedInImport(ctx context.Context, callbackURL string) (linkedin.Profile, error) {
	if o.handshake == nil {
		return linkedin.Profile{}, o.fail("linkedin import", apperror.New(apperror.ErrUnknown,
			"LinkedIn import is not configured"))
	}

	var profile linkedin.Profile
	var err error
	if current := o.CurrentUser(); current != nil && o.importer != nil {
		// Signed in: route the code through the server-side import endpoint
		// so the fetched profile lands as a pending import on the account.
		profile, err = o.handshake.CompleteWith(ctx, callbackURL,
			importExchanger{client: o.importer, userID: current.ID})
	} else {
		profile, err = o.handshake.Complete(ctx, callbackURL)
	}
	if err != nil {
		return linkedin.Profile{}, o.fail("linkedin import", err)
	}

	o.logger.Info("linkedin profile fetched",
		slog.String("name", profile.DisplayName()),
		slog.Bool("hasEmail", profile.Email() != ""),
	)
	return profile, nil
}

// CancelLinkedInImport records that the user dismissed the external agent.
// Only the in-flight attempt dies; nothing is retried.
func (o *Orchestrator) CancelLinkedInImport() {
	if o.handshake != nil {
		o.handshake.Cancel()
	}
}

// importExchanger adapts the server-side import call to the handshake's
// exchanger seam, binding the authorization code to the signed-in user.
type importExchanger struct {
	client *linkedin.ExchangeClient
	userID string
}

func (i importExchanger) Exchange(ctx context.Context, code string) (linkedin.Profile, error) {
	return i.client.Import(ctx, code, i.userID)
}
