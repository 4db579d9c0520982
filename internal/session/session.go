// Package session implements the orchestrator — the single owner of the
// current Session and the entry point for every credential path: password
// login, registration, guest sessions, Sign in with Apple, the LinkedIn
// import, logout, and session refresh.
//
// STATE DISCIPLINE:
// There is exactly one current Session at a time. Every mutating operation
// runs under opMu, so a read-modify-persist sequence is never interleaved
// with another one. The store write and the in-memory swap happen together
// in apply/clear — no operation touches Session fields directly, it builds
// a replacement value and swaps it in.
//
// FAILURE DISCIPLINE:
// Primary failures come back as typed apperror values AND go out on the
// event channel, so the UI has one failure-notification path regardless of
// whether the error originated here, in the backend client, or in the
// LinkedIn handshake. Best-effort side actions (remote sign-out, trial
// grant, entitlement correction) are logged and swallowed — they never turn
// a primary success into a failure.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/auth"
	"github.com/sakif/linkup/internal/backend"
	"github.com/sakif/linkup/internal/linkedin"
	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/repository"
)

// Mode selects where credentialed accounts live. The choice is explicit
// configuration, never inferred from caught errors, so each path is testable
// without failure injection.
type Mode int

const (
	// ModeRemote authenticates exclusively against the identity backend.
	ModeRemote Mode = iota
	// ModeLocal authenticates exclusively against the on-device store.
	ModeLocal
	// ModeRemoteWithFallback tries the backend first and degrades to the
	// on-device store when the backend is unreachable (network-classified
	// failures only — a wrong password never falls through).
	ModeRemoteWithFallback
)

// Event is the uniform error/notification payload delivered to the UI.
type Event struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AuthResult bundles the new Session with the signed bearer token the UI
// presents on subsequent authenticated calls.
type AuthResult struct {
	Session *model.Session `json:"session"`
	Token   string         `json:"token"`
}

// Orchestrator coordinates the credential validator, the identity backend,
// the LinkedIn handshake, and the local store. All collaborators are
// injected at construction; a missing one fails the operation that needs it
// rather than panicking mid-flight.
type Orchestrator struct {
	mode      Mode
	backend   backend.IdentityBackend
	store     repository.SessionStore
	locals    repository.LocalUserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	handshake *linkedin.Handshake
	importer  *linkedin.ExchangeClient
	logger    *slog.Logger
	now       func() time.Time

	// opMu serializes mutating operations end to end.
	opMu sync.Mutex
	// stateMu guards the cheap reads below; never held across I/O.
	stateMu sync.Mutex
	current *model.Session
	state   model.AuthState

	events chan Event
}

// Config wires an Orchestrator.
type Config struct {
	Mode      Mode
	Backend   backend.IdentityBackend
	Store     repository.SessionStore
	Locals    repository.LocalUserRepository
	Passwords *auth.PasswordService
	Tokens    *auth.TokenService
	Handshake *linkedin.Handshake
	Importer  *linkedin.ExchangeClient
	Logger    *slog.Logger
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// New creates an Orchestrator in the loading state. Auto-login from the
// persisted slot is intentionally disabled: the state moves to
// unauthenticated on Start and only a successful credential path moves it
// to authenticated.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: a session store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("session: a token service is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		mode:      cfg.Mode,
		backend:   cfg.Backend,
		store:     cfg.Store,
		locals:    cfg.Locals,
		passwords: cfg.Passwords,
		tokens:    cfg.Tokens,
		handshake: cfg.Handshake,
		importer:  cfg.Importer,
		logger:    logger,
		now:       now,
		state:     model.StateLoading,
		events:    make(chan Event, 16),
	}, nil
}

// Start completes the initial auth check. The persisted session is left in
// place (so an Apple cache hit can still find it) but is NOT auto-restored.
func (o *Orchestrator) Start() {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if o.state == model.StateLoading {
		o.state = model.StateUnauthenticated
	}
}

// CurrentUser returns the current Session, or nil when unauthenticated.
func (o *Orchestrator) CurrentUser() *model.Session {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if o.current == nil {
		return nil
	}
	copied := *o.current
	return &copied
}

// AuthState returns the current tri-state projection.
func (o *Orchestrator) AuthState() model.AuthState {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

// Events exposes the error/notification channel. One consumer is expected;
// when nobody drains it, emits are dropped rather than blocking operations.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// emitErr publishes a failure on the event channel.
func (o *Orchestrator) emitErr(err error) {
	ev := Event{Kind: apperror.KindString(err), Message: err.Error()}
	select {
	case o.events <- ev:
	default:
		o.logger.Warn("event channel full, dropping event",
			slog.String("kind", ev.Kind))
	}
}

// fail logs, emits, and returns the error — every primary operation funnels
// its failures through here so the UI sees exactly one notification.
func (o *Orchestrator) fail(op string, err error) error {
	o.logger.Warn(op+" failed",
		slog.String("kind", apperror.KindString(err)),
		slog.String("error", err.Error()),
	)
	o.emitErr(err)
	return err
}

// apply persists the session and swaps it in as one logical unit. The store
// write happens first: if it fails the in-memory state is untouched, so the
// two can never disagree.
func (o *Orchestrator) apply(ctx context.Context, s *model.Session) error {
	if err := o.store.Save(ctx, s); err != nil {
		return apperror.Wrap(apperror.ErrUnknown, "could not save the session", err)
	}
	o.stateMu.Lock()
	o.current = s
	o.state = model.StateAuthenticated
	o.stateMu.Unlock()
	return nil
}

// clear wipes the persisted slots and the in-memory session together.
// The in-memory state is cleared even if the store purge fails — logout
// must always leave the process unauthenticated.
func (o *Orchestrator) clear(ctx context.Context) {
	if err := o.store.Clear(ctx); err != nil {
		o.logger.Error("clearing session store failed", slog.String("error", err.Error()))
	}
	o.stateMu.Lock()
	o.current = nil
	o.state = model.StateUnauthenticated
	o.stateMu.Unlock()
}

// result signs the bearer token for a freshly applied session.
func (o *Orchestrator) result(s *model.Session) (*AuthResult, error) {
	token, err := o.tokens.Generate(s.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrUnknown, "could not issue a session token", err)
	}
	return &AuthResult{Session: s, Token: token}, nil
}

// sessionFromRecord projects a backend identity record into a Session.
// profileExists ORs the extended-profile probe into the completion flag: a
// profile row's existence is evidence of completion even when the record's
// own flag is stale.
func (o *Orchestrator) sessionFromRecord(record *model.IdentityRecord, profileExists bool) *model.Session {
	now := o.now()
	created := record.CreatedAt
	if created.IsZero() {
		created = now
	}
	return &model.Session{
		ID:                    record.ID,
		Email:                 record.Email,
		Name:                  record.Name,
		CreatedAt:             created,
		LastLoginAt:           now,
		IsGuest:               false,
		ProfileSetupCompleted: record.ProfileSetupCompleted || profileExists,
		IsPro:                 record.IsPro,
		ProExpiry:             record.ProExpiry,
		LikesRemaining:        record.LikesRemaining,
	}
}

// emailLocalPart derives a display name from an email address.
func emailLocalPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
