package linkedin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/linkup/internal/apperror"
)

// State is the handshake controller's observable state.
type State int

const (
	// StateIdle means no authorization attempt is in flight.
	StateIdle State = iota
	// StateAwaitingCallback means the user agent has been launched and we
	// are waiting for the redirect back.
	StateAwaitingCallback
	// StateCompleted means the callback validated and the exchange succeeded.
	StateCompleted
	// StateFailed means the attempt ended without a valid callback.
	StateFailed
	// StateCSRFMismatch means a callback arrived carrying a state token that
	// does not match the pending one. The exchange is never attempted.
	StateCSRFMismatch
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCSRFMismatch:
		return "csrf_mismatch"
	default:
		return "unknown"
	}
}

// UserAgent launches the external authorization interaction (a browser
// session bound to the app's custom callback scheme). Implementations must
// return promptly; the callback arrives later through Complete.
type UserAgent interface {
	Launch(ctx context.Context, authURL, callbackScheme string) error
}

// Exchanger turns a validated authorization code into a profile. Implemented
// by *ExchangeClient; stubbed in tests.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (Profile, error)
}

// attempt is the ephemeral per-handshake context: the anti-forgery token,
// when it started, and whether it is still live. Never persisted.
type attempt struct {
	stateToken     string
	startedAt      time.Time
	authenticating bool
}

// Handshake drives the authorization-code flow: it builds the authorization
// URL, launches the user agent, validates the callback (including the CSRF
// round-trip), and forwards the code to the exchanger.
//
// At most one attempt is live at a time. Calling Begin while one is pending
// supersedes it: later callbacks carrying the old token fail the CSRF check.
type Handshake struct {
	cfg       Config
	agent     UserAgent
	exchanger Exchanger
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	pending *attempt
}

// NewHandshake creates a handshake controller in the idle state.
func NewHandshake(cfg Config, agent UserAgent, exchanger Exchanger, logger *slog.Logger) *Handshake {
	return &Handshake{
		cfg:       cfg,
		agent:     agent,
		exchanger: exchanger,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the controller's current state.
func (h *Handshake) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// PendingStateToken returns the live anti-forgery token, or "" when no
// attempt is in flight. Exposed for the HTTP surface, which round-trips the
// token through the provider redirect.
func (h *Handshake) PendingStateToken() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return ""
	}
	return h.pending.stateToken
}

// Begin starts a new authorization attempt: it generates a fresh anti-forgery
// token (invalidating any prior pending one), assembles and validates the
// authorization URL, and launches the external user agent. It returns the
// authorization URL so callers that redirect instead of launching can reuse it.
func (h *Handshake) Begin(ctx context.Context) (string, error) {
	if err := h.cfg.validate(); err != nil {
		return "", apperror.Wrap(apperror.ErrURLConstruction,
			"could not start the LinkedIn sign-in", err)
	}

	h.mu.Lock()
	if h.pending != nil {
		h.logger.Info("superseding pending authorization attempt",
			slog.Time("startedAt", h.pending.startedAt))
	}
	token := xid.New().String()
	h.pending = &attempt{
		stateToken:     token,
		startedAt:      time.Now(),
		authenticating: true,
	}
	h.state = StateAwaitingCallback
	h.mu.Unlock()

	authURL, err := h.buildAuthURL(token)
	if err != nil {
		h.fail()
		return "", err
	}

	if h.agent != nil {
		if err := h.agent.Launch(ctx, authURL, h.cfg.CallbackScheme); err != nil {
			h.fail()
			return "", apperror.Wrap(apperror.ErrUnknown,
				"could not open the LinkedIn sign-in page", err)
		}
	}

	h.logger.Info("authorization attempt started", slog.String("state", token))
	return authURL, nil
}

// Complete consumes the callback URL the user agent intercepted. It parses
// code and state, enforces the CSRF check against the pending token, and on
// success forwards the code to the exchanger. The pending attempt is
// discarded whatever the outcome — callbacks are single-use.
func (h *Handshake) Complete(ctx context.Context, callbackURL string) (Profile, error) {
	return h.CompleteWith(ctx, callbackURL, h.exchanger)
}

// CompleteWith is Complete with a caller-chosen exchanger. The orchestrator
// uses it to route a signed-in user's callback through the server-side
// import endpoint instead of the plain exchange, without duplicating any of
// the callback validation.
func (h *Handshake) CompleteWith(ctx context.Context, callbackURL string, exchanger Exchanger) (Profile, error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		h.fail()
		return Profile{}, apperror.Wrap(apperror.ErrCallbackInvalid,
			"the sign-in response could not be read", err)
	}

	query := parsed.Query()
	if errParam := query.Get("error"); errParam != "" {
		h.fail()
		return Profile{}, apperror.New(apperror.ErrCallbackInvalid,
			fmt.Sprintf("LinkedIn sign-in was not completed: %s", errParam))
	}

	code := query.Get("code")
	stateToken := query.Get("state")
	if code == "" || stateToken == "" {
		h.fail()
		return Profile{}, apperror.New(apperror.ErrCallbackInvalid,
			"the sign-in response is missing required fields")
	}

	h.mu.Lock()
	pending := h.pending
	if pending == nil || pending.stateToken != stateToken {
		h.pending = nil
		h.state = StateCSRFMismatch
		h.mu.Unlock()
		h.logger.Warn("authorization callback failed CSRF check",
			slog.String("got", stateToken))
		return Profile{}, apperror.New(apperror.ErrCSRFMismatch,
			"the sign-in attempt could not be verified, please try again")
	}
	// Token matches: consume the attempt before touching the network so a
	// replayed callback can never trigger a second exchange.
	h.pending = nil
	h.mu.Unlock()

	profile, err := exchanger.Exchange(ctx, code)
	if err != nil {
		h.fail()
		return Profile{}, err
	}

	h.mu.Lock()
	h.state = StateCompleted
	h.mu.Unlock()
	return profile, nil
}

// Cancel records that the user dismissed the external agent without a
// callback. The attempt ends failed; nothing is retried and the exchanger is
// never invoked.
func (h *Handshake) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.state = StateFailed
	h.logger.Info("authorization attempt cancelled by user")
}

// AgentFailed records a failure reported by the external agent itself.
func (h *Handshake) AgentFailed(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.state = StateFailed
	h.logger.Warn("external agent reported failure", slog.String("reason", reason))
}

func (h *Handshake) fail() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.state = StateFailed
}

// buildAuthURL assembles the authorization URL by hand. The redirect URI and
// scope are percent-encoded with escapeQueryComponent, which leaves ':' and
// '/' intact — LinkedIn compares the redirect_uri byte-for-byte against the
// registered value, and over-encoding those separators breaks the match.
func (h *Handshake) buildAuthURL(stateToken string) (string, error) {
	var b strings.Builder
	b.WriteString(h.cfg.AuthURL)
	b.WriteString("?response_type=code")
	b.WriteString("&client_id=")
	b.WriteString(escapeQueryComponent(h.cfg.ClientID))
	b.WriteString("&redirect_uri=")
	b.WriteString(escapeQueryComponent(h.cfg.RedirectURI))
	b.WriteString("&state=")
	b.WriteString(escapeQueryComponent(stateToken))
	b.WriteString("&scope=")
	b.WriteString(escapeQueryComponent(h.cfg.scopeString()))

	assembled := b.String()
	if u, err := url.ParseRequestURI(assembled); err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperror.Wrap(apperror.ErrURLConstruction,
			"could not start the LinkedIn sign-in", err)
	}
	return assembled, nil
}

// escapeQueryComponent percent-encodes everything outside the query-safe
// set: RFC 3986 unreserved characters plus ':' and '/'.
func escapeQueryComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '.' || c == '_' || c == '~' || c == ':' || c == '/':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
