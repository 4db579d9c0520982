package linkedin

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"
)

// stubExchanger records Exchange calls and returns a canned profile.
type stubExchanger struct {
	calls    int
	lastCode string
	profile  Profile
	err      error
}

func (s *stubExchanger) Exchange(_ context.Context, code string) (Profile, error) {
	s.calls++
	s.lastCode = code
	if s.err != nil {
		return Profile{}, s.err
	}
	return s.profile, nil
}

// stubAgent records Launch calls.
type stubAgent struct {
	calls   int
	lastURL string
	err     error
}

func (s *stubAgent) Launch(_ context.Context, authURL, _ string) error {
	s.calls++
	s.lastURL = authURL
	return s.err
}

func testConfig() Config {
	return Config{
		AuthURL:        "https://www.linkedin.com/oauth/v2/authorization",
		ClientID:       "client-123",
		RedirectURI:    "linkup://linkedin-callback",
		CallbackScheme: "linkup",
		Scopes:         []string{"r_liteprofile", "r_emailaddress"},
		ExchangeURL:    "https://api.linkup.example/v1/linkedin/exchange",
		ImportURL:      "https://api.linkup.example/v1/linkedin/import",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func callbackURL(code, state string) string {
	return "linkup://linkedin-callback?code=" + code + "&state=" + state
}

func TestBeginBuildsAuthorizationURL(t *testing.T) {
	agent := &stubAgent{}
	h := NewHandshake(testConfig(), agent, &stubExchanger{}, quietLogger())

	authURL, err := h.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if agent.calls != 1 {
		t.Fatalf("agent launched %d times, want 1", agent.calls)
	}
	if agent.lastURL != authURL {
		t.Error("agent should be launched with the returned URL")
	}

	if !strings.HasPrefix(authURL, "https://www.linkedin.com/oauth/v2/authorization?") {
		t.Errorf("authURL = %q, wrong endpoint", authURL)
	}
	if !strings.Contains(authURL, "response_type=code") {
		t.Error("authURL missing response_type=code")
	}
	if !strings.Contains(authURL, "client_id=client-123") {
		t.Error("authURL missing client_id")
	}
	// ':' and '/' must be preserved, not over-encoded, while other
	// characters are percent-encoded.
	if !strings.Contains(authURL, "redirect_uri=linkup://linkedin-callback") {
		t.Errorf("authURL = %q, redirect_uri should keep : and /", authURL)
	}
	if !strings.Contains(authURL, "scope=r_liteprofile%20r_emailaddress") {
		t.Errorf("authURL = %q, scope should encode the space", authURL)
	}
	if !strings.Contains(authURL, "state="+h.PendingStateToken()) {
		t.Error("authURL missing the pending state token")
	}

	if h.State() != StateAwaitingCallback {
		t.Errorf("state = %v, want awaiting_callback", h.State())
	}
}

func TestBeginRejectsInvalidEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.AuthURL = "://not a url"
	h := NewHandshake(cfg, &stubAgent{}, &stubExchanger{}, quietLogger())

	_, err := h.Begin(context.Background())
	if err == nil {
		t.Fatal("Begin should fail on an unparseable endpoint")
	}
	if !strings.Contains(err.Error(), "LinkedIn sign-in") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestCompleteHappyPath(t *testing.T) {
	ex := &stubExchanger{profile: Profile{Fields: map[string]any{EmailKey: "a@b.com"}}}
	h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())

	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	token := h.PendingStateToken()

	profile, err := h.Complete(context.Background(), callbackURL("auth-code-1", token))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if profile.Email() != "a@b.com" {
		t.Errorf("profile email = %q", profile.Email())
	}
	if ex.calls != 1 || ex.lastCode != "auth-code-1" {
		t.Errorf("exchanger calls = %d code = %q", ex.calls, ex.lastCode)
	}
	if h.State() != StateCompleted {
		t.Errorf("state = %v, want completed", h.State())
	}
}

func TestSecondBeginSupersedesFirstToken(t *testing.T) {
	ex := &stubExchanger{}
	h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())

	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin(1): %v", err)
	}
	firstToken := h.PendingStateToken()

	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin(2): %v", err)
	}

	// A callback carrying the superseded token must fail the CSRF check and
	// never reach the exchanger.
	_, err := h.Complete(context.Background(), callbackURL("code-x", firstToken))
	if err == nil {
		t.Fatal("Complete with stale token should fail")
	}
	if !strings.Contains(err.Error(), "verified") {
		t.Errorf("unexpected message: %v", err)
	}
	if ex.calls != 0 {
		t.Errorf("exchanger was called %d times, want 0", ex.calls)
	}
	if h.State() != StateCSRFMismatch {
		t.Errorf("state = %v, want csrf_mismatch", h.State())
	}
}

func TestCompleteMissingCodeOrState(t *testing.T) {
	for _, raw := range []string{
		"linkup://linkedin-callback?state=tok",          // no code
		"linkup://linkedin-callback?code=abc",           // no state
		"linkup://linkedin-callback",                    // neither
	} {
		ex := &stubExchanger{}
		h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())
		if _, err := h.Begin(context.Background()); err != nil {
			t.Fatalf("Begin: %v", err)
		}

		_, err := h.Complete(context.Background(), raw)
		if err == nil {
			t.Errorf("Complete(%q) should fail", raw)
		}
		if ex.calls != 0 {
			t.Errorf("Complete(%q) invoked the exchanger", raw)
		}
		if h.State() != StateFailed {
			t.Errorf("Complete(%q) state = %v, want failed", raw, h.State())
		}
	}
}

func TestCompleteProviderError(t *testing.T) {
	ex := &stubExchanger{}
	h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())
	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	_, err := h.Complete(context.Background(),
		"linkup://linkedin-callback?error=user_cancelled_authorize&state="+h.PendingStateToken())
	if err == nil {
		t.Fatal("Complete should surface the provider error")
	}
	if ex.calls != 0 {
		t.Error("exchanger should not run after a provider error")
	}
}

func TestCancelEndsAttempt(t *testing.T) {
	ex := &stubExchanger{}
	h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())
	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	token := h.PendingStateToken()

	h.Cancel()
	if h.State() != StateFailed {
		t.Errorf("state after Cancel = %v, want failed", h.State())
	}

	// A late callback after cancellation fails the CSRF check.
	if _, err := h.Complete(context.Background(), callbackURL("code", token)); err == nil {
		t.Error("callback after Cancel should fail")
	}
	if ex.calls != 0 {
		t.Error("exchanger should never run after Cancel")
	}
}

func TestExchangeFailureFailsAttempt(t *testing.T) {
	ex := &stubExchanger{err: errors.New("exchange exploded")}
	h := NewHandshake(testConfig(), &stubAgent{}, ex, quietLogger())
	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	_, err := h.Complete(context.Background(), callbackURL("code", h.PendingStateToken()))
	if err == nil {
		t.Fatal("Complete should propagate exchange failure")
	}
	if h.State() != StateFailed {
		t.Errorf("state = %v, want failed", h.State())
	}
}

func TestEscapeQueryComponent(t *testing.T) {
	cases := map[string]string{
		"linkup://cb":          "linkup://cb",
		"a b":                  "a%20b",
		"x=y&z":                "x%3Dy%26z",
		"plain-safe._~":        "plain-safe._~",
		"https://a/b?c":        "https://a/b%3Fc",
	}
	for in, want := range cases {
		if got := escapeQueryComponent(in); got != want {
			t.Errorf("escapeQueryComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCallbackURLRoundTrips(t *testing.T) {
	// The custom-scheme callback must stay parseable by net/url.
	h := NewHandshake(testConfig(), &stubAgent{}, &stubExchanger{}, quietLogger())
	if _, err := h.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	raw := callbackURL("code", h.PendingStateToken())
	if _, err := url.Parse(raw); err != nil {
		t.Fatalf("callback URL unparseable: %v", err)
	}
}
