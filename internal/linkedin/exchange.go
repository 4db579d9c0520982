package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/linkup/internal/apperror"
)

// exchangeTimeout bounds the backend exchange and the provider fetches.
const exchangeTimeout = 30 * time.Second

// ExchangeClient trades an authorization code for profile data through the
// trusted backend intermediary.
//
// TWO RESPONSE SHAPES, IN PRIORITY ORDER:
//  1. Direct profile — the backend already did the code→token exchange and
//     the profile+email fetches server-side; the response carries the
//     assembled profile. No further calls.
//  2. Token-only — the backend returns just an access token; this client
//     then fetches the provider profile and the verified primary email
//     itself, and merges the email into the profile under EmailKey.
//
// Every failure at every step terminates the attempt. There is no partial
// success: a profile without its email is an error, not a result.
type ExchangeClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Exchanger = (*ExchangeClient)(nil)

// NewExchangeClient creates an exchange client. A nil httpClient gets the
// default 30s-timeout one; tests inject httptest clients.
func NewExchangeClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *ExchangeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: exchangeTimeout}
	}
	return &ExchangeClient{cfg: cfg, http: httpClient, logger: logger}
}

// exchangeResponse is the union of the two shapes the backend may return.
type exchangeResponse struct {
	Profile     map[string]any `json:"profile"`
	AccessToken string         `json:"access_token"`
}

// Exchange performs the code→profile conversion.
func (c *ExchangeClient) Exchange(ctx context.Context, code string) (Profile, error) {
	body := map[string]string{
		"code":         code,
		"redirect_uri": c.cfg.RedirectURI,
	}

	resp, err := c.postJSON(ctx, c.cfg.ExchangeURL, body)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := readErrorTriple(resp)
		return Profile{}, apperror.ExchangeFailed(reason, nil)
	}

	var exch exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&exch); err != nil {
		return Profile{}, apperror.ExchangeFailed("the server response could not be read", err)
	}

	// Path 1: the backend assembled the profile server-side.
	if len(exch.Profile) > 0 {
		normalizePicture(exch.Profile)
		return Profile{Fields: exch.Profile}, nil
	}

	// Path 2: token only — fetch profile and email ourselves.
	if exch.AccessToken != "" {
		return c.assembleFromToken(ctx, exch.AccessToken)
	}

	return Profile{}, apperror.ExchangeFailed("the server response had an unexpected shape", nil)
}

// Import exchanges the code AND persists the profile server-side in one
// call, scoped to an existing user. The backend records it as a pending
// import the user must confirm before it overwrites their profile.
func (c *ExchangeClient) Import(ctx context.Context, code, userID string) (Profile, error) {
	body := map[string]string{
		"code":         code,
		"user_id":      userID,
		"redirect_uri": c.cfg.RedirectURI,
	}

	resp, err := c.postJSON(ctx, c.cfg.ImportURL, body)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, apperror.ExchangeFailed(readErrorTriple(resp), nil)
	}

	var imported struct {
		Success bool           `json:"success"`
		Profile map[string]any `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&imported); err != nil {
		return Profile{}, apperror.ExchangeFailed("the server response could not be read", err)
	}
	if !imported.Success || len(imported.Profile) == 0 {
		return Profile{}, apperror.ExchangeFailed("the import was not accepted", nil)
	}

	normalizePicture(imported.Profile)
	return Profile{Fields: imported.Profile}, nil
}

// assembleFromToken runs the token-only fallback: fetch the profile, fetch
// the verified primary email, merge the email under EmailKey. Both fetches
// must succeed or the whole attempt fails.
func (c *ExchangeClient) assembleFromToken(ctx context.Context, accessToken string) (Profile, error) {
	// oauth2.NewClient returns an *http.Client that attaches the bearer
	// token to every request. The base transport comes from ctx so tests
	// can substitute an httptest client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	bearer := oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"},
	))

	fields, err := c.fetchProfile(ctx, bearer)
	if err != nil {
		return Profile{}, err
	}

	email, err := c.fetchPrimaryEmail(ctx, bearer)
	if err != nil {
		return Profile{}, err
	}

	fields[EmailKey] = email
	normalizePicture(fields)
	return Profile{Fields: fields}, nil
}

func (c *ExchangeClient) fetchProfile(ctx context.Context, bearer *http.Client) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProfileURL, nil)
	if err != nil {
		return nil, apperror.ExchangeFailed("could not fetch the profile", err)
	}

	resp, err := bearer.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrNetwork,
			"could not reach LinkedIn, check your connection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ExchangeFailed(
			fmt.Sprintf("profile endpoint returned status %d", resp.StatusCode), nil)
	}

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, apperror.ExchangeFailed("the profile response could not be read", err)
	}
	// A 200 with a "null" or empty body decodes cleanly into a nil/empty map;
	// callers write into the map, so that shape must terminate the attempt
	// here rather than surface later.
	if len(fields) == 0 {
		return nil, apperror.ExchangeFailed("the profile response had an unexpected shape", nil)
	}
	return fields, nil
}

// fetchPrimaryEmail reads the provider-verified primary address from the
// secondary email endpoint. LinkedIn nests it two levels deep:
// elements[0]["handle~"].emailAddress.
func (c *ExchangeClient) fetchPrimaryEmail(ctx context.Context, bearer *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.EmailURL, nil)
	if err != nil {
		return "", apperror.ExchangeFailed("could not fetch the email address", err)
	}

	resp, err := bearer.Do(req)
	if err != nil {
		return "", apperror.Wrap(apperror.ErrNetwork,
			"could not reach LinkedIn, check your connection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperror.ExchangeFailed(
			fmt.Sprintf("email endpoint returned status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", apperror.ExchangeFailed("the email response could not be read", err)
	}

	for _, el := range payload.Elements {
		if handle, ok := el["handle~"].(map[string]any); ok {
			if email, ok := handle["emailAddress"].(string); ok && email != "" {
				return email, nil
			}
		}
	}
	return "", apperror.ExchangeFailed("no verified email address on the account", nil)
}

func (c *ExchangeClient) postJSON(ctx context.Context, endpoint string, body map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperror.ExchangeFailed("could not encode the request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.ExchangeFailed("could not build the request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrNetwork,
			"could not reach the server, check your connection", err)
	}
	return resp, nil
}

// readErrorTriple extracts the backend's {error, detail?, hint?} body into a
// single human-readable reason, falling back to the bare status code when
// the body is absent or unreadable.
func readErrorTriple(resp *http.Response) string {
	var eb struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
		Hint   string `json:"hint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}

	var b strings.Builder
	b.WriteString(eb.Error)
	if eb.Detail != "" {
		b.WriteString(": ")
		b.WriteString(eb.Detail)
	}
	if eb.Hint != "" {
		b.WriteString(" (")
		b.WriteString(eb.Hint)
		b.WriteString(")")
	}
	return b.String()
}
