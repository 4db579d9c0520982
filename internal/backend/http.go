package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/linkup/internal/model"
)

// defaultTimeout bounds every backend round-trip. The original client had no
// timeout at all, which turned a hung backend into a hung app; 30s is long
// enough for a slow mobile link and short enough to surface as network-error.
const defaultTimeout = 30 * time.Second

// HTTPClient is the HTTP implementation of IdentityBackend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ IdentityBackend = (*HTTPClient)(nil)

// NewHTTPClient creates a backend client for the given base URL, e.g.
// "https://api.linkup.example". A nil httpClient gets the default 30s one.
func NewHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// Authenticate checks an identifier/secret pair against POST /v1/auth/login.
func (c *HTTPClient) Authenticate(ctx context.Context, identifier, secret string) (*AuthIdentity, error) {
	req := map[string]string{"identifier": identifier, "secret": secret}
	var identity AuthIdentity
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", req, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SignUp registers a new identity via POST /v1/auth/signup.
func (c *HTTPClient) SignUp(ctx context.Context, identifier, secret string, attrs SignUpAttributes) (*AuthIdentity, error) {
	req := map[string]any{
		"identifier": identifier,
		"secret":     secret,
		"attributes": attrs,
	}
	var identity AuthIdentity
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", req, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SignOut invalidates the backend session.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

// GetIdentityRecord fetches the canonical profile. A 404 means the identity
// has no record yet and returns (nil, nil).
func (c *HTTPClient) GetIdentityRecord(ctx context.Context, id string) (*model.IdentityRecord, error) {
	var record model.IdentityRecord
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, &record)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// CreateIdentityRecord provisions a new canonical profile.
func (c *HTTPClient) CreateIdentityRecord(ctx context.Context, record *model.IdentityRecord) (*model.IdentityRecord, error) {
	var created model.IdentityRecord
	if err := c.do(ctx, http.MethodPost, "/v1/users", record, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateIdentityRecord applies a partial update via PATCH.
func (c *HTTPClient) UpdateIdentityRecord(ctx context.Context, id string, update model.IdentityUpdate) error {
	return c.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(id), update, nil)
}

// GetExtendedProfile fetches the rich-profile row, (nil, nil) on 404.
func (c *HTTPClient) GetExtendedProfile(ctx context.Context, id string) (*model.ExtendedProfile, error) {
	var profile model.ExtendedProfile
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id)+"/profile", nil, &profile)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GrantTrialEntitlement grants the introductory trial.
func (c *HTTPClient) GrantTrialEntitlement(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(id)+"/trial", nil, nil)
}

// CheckAndCorrectEntitlementExpiry asks the backend to re-evaluate a lapsed
// entitlement server-side.
func (c *HTTPClient) CheckAndCorrectEntitlementExpiry(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(id)+"/entitlement/check", nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Active, nil
}

// UpdateImportStatus marks an import record, e.g. "confirmed".
func (c *HTTPClient) UpdateImportStatus(ctx context.Context, importID, status string) error {
	req := map[string]string{"status": status}
	return c.do(ctx, http.MethodPost, "/v1/imports/"+url.PathEscape(importID)+"/status", req, nil)
}

// LogImportAction appends an audit entry to an import record.
func (c *HTTPClient) LogImportAction(ctx context.Context, importID, action, detail string) error {
	req := map[string]string{"action": action, "detail": detail}
	return c.do(ctx, http.MethodPost, "/v1/imports/"+url.PathEscape(importID)+"/log", req, nil)
}

// statusError preserves the HTTP status of a classified failure so callers
// can special-case 404 without re-deriving it from strings.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func isStatus(err error, status int) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == status
	}
	return false
}

// do runs one JSON round-trip: marshal reqBody (if any), send, classify any
// failure, and decode into respBody (if any). Every error that leaves this
// method is already mapped onto the apperror taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body *bytes.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("backend: encoding %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Pull the structured error body; a missing or malformed body still
		// classifies, just with less to go on.
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		c.logger.Warn("backend call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", eb.Code),
		)
		return &statusError{
			status: resp.StatusCode,
			err:    classify(eb, fmt.Errorf("backend: %s %s returned status %d", method, path, resp.StatusCode)),
		}
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("backend: decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
