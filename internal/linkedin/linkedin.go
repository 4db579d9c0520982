// Package linkedin drives the LinkedIn profile import: the authorization-code
// handshake against LinkedIn's OAuth endpoint, and the backend-mediated token
// exchange that turns the code into profile data.
//
// SECURITY SHAPE:
// The app never holds LinkedIn's client secret. The code-for-token exchange
// happens inside our trusted backend; this package either receives the
// finished profile from the backend, or — on the token-only fallback path —
// receives a short-lived access token and performs the two read-only profile
// fetches itself with a bearer client.
package linkedin

import (
	"fmt"
	"strings"
)

// Config describes the LinkedIn provider plus the two backend endpoints the
// exchange client talks to.
type Config struct {
	// AuthURL is LinkedIn's authorization endpoint.
	AuthURL string
	// ClientID is the registered application identifier. Public by design.
	ClientID string
	// RedirectURI is where LinkedIn sends the user back; it is bound to the
	// app's custom URI scheme (e.g. "linkup://linkedin-callback").
	RedirectURI string
	// CallbackScheme is the custom URI scheme the external user agent
	// intercepts, e.g. "linkup".
	CallbackScheme string
	// Scopes is the space-joined scope string requested at authorization.
	Scopes []string

	// ExchangeURL is the backend token-exchange endpoint (POST {code, redirect_uri}).
	ExchangeURL string
	// ImportURL is the backend import endpoint (POST {code, user_id, redirect_uri}).
	ImportURL string
	// ProfileURL and EmailURL are LinkedIn's profile and email-address
	// endpoints, used only on the token-only fallback path.
	ProfileURL string
	EmailURL   string
}

// Profile is the imported LinkedIn profile. The backend and LinkedIn both
// speak loosely-shaped JSON here, so the canonical representation is the raw
// field map; the accessors pull out the fields the engine cares about.
//
// The email merged in on the token-only path lives under EmailKey — tests
// and the orchestrator both rely on that key being stable.
type Profile struct {
	Fields map[string]any
}

// EmailKey is the stable key the verified primary email is merged under.
const EmailKey = "email"

func (p Profile) str(key string) string {
	if v, ok := p.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Email returns the verified primary email, if present.
func (p Profile) Email() string { return p.str(EmailKey) }

// FirstName and LastName return LinkedIn's localized name fields.
func (p Profile) FirstName() string { return p.str("localizedFirstName") }
func (p Profile) LastName() string  { return p.str("localizedLastName") }

// PictureURL returns the normalized avatar reference (see normalizePicture).
func (p Profile) PictureURL() string { return p.str("pictureUrl") }

// ImportID returns the backend-assigned import identifier, if the profile
// came through the import endpoint.
func (p Profile) ImportID() string { return p.str("importId") }

// DisplayName assembles a human-readable name from the profile: first+last,
// first alone, or the email local-part, in that order.
func (p Profile) DisplayName() string {
	first, last := p.FirstName(), p.LastName()
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	}
	if email := p.Email(); email != "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			return email[:at]
		}
	}
	return ""
}

// normalizePicture flattens LinkedIn's nested projection
// profilePicture.displayImage~.elements[].identifiers[].identifier into a
// single "pictureUrl" field, preferring the last (largest) element. Profiles
// without a picture are left untouched.
func normalizePicture(fields map[string]any) {
	pic, ok := fields["profilePicture"].(map[string]any)
	if !ok {
		return
	}
	display, ok := pic["displayImage~"].(map[string]any)
	if !ok {
		return
	}
	elements, ok := display["elements"].([]any)
	if !ok || len(elements) == 0 {
		return
	}
	last, ok := elements[len(elements)-1].(map[string]any)
	if !ok {
		return
	}
	identifiers, ok := last["identifiers"].([]any)
	if !ok || len(identifiers) == 0 {
		return
	}
	ident, ok := identifiers[0].(map[string]any)
	if !ok {
		return
	}
	if url, ok := ident["identifier"].(string); ok && url != "" {
		fields["pictureUrl"] = url
	}
}

// scopeString joins the configured scopes the way LinkedIn expects them.
func (c Config) scopeString() string {
	return strings.Join(c.Scopes, " ")
}

func (c Config) validate() error {
	if c.AuthURL == "" || c.ClientID == "" || c.RedirectURI == "" {
		return fmt.Errorf("linkedin: AuthURL, ClientID and RedirectURI are required")
	}
	return nil
}
