// Package config loads the process configuration from environment variables.
//
// Every knob has an env tag; defaults are chosen so a bare `PORT=8080
// TOKEN_SECRET=... server` starts a working local-mode instance. The
// LinkedIn block is optional — when CLIENT_ID is unset the import surface
// simply reports itself unconfigured.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/sakif/linkup/internal/session"
)

// Config is the full process configuration.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"linkup.db"`

	// TokenSecret signs session bearer tokens. Must be at least 16 bytes.
	TokenSecret string `env:"TOKEN_SECRET,required,notEmpty"`

	// Mode selects the account mode: remote, local, or remote_with_fallback.
	Mode string `env:"AUTH_MODE" envDefault:"remote"`

	// BackendBaseURL is the identity service root. Required for the remote
	// modes; ignored in local mode.
	BackendBaseURL string `env:"BACKEND_BASE_URL"`

	LinkedIn LinkedIn `envPrefix:"LINKEDIN_"`
}

// LinkedIn configures the profile-import provider endpoints.
type LinkedIn struct {
	ClientID       string   `env:"CLIENT_ID"`
	AuthURL        string   `env:"AUTH_URL" envDefault:"https://www.linkedin.com/oauth/v2/authorization"`
	RedirectURI    string   `env:"REDIRECT_URI"`
	CallbackScheme string   `env:"CALLBACK_SCHEME" envDefault:"linkup"`
	Scopes         []string `env:"SCOPES" envDefault:"r_liteprofile,r_emailaddress" envSeparator:","`
	ExchangeURL    string   `env:"EXCHANGE_URL"`
	ImportURL      string   `env:"IMPORT_URL"`
	ProfileURL     string   `env:"PROFILE_URL" envDefault:"https://api.linkedin.com/v2/me"`
	EmailURL       string   `env:"EMAIL_URL" envDefault:"https://api.linkedin.com/v2/emailAddress?q=members&projection=(elements*(handle~))"`
}

// Enabled reports whether the LinkedIn import is configured at all.
func (l LinkedIn) Enabled() bool {
	return l.ClientID != ""
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.SessionMode(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SessionMode maps the AUTH_MODE string onto the orchestrator's mode.
func (c Config) SessionMode() (session.Mode, error) {
	switch c.Mode {
	case "remote":
		return session.ModeRemote, nil
	case "local":
		return session.ModeLocal, nil
	case "remote_with_fallback":
		return session.ModeRemoteWithFallback, nil
	default:
		return 0, fmt.Errorf("unknown AUTH_MODE %q (want remote, local, or remote_with_fallback)", c.Mode)
	}
}
