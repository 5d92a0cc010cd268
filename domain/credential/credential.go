package credential

import (
	"fmt"
	"strings"
	"time"
)

// Strategy identifies how authorization material is obtained
type Strategy int

const (
	// InstalledApp uses a desktop OAuth client and a persisted token file
	InstalledApp Strategy = iota + 1
	// ServiceAccount uses a non-interactive service-account key
	ServiceAccount
	// WebOAuth uses the authorization-code flow with session-held tokens
	WebOAuth
)

// String returns the configuration name of the strategy
func (s Strategy) String() string {
	switch s {
	case InstalledApp:
		return "installed_app"
	case ServiceAccount:
		return "service_account"
	case WebOAuth:
		return "web_oauth"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy converts a configuration value into a Strategy.
// Hyphens and case are ignored, so "Service-Account" is accepted.
func ParseStrategy(value string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch normalized {
	case "installed_app", "installed":
		return InstalledApp, nil
	case "service_account":
		return ServiceAccount, nil
	case "web_oauth", "web":
		return WebOAuth, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", ErrAuth, value)
	}
}

// Credential holds the authorization material for one identity
type Credential struct {
	Strategy     Strategy
	AccessToken  string
	RefreshToken string // Empty when the provider issued no refresh token
	TokenType    string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       time.Time // Zero means the token does not expire

	// Subject is the identity email, set for service accounts so users
	// know which address a folder must be shared with.
	Subject string

	// ServiceAccountKey is the raw key JSON for ServiceAccount credentials
	ServiceAccountKey []byte
}

// Expired reports whether the access token is past its expiry at now
func (c *Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry)
}

// CanRefresh reports whether an expired credential can be renewed without
// user interaction
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Validate checks that the credential carries material for its strategy
func (c *Credential) Validate() error {
	switch c.Strategy {
	case ServiceAccount:
		if len(c.ServiceAccountKey) == 0 {
			return fmt.Errorf("%w: service account key", ErrMissingConfig)
		}
	case InstalledApp, WebOAuth:
		if c.AccessToken == "" && c.RefreshToken == "" {
			return fmt.Errorf("%w: no token for %s credential", ErrAuth, c.Strategy)
		}
		if c.ClientID == "" {
			return fmt.Errorf("%w: client id", ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown strategy", ErrAuth)
	}
	return nil
}

// Identity returns a human-readable name for the authorizing identity
func (c *Credential) Identity() string {
	if c.Subject != "" {
		return c.Subject
	}
	return "the signed-in Google account"
}
