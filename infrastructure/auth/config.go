package auth

import (
	"fmt"
	"os"

	"marketing-export/domain/credential"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// DefaultCallbackPort is the local port used for the installed-app consent callback
const DefaultCallbackPort = 8085

// Config holds the settings every strategy draws from
type Config struct {
	CredentialsFile    string // OAuth client JSON downloaded from the Cloud console
	TokenFile          string // InstalledApp token cache
	ServiceAccountFile string // Service account key JSON
	ClientID           string // Used when CredentialsFile is empty
	ClientSecret       string
	RedirectURL        string // WebOAuth callback registered with the client
	Scopes             []string
	CallbackPort       int

	// Endpoint overrides the Google endpoint, for tests
	Endpoint oauth2.Endpoint
}

func (c Config) scopes() []string {
	if len(c.Scopes) == 0 {
		return []string{drive.DriveScope}
	}
	return c.Scopes
}

func (c Config) endpoint() oauth2.Endpoint {
	if c.Endpoint.TokenURL == "" {
		return google.Endpoint
	}
	return c.Endpoint
}

// oauthConfig builds the OAuth client configuration from the credentials
// file when set, otherwise from the client ID and secret
func (c Config) oauthConfig() (*oauth2.Config, error) {
	if c.CredentialsFile != "" {
		b, err := os.ReadFile(c.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to read OAuth credentials file: %v", credential.ErrMissingConfig, err)
		}
		oc, err := google.ConfigFromJSON(b, c.scopes()...)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to parse OAuth credentials: %w", credential.ErrAuth, err)
		}
		if c.Endpoint.TokenURL != "" {
			oc.Endpoint = c.Endpoint
		}
		if c.RedirectURL != "" {
			oc.RedirectURL = c.RedirectURL
		}
		return oc, nil
	}

	if c.ClientID == "" {
		return nil, fmt.Errorf("%w: google.client_id or google.credentials_file", credential.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google.client_secret", credential.ErrMissingConfig)
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     c.endpoint(),
		RedirectURL:  c.RedirectURL,
		Scopes:       c.scopes(),
	}, nil
}

// credentialConfig rebuilds the OAuth client configuration held by a credential
func (c Config) credentialConfig(cred *credential.Credential) *oauth2.Config {
	scopes := cred.Scopes
	if len(scopes) == 0 {
		scopes = c.scopes()
	}
	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     c.endpoint(),
		Scopes:       scopes,
	}
}
