package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"marketing-export/domain/credential"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// expiryDelta treats tokens this close to expiry as expired
const expiryDelta = 10 * time.Second

// Store acquires, refreshes and clears credentials for every strategy
type Store struct {
	consent Consent
	now     func() time.Time
	logger  *slog.Logger
}

// StoreOption is a functional option for configuring Store
type StoreOption func(*Store)

// WithConsent sets the interactive consent flow used by InstalledApp
func WithConsent(c Consent) StoreOption {
	return func(s *Store) {
		s.consent = c
	}
}

// WithClock sets the time source (for testing)
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a credential store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns a usable credential for strategy.
// WebOAuth always returns credential.ErrAuthorizationRequired; callers use
// AuthCodeURL and Exchange instead.
func (s *Store) Acquire(ctx context.Context, strategy credential.Strategy, cfg Config) (*credential.Credential, error) {
	switch strategy {
	case credential.InstalledApp:
		return s.acquireInstalled(ctx, cfg)
	case credential.ServiceAccount:
		return s.acquireServiceAccount(cfg)
	case credential.WebOAuth:
		return nil, credential.ErrAuthorizationRequired
	default:
		return nil, fmt.Errorf("%w: unknown strategy %s", credential.ErrAuth, strategy)
	}
}

// Cached returns the credential available without user interaction, or
// credential.ErrAuthorizationRequired when there is none
func (s *Store) Cached(strategy credential.Strategy, cfg Config) (*credential.Credential, error) {
	switch strategy {
	case credential.InstalledApp:
		if cfg.TokenFile == "" {
			return nil, fmt.Errorf("%w: google.token_file", credential.ErrMissingConfig)
		}
		oc, err := cfg.oauthConfig()
		if err != nil {
			return nil, err
		}
		tok, scopes, err := loadToken(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", credential.ErrAuth, err)
		}
		if tok == nil {
			return nil, credential.ErrAuthorizationRequired
		}
		return fromToken(credential.InstalledApp, tok, oc, scopes), nil
	case credential.ServiceAccount:
		return s.acquireServiceAccount(cfg)
	default:
		return nil, credential.ErrAuthorizationRequired
	}
}

func (s *Store) acquireInstalled(ctx context.Context, cfg Config) (*credential.Credential, error) {
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("%w: google.token_file", credential.ErrMissingConfig)
	}
	oc, err := cfg.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, scopes, err := loadToken(cfg.TokenFile)
	if err != nil {
		// A corrupt cache is replaced by a fresh consent
		s.logger.Warn("ignoring unreadable token file", slog.String("path", cfg.TokenFile), slog.String("error", err.Error()))
		tok = nil
	}

	if tok != nil {
		cred := fromToken(credential.InstalledApp, tok, oc, scopes)
		if !cred.Expired(s.now().Add(expiryDelta)) {
			return cred, nil
		}
		if cred.CanRefresh() {
			refreshed, err := oc.TokenSource(ctx, tok).Token()
			if err == nil {
				if err := saveToken(cfg.TokenFile, refreshed, oc.Scopes); err != nil {
					return nil, fmt.Errorf("%w: %w", credential.ErrAuth, err)
				}
				s.logger.Info("refreshed installed-app token", slog.Time("expiry", refreshed.Expiry))
				return fromToken(credential.InstalledApp, refreshed, oc, oc.Scopes), nil
			}
			s.logger.Warn("token refresh failed, re-authorizing", slog.String("error", err.Error()))
		}
	}

	if s.consent == nil {
		return nil, credential.ErrAuthorizationRequired
	}

	state := uuid.NewString()
	oc.RedirectURL = s.consent.RedirectURL()
	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	code, err := s.consent.Authorize(ctx, authURL, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", credential.ErrAuth, err)
	}

	tok, err = oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to exchange auth code: %w", credential.ErrAuth, err)
	}

	if err := saveToken(cfg.TokenFile, tok, oc.Scopes); err != nil {
		return nil, fmt.Errorf("%w: %w", credential.ErrAuth, err)
	}

	s.logger.Info("installed-app authorization complete", slog.String("token_file", cfg.TokenFile))
	return fromToken(credential.InstalledApp, tok, oc, oc.Scopes), nil
}

func (s *Store) acquireServiceAccount(cfg Config) (*credential.Credential, error) {
	if cfg.ServiceAccountFile == "" {
		return nil, fmt.Errorf("%w: google.service_account_file", credential.ErrMissingConfig)
	}
	key, err := os.ReadFile(cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read service account key: %v", credential.ErrMissingConfig, err)
	}

	jwt, err := google.JWTConfigFromJSON(key, cfg.scopes()...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse service account key: %w", credential.ErrAuth, err)
	}

	return &credential.Credential{
		Strategy:          credential.ServiceAccount,
		Scopes:            jwt.Scopes,
		Subject:           jwt.Email,
		ServiceAccountKey: key,
	}, nil
}

// AuthCodeURL returns the consent page URL for the WebOAuth flow
func (s *Store) AuthCodeURL(cfg Config, state string) (string, error) {
	if cfg.RedirectURL == "" {
		return "", fmt.Errorf("%w: google.redirect_url", credential.ErrMissingConfig)
	}
	oc, err := cfg.oauthConfig()
	if err != nil {
		return "", err
	}
	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades a WebOAuth authorization code for a session-held credential
func (s *Store) Exchange(ctx context.Context, cfg Config, code string) (*credential.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", credential.ErrAuth)
	}
	oc, err := cfg.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to exchange auth code: %w", credential.ErrAuth, err)
	}
	return fromToken(credential.WebOAuth, tok, oc, oc.Scopes), nil
}

// Clear invalidates the persisted credential for strategy
func (s *Store) Clear(strategy credential.Strategy, cfg Config) error {
	if strategy != credential.InstalledApp || cfg.TokenFile == "" {
		return nil
	}
	if err := removeToken(cfg.TokenFile); err != nil {
		return fmt.Errorf("%w: %w", credential.ErrAuth, err)
	}
	s.logger.Info("cleared installed-app token", slog.String("token_file", cfg.TokenFile))
	return nil
}

// HTTPClient returns an authorized client. Expired OAuth tokens are
// refreshed on use; InstalledApp refreshes are written back to the token file.
func (s *Store) HTTPClient(ctx context.Context, cred *credential.Credential, cfg Config) (*http.Client, error) {
	if cred == nil {
		return nil, credential.ErrAuthorizationRequired
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	if cred.Strategy == credential.ServiceAccount {
		scopes := cred.Scopes
		if len(scopes) == 0 {
			scopes = cfg.scopes()
		}
		jwt, err := google.JWTConfigFromJSON(cred.ServiceAccountKey, scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to parse service account key: %w", credential.ErrAuth, err)
		}
		return jwt.Client(ctx), nil
	}

	if cred.Expired(s.now()) && !cred.CanRefresh() {
		return nil, credential.ErrExpired
	}

	oc := cfg.credentialConfig(cred)
	src := &persistingTokenSource{
		base: oc.TokenSource(ctx, toToken(cred)),
		last: cred.AccessToken,
		onRefresh: func(tok *oauth2.Token) {
			cred.AccessToken = tok.AccessToken
			cred.Expiry = tok.Expiry
			if tok.RefreshToken != "" {
				cred.RefreshToken = tok.RefreshToken
			}
			if cred.Strategy == credential.InstalledApp && cfg.TokenFile != "" {
				if err := saveToken(cfg.TokenFile, tok, oc.Scopes); err != nil {
					s.logger.Warn("couldn't save refreshed token", slog.String("error", err.Error()))
				}
			}
		},
	}
	return oauth2.NewClient(ctx, src), nil
}

// persistingTokenSource reports each new access token to onRefresh
type persistingTokenSource struct {
	mu        sync.Mutex
	base      oauth2.TokenSource
	last      string
	onRefresh func(*oauth2.Token)
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		p.onRefresh(tok)
	}
	return tok, nil
}

func toToken(cred *credential.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		TokenType:    cred.TokenType,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}
}

func fromToken(strategy credential.Strategy, tok *oauth2.Token, oc *oauth2.Config, scopes []string) *credential.Credential {
	if len(scopes) == 0 {
		scopes = oc.Scopes
	}
	return &credential.Credential{
		Strategy:     strategy,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Scopes:       scopes,
		Expiry:       tok.Expiry,
	}
}
