package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appdist "marketing-export/application/distribution"
	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/domain/session"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/retry"

	"github.com/google/uuid"
)

// Authenticator is the credential store the controller signs users in with
type Authenticator interface {
	Acquire(ctx context.Context, strategy credential.Strategy, cfg auth.Config) (*credential.Credential, error)
	AuthCodeURL(cfg auth.Config, state string) (string, error)
	Exchange(ctx context.Context, cfg auth.Config, code string) (*credential.Credential, error)
}

// ContentGenerator produces marketing copy for form parameters
type ContentGenerator interface {
	Generate(ctx context.Context, params content.Parameters) (*content.GeneratedContent, error)
}

// DriveConnector opens a Drive client authorized by cred
type DriveConnector interface {
	Connect(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error)
}

// DriveConnectorFunc adapts a function to DriveConnector
type DriveConnectorFunc func(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error)

// Connect implements DriveConnector
func (f DriveConnectorFunc) Connect(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error) {
	return f(ctx, cred)
}

// Observer receives the outcome of each controller action
type Observer interface {
	ObserveSignIn(strategy, outcome string)
	ObserveGeneration(outcome string, elapsed time.Duration)
	ObserveUpload(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSignIn(string, string)            {}
func (nopObserver) ObserveGeneration(string, time.Duration) {}
func (nopObserver) ObserveUpload(string, time.Duration)     {}

// Config holds the controller's fixed settings
type Config struct {
	Strategy        credential.Strategy
	Auth            auth.Config
	FolderName      string // Default target folder
	FolderID        string // Overrides FolderName when set
	FileName        string
	SharedDrive     string
	AllDrives       bool
	CreateFolder    bool
	AllowRootUpload bool
	Retry           retry.Policy
}

// UploadOptions are the per-upload choices. Empty fields fall back to Config.
type UploadOptions struct {
	FolderName      string
	FolderID        string
	FileName        string
	SharedDrive     string
	ToRoot          bool // Upload without a parent folder
	ReplaceExisting bool
	ShareWith       []distribution.Grant
}

// Controller runs the sign-in, generate, edit and upload actions for a session.
// Each action locks the session for its duration.
type Controller struct {
	auth      Authenticator
	generator ContentGenerator
	drive     DriveConnector
	observer  Observer
	config    Config
	logger    *slog.Logger
}

// Option is a functional option for configuring Controller
type Option func(*Controller)

// WithObserver sets the action observer
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a new controller
func NewController(authn Authenticator, generator ContentGenerator, drive DriveConnector, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		auth:      authn,
		generator: generator,
		drive:     drive,
		observer:  nopObserver{},
		config:    cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategy returns the configured authentication strategy
func (c *Controller) Strategy() credential.Strategy {
	return c.config.Strategy
}

// NewSession creates a session with the form prefilled from configuration
func (c *Controller) NewSession(now time.Time) *session.Session {
	sess := session.New(uuid.NewString(), now)
	sess.Form = session.Form{
		Tone:        content.ToneProfessional,
		FolderName:  c.config.FolderName,
		FileName:    c.config.FileName,
		SharedDrive: c.config.SharedDrive,
	}
	return sess
}

// SignIn authenticates the session. For WebOAuth it returns the consent URL
// the user must visit; the other strategies complete immediately.
func (c *Controller) SignIn(ctx context.Context, sess *session.Session) (string, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.State.Authenticated() {
		return "", nil
	}

	if c.config.Strategy == credential.WebOAuth {
		state := uuid.NewString()
		authURL, err := c.auth.AuthCodeURL(c.config.Auth, state)
		if err != nil {
			return "", c.fail(sess, err, "sign in")
		}
		if err := sess.BeginAuthentication(state); err != nil {
			return "", c.fail(sess, err, "sign in")
		}
		sess.SetMessage("Continue signing in with Google.", false)
		return authURL, nil
	}

	cred, err := c.auth.Acquire(ctx, c.config.Strategy, c.config.Auth)
	if err != nil {
		c.observer.ObserveSignIn(c.config.Strategy.String(), "error")
		return "", c.fail(sess, err, "sign in")
	}
	if err := sess.Authenticate(cred); err != nil {
		return "", c.fail(sess, err, "sign in")
	}

	c.observer.ObserveSignIn(c.config.Strategy.String(), "ok")
	c.logger.Info("signed in", slog.String("session", sess.ID), slog.String("strategy", cred.Strategy.String()))
	sess.SetMessage(fmt.Sprintf("Signed in as %s.", cred.Identity()), false)
	return "", nil
}

// CompleteSignIn finishes a WebOAuth sign-in with the callback's state and code
func (c *Controller) CompleteSignIn(ctx context.Context, sess *session.Session, state, code string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.State != session.Authenticating {
		return c.fail(sess, fmt.Errorf("%w: no sign-in in progress", session.ErrInvalidTransition), "complete sign-in")
	}
	if state == "" || state != sess.OAuthState {
		c.observer.ObserveSignIn(c.config.Strategy.String(), "error")
		return c.fail(sess, credential.ErrStateMismatch, "complete sign-in")
	}

	cred, err := c.auth.Exchange(ctx, c.config.Auth, code)
	if err != nil {
		c.observer.ObserveSignIn(c.config.Strategy.String(), "error")
		return c.fail(sess, err, "complete sign-in")
	}
	if err := sess.Authenticate(cred); err != nil {
		return c.fail(sess, err, "complete sign-in")
	}

	c.observer.ObserveSignIn(c.config.Strategy.String(), "ok")
	c.logger.Info("signed in", slog.String("session", sess.ID), slog.String("strategy", cred.Strategy.String()))
	sess.SetMessage(fmt.Sprintf("Signed in as %s.", cred.Identity()), false)
	return nil
}

// Generate asks the provider for copy. On failure the session keeps its
// previous state and content.
func (c *Controller) Generate(ctx context.Context, sess *session.Session, params content.Parameters) (*content.GeneratedContent, error) {
	sess.Lock()
	defer sess.Unlock()

	if err := sess.CanGenerate(); err != nil {
		return nil, c.fail(sess, err, "generate")
	}

	sess.Form.Product = params.Product
	sess.Form.Audience = params.Audience
	sess.Form.Tone = params.Tone

	start := time.Now()
	generated, err := c.generator.Generate(ctx, params)
	if err != nil {
		c.observer.ObserveGeneration("error", time.Since(start))
		return nil, c.fail(sess, err, "generate")
	}
	if err := sess.StoreContent(generated); err != nil {
		return nil, c.fail(sess, err, "generate")
	}

	c.observer.ObserveGeneration("ok", time.Since(start))
	sess.SetMessage("Content generated. Review and edit it before uploading.", false)
	return generated, nil
}

// Edit replaces the generated text with the user's version
func (c *Controller) Edit(sess *session.Session, text string) error {
	sess.Lock()
	defer sess.Unlock()

	if err := sess.Edit(text); err != nil {
		return c.fail(sess, err, "edit")
	}
	sess.SetMessage("Changes saved.", false)
	return nil
}

// Upload resolves the target folder and exports the held content.
// Nothing is uploaded when the folder cannot be resolved. On failure the
// content is kept so the user can retry.
func (c *Controller) Upload(ctx context.Context, sess *session.Session, opts UploadOptions) (*distribution.UploadResult, error) {
	sess.Lock()
	defer sess.Unlock()

	if err := sess.BeginUpload(); err != nil {
		return nil, c.fail(sess, err, "upload")
	}

	start := time.Now()
	result, err := c.upload(ctx, sess, opts)
	if err != nil {
		c.observer.ObserveUpload(outcome(err), time.Since(start))
		_ = sess.UploadFailed()
		return nil, c.fail(sess, err, "upload")
	}
	if err := sess.UploadSucceeded(result); err != nil {
		return nil, c.fail(sess, err, "upload")
	}

	c.observer.ObserveUpload("ok", time.Since(start))
	msg := fmt.Sprintf("Uploaded %s (%d bytes).", result.FileName, result.Size)
	if len(result.Warnings) > 0 {
		msg += " " + strings.Join(result.Warnings, "; ")
	}
	sess.SetMessage(msg, false)
	return result, nil
}

func (c *Controller) upload(ctx context.Context, sess *session.Session, opts UploadOptions) (*distribution.UploadResult, error) {
	fileName := opts.FileName
	if fileName == "" {
		fileName = firstNonEmpty(sess.Form.FileName, c.config.FileName)
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, &distribution.UploadError{FileName: fileName, Err: distribution.ErrInvalidFileName}
	}
	sess.Form.FileName = fileName

	client, err := c.drive.Connect(ctx, sess.Credential)
	if err != nil {
		return nil, err
	}

	req := distribution.UploadRequest{
		FileName:        fileName,
		Content:         []byte(sess.Content.Text),
		MimeType:        distribution.MimeTypeText,
		AllowRoot:       c.config.AllowRootUpload,
		ReplaceExisting: opts.ReplaceExisting,
		ShareWith:       opts.ShareWith,
	}

	if !opts.ToRoot {
		spec := c.targetSpec(sess, opts)
		target, err := appdist.NewLocator(client, c.config.Retry, c.logger).Locate(ctx, spec)
		if err != nil {
			return nil, err
		}
		req.Parent = target
	}

	return appdist.NewUploadService(client, c.config.Retry, nil, c.logger).Upload(ctx, req)
}

func (c *Controller) targetSpec(sess *session.Session, opts UploadOptions) appdist.TargetSpec {
	spec := appdist.TargetSpec{
		FolderName: firstNonEmpty(opts.FolderName, sess.Form.FolderName, c.config.FolderName),
		FolderID:   opts.FolderID,
		Scope: distribution.Scope{
			SharedDrive: firstNonEmpty(opts.SharedDrive, sess.Form.SharedDrive, c.config.SharedDrive),
			AllDrives:   c.config.AllDrives,
		},
		Create: c.config.CreateFolder,
	}
	// A configured folder ID only applies to the configured folder
	if spec.FolderID == "" && spec.FolderName == c.config.FolderName {
		spec.FolderID = c.config.FolderID
	}
	sess.Form.FolderName = spec.FolderName
	sess.Form.SharedDrive = spec.Scope.SharedDrive
	return spec
}

// Logout drops the session's credential and content. An installed-app
// token file is shared by every session of the process and stays in place;
// "auth logout" removes it.
func (c *Controller) Logout(ctx context.Context, sess *session.Session) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Credential != nil {
		c.logger.Info("signed out", slog.String("session", sess.ID), slog.String("strategy", sess.Credential.Strategy.String()))
	}
	sess.Logout()
	sess.SetMessage("Signed out.", false)
	return nil
}

// fail records err on the session and returns it
func (c *Controller) fail(sess *session.Session, err error, action string) error {
	c.logger.Warn("action failed",
		slog.String("session", sess.ID),
		slog.String("action", action),
		slog.String("state", sess.State.String()),
		slog.String("error", err.Error()),
	)
	sess.SetMessage(Describe(err, sess.Credential), true)
	return err
}

func outcome(err error) string {
	switch {
	case errors.Is(err, distribution.ErrLocator):
		return "locator_error"
	case errors.Is(err, distribution.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, credential.ErrAuth):
		return "auth_error"
	default:
		return "error"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
