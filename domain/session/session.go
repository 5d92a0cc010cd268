package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
)

// State is a position in the session state machine
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Idle
	Generated
	Uploading
	Uploaded
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Idle:
		return "idle"
	case Generated:
		return "generated"
	case Uploading:
		return "uploading"
	case Uploaded:
		return "uploaded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Authenticated reports whether s is one of the signed-in substates
func (s State) Authenticated() bool {
	return s >= Idle
}

// ErrInvalidTransition is returned when an action is not allowed in the current state
var ErrInvalidTransition = errors.New("action not allowed in current state")

// Form holds the values the user last entered
type Form struct {
	Product     string
	Audience    string
	Tone        content.Tone
	FolderName  string
	FileName    string
	SharedDrive string
}

// Session is the per-user context object every controller action operates on.
// Lock must be held by the caller for the duration of one action.
type Session struct {
	sync.Mutex

	ID         string
	CreatedAt  time.Time
	State      State
	Credential *credential.Credential
	Form       Form
	Content    *content.GeneratedContent
	LastResult *distribution.UploadResult

	// Message is the last user-visible status or error text
	Message string
	// IsError reports whether Message describes a failure
	IsError bool

	// OAuthState is the anti-forgery value issued with a consent URL
	OAuthState string
}

// New creates an unauthenticated session
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, State: Unauthenticated}
}

func (s *Session) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, s.State)
}

// BeginAuthentication records the consent state and waits for the callback
func (s *Session) BeginAuthentication(oauthState string) error {
	if s.State != Unauthenticated && s.State != Authenticating {
		return s.invalid("start sign-in")
	}
	s.OAuthState = oauthState
	s.State = Authenticating
	return nil
}

// Authenticate stores the credential and moves to Idle
func (s *Session) Authenticate(cred *credential.Credential) error {
	if s.State != Unauthenticated && s.State != Authenticating {
		return s.invalid("sign in")
	}
	if cred == nil {
		return fmt.Errorf("%w: no credential", credential.ErrAuth)
	}
	s.Credential = cred
	s.OAuthState = ""
	s.State = Idle
	return nil
}

// CanGenerate reports whether a generation may start
func (s *Session) CanGenerate() error {
	switch s.State {
	case Idle, Generated, Uploaded:
		return nil
	default:
		return s.invalid("generate")
	}
}

// StoreContent replaces the held content with a fresh generation
func (s *Session) StoreContent(c *content.GeneratedContent) error {
	if err := s.CanGenerate(); err != nil {
		return err
	}
	s.Content = c
	s.LastResult = nil
	s.State = Generated
	return nil
}

// Edit replaces the preview text; parameters are kept
func (s *Session) Edit(text string) error {
	if s.Content == nil || (s.State != Generated && s.State != Uploaded) {
		return s.invalid("edit")
	}
	s.Content.Text = text
	s.State = Generated
	return nil
}

// BeginUpload marks an upload as in flight
func (s *Session) BeginUpload() error {
	if s.Content == nil || (s.State != Generated && s.State != Uploaded) {
		return s.invalid("upload")
	}
	s.State = Uploading
	return nil
}

// UploadSucceeded records the result of the in-flight upload
func (s *Session) UploadSucceeded(result *distribution.UploadResult) error {
	if s.State != Uploading {
		return s.invalid("complete upload")
	}
	s.LastResult = result
	s.State = Uploaded
	return nil
}

// UploadFailed returns to Generated, preserving content for a retry
func (s *Session) UploadFailed() error {
	if s.State != Uploading {
		return s.invalid("fail upload")
	}
	s.State = Generated
	return nil
}

// Logout clears the credential and every piece of held content
func (s *Session) Logout() {
	s.Credential = nil
	s.Content = nil
	s.LastResult = nil
	s.OAuthState = ""
	s.State = Unauthenticated
}

// SetMessage records a status line for the user
func (s *Session) SetMessage(msg string, isError bool) {
	s.Message = msg
	s.IsError = isError
}
