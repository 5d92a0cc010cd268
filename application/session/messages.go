package session

import (
	"errors"
	"fmt"

	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/domain/session"
)

// UserMessage renders err as a sentence for the form's status line
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var locErr *distribution.LocatorError
	var apiErr *distribution.APIError

	switch {
	// Input problems
	case errors.Is(err, distribution.ErrInvalidFileName):
		return "Please enter a valid file name."
	case errors.Is(err, content.ErrMissingProduct):
		return "Please enter a product name."
	case errors.Is(err, content.ErrMissingAudience):
		return "Please enter a target audience."
	case errors.Is(err, content.ErrUnknownTone):
		return "Please choose one of the offered tones."

	// Sign-in
	case errors.Is(err, credential.ErrMissingConfig):
		return fmt.Sprintf("Sign-in is not configured: %v.", err)
	case errors.Is(err, credential.ErrStateMismatch):
		return "Sign-in could not be verified. Please start again."
	case errors.Is(err, credential.ErrExpired), errors.Is(err, distribution.ErrUnauthorized):
		return "Your Google sign-in has expired or was revoked. Please sign in again."
	case errors.Is(err, credential.ErrAuthorizationRequired):
		return "Please sign in with Google first."
	case errors.Is(err, credential.ErrAuth):
		return fmt.Sprintf("Sign-in failed: %v.", err)

	// Folder lookup
	case errors.As(err, &locErr) && errors.Is(err, distribution.ErrNotFound):
		return fmt.Sprintf("Folder %q was not found in %s.", locErr.Name, locErr.Scope)
	case errors.As(err, &locErr):
		return fmt.Sprintf("Could not look up folder %q: %s.", locErr.Name, causeText(locErr.Err))

	// Upload
	case errors.Is(err, distribution.ErrQuotaExceeded):
		return "Upload failed: the signed-in identity has no Drive storage quota left. " +
			"Service accounts own no storage, so upload into a shared drive or a folder shared with the account."
	case errors.Is(err, distribution.ErrParentRequired):
		return "Please choose a target folder. Uploads to the Drive root are disabled."
	case errors.Is(err, distribution.ErrPermissionDenied):
		return "Upload failed: permission denied on the target folder."
	case errors.Is(err, distribution.ErrTargetNotFound):
		return "Upload failed: the target folder no longer exists."
	case errors.Is(err, distribution.ErrUnavailable):
		return "Google Drive is temporarily unavailable. Please try again."
	case errors.Is(err, distribution.ErrUpload):
		return fmt.Sprintf("Upload failed: %s.", causeText(errors.Unwrap(err)))

	// Generation
	case errors.Is(err, content.ErrProviderUnavailable):
		return "The content provider is busy or unreachable. Please try again."
	case errors.Is(err, content.ErrEmptyResponse):
		return "The content provider returned no text. Please try again."
	case errors.Is(err, content.ErrGeneration):
		return fmt.Sprintf("Content generation failed: %v.", err)

	case errors.Is(err, session.ErrInvalidTransition):
		return "That action is not available right now. Sign in and generate content first."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Google Drive error: %s.", apiErr.Message)
	default:
		return fmt.Sprintf("Something went wrong: %v.", err)
	}
}

// Describe renders err and adds a remediation hint naming the identity
// that needs access, when one applies
func Describe(err error, cred *credential.Credential) string {
	msg := UserMessage(err)
	if cred == nil {
		return msg
	}

	switch {
	case errors.Is(err, distribution.ErrLocator) && errors.Is(err, distribution.ErrNotFound),
		errors.Is(err, distribution.ErrPermissionDenied):
		return msg + fmt.Sprintf(" Check the name, or share the folder with %s as an editor.", cred.Identity())
	default:
		return msg
	}
}

func causeText(err error) string {
	var apiErr *distribution.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
