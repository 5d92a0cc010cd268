package distribution

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying Drive failures.
// Use errors.Is(err, distribution.ErrQuotaExceeded) to check.
var (
	ErrLocator  = errors.New("folder lookup failed")
	ErrUpload   = errors.New("upload failed")
	ErrNotFound = errors.New("folder not found")

	ErrQuotaExceeded    = errors.New("storage quota exceeded")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTargetNotFound   = errors.New("target location does not exist")
	ErrUnauthorized     = errors.New("credentials rejected")
	ErrUnavailable      = errors.New("drive temporarily unavailable")
	ErrBadRequest       = errors.New("bad request")

	ErrParentRequired  = errors.New("an explicit target folder is required; root uploads are disabled")
	ErrInvalidFileName = errors.New("please enter a valid file name")
)

// APIError carries the provider status of a failed Drive call
type APIError struct {
	StatusCode int
	Reason     string // Drive error reason, e.g. "storageQuotaExceeded"
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("drive: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// LocatorError reports a folder lookup that failed in transport,
// or, with ErrNotFound, a required folder that does not exist
type LocatorError struct {
	Name  string
	Scope Scope
	Err   error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locating folder %q in %s: %v", e.Name, e.Scope, e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}

// Is makes every LocatorError match ErrLocator
func (e *LocatorError) Is(target error) bool {
	return target == ErrLocator
}

// UploadError reports a failed upload, wrapping the classified cause
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %q: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is makes every UploadError match ErrUpload
func (e *UploadError) Is(target error) bool {
	return target == ErrUpload
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
