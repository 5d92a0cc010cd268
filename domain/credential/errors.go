package credential

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is the root of every authentication failure
	ErrAuth = errors.New("authentication failed")

	// ErrMissingConfig is returned when a strategy lacks required configuration
	ErrMissingConfig = fmt.Errorf("%w: missing configuration", ErrAuth)

	// ErrAuthorizationRequired is returned when the user must complete a
	// browser consent step before a credential exists
	ErrAuthorizationRequired = fmt.Errorf("%w: authorization required", ErrAuth)

	// ErrStateMismatch is returned when an OAuth callback carries an unknown state
	ErrStateMismatch = fmt.Errorf("%w: state mismatch", ErrAuth)

	// ErrExpired is returned when a credential expired and cannot be refreshed
	ErrExpired = fmt.Errorf("%w: credential expired", ErrAuth)
)
