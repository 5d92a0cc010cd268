package content

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration is the root of every content generation failure
	ErrGeneration = errors.New("content generation failed")

	// ErrEmptyResponse is returned when the provider answers without text
	ErrEmptyResponse = fmt.Errorf("%w: provider returned no text", ErrGeneration)

	// ErrProviderUnavailable marks transient provider failures (timeouts, 429, 5xx)
	ErrProviderUnavailable = errors.New("content provider unavailable")

	// ErrMissingProduct is returned when the product field is blank
	ErrMissingProduct = errors.New("product name is required")

	// ErrMissingAudience is returned when the audience field is blank
	ErrMissingAudience = errors.New("target audience is required")

	// ErrUnknownTone is returned for tones outside the offered list
	ErrUnknownTone = errors.New("unknown tone")
)
