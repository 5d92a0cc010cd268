package drive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"marketing-export/domain/distribution"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Drive error reasons that change classification
const (
	reasonStorageQuotaExceeded = "storageQuotaExceeded"
	reasonRateLimitExceeded    = "rateLimitExceeded"
	reasonUserRateLimit        = "userRateLimitExceeded"
	reasonNotFound             = "notFound"
)

// classifyError maps a Drive API or transport error to a typed error
// carrying a distribution sentinel. Returns nil for nil.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 {
			reason = gerr.Errors[0].Reason
		}
		return &distribution.APIError{
			StatusCode: gerr.Code,
			Reason:     reason,
			Message:    gerr.Message,
			Err:        classifyStatus(gerr.Code, reason, gerr.Message),
		}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		code := http.StatusUnauthorized
		if rerr.Response != nil {
			code = rerr.Response.StatusCode
		}
		return &distribution.APIError{
			StatusCode: code,
			Reason:     rerr.ErrorCode,
			Message:    "token refresh failed",
			Err:        distribution.ErrUnauthorized,
		}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", distribution.ErrUnavailable, err)
	}

	return err
}

// classifyStatus picks the sentinel for an HTTP status and Drive reason
func classifyStatus(code int, reason, message string) error {
	if reason == reasonStorageQuotaExceeded || strings.Contains(strings.ToLower(message), "do not have storage quota") {
		return distribution.ErrQuotaExceeded
	}

	switch code {
	case http.StatusBadRequest:
		return distribution.ErrBadRequest
	case http.StatusUnauthorized:
		return distribution.ErrUnauthorized
	case http.StatusForbidden:
		if reason == reasonRateLimitExceeded || reason == reasonUserRateLimit {
			return distribution.ErrUnavailable
		}
		return distribution.ErrPermissionDenied
	case http.StatusNotFound:
		return distribution.ErrTargetNotFound
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return distribution.ErrUnavailable
	default:
		if code >= http.StatusInternalServerError {
			return distribution.ErrUnavailable
		}
		if reason == reasonNotFound {
			return distribution.ErrTargetNotFound
		}
		return distribution.ErrBadRequest
	}
}
