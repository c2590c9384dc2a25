package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy every raw failure is mapped into before
// being retried or surfaced.
type ErrorKind string

const (
	KindNetworkUnavailable   ErrorKind = "network_unavailable"
	KindNetworkError         ErrorKind = "network_error"
	KindTimeout              ErrorKind = "timeout"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindServerError          ErrorKind = "server_error"
	KindValidationError      ErrorKind = "validation_error"
	KindDataCorruption       ErrorKind = "data_corruption"
	KindStorageError         ErrorKind = "storage_error"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindQuotaExceeded        ErrorKind = "quota_exceeded"
	KindMaxRetriesExceeded   ErrorKind = "max_retries_exceeded"
	KindUnknown              ErrorKind = "unknown"
)

// AppError is the classified form of a failure. Immutable value; the
// underlying cause is kept for errors.Is/As chains.
type AppError struct {
	Kind    ErrorKind
	Message string
	Op      string // logical operation context, e.g. "loadFeed"
	Cause   error
}

func (e *AppError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on kind so callers can compare against sentinel AppErrors.
func (e *AppError) Is(target error) bool {
	var ae *AppError
	if errors.As(target, &ae) {
		return e.Kind == ae.Kind
	}
	return false
}

// NewError creates an AppError with no underlying cause.
func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WrapError creates an AppError preserving the underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// Retryable reports whether transparent retry is worthwhile for this kind.
// Transient network and server failures qualify; everything else needs a
// human or a code change.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetworkUnavailable, KindTimeout, KindServerError:
		return true
	default:
		return false
	}
}

// Presentation describes how an error should be shown to the user by a
// client subscribed to the error reporter.
type Presentation struct {
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Recovery string `json:"recovery,omitempty"`
	CanRetry bool   `json:"can_retry"`
}

// Presentation returns the user-facing affordances for this kind. Retryable
// kinds (and exhausted retries) carry a retry affordance; the rest only get
// a recovery suggestion and a dismiss.
func (k ErrorKind) Presentation() Presentation {
	switch k {
	case KindNetworkUnavailable:
		return Presentation{Title: "No Connection", Icon: "wifi-off", Recovery: "Check your internet connection and try again.", CanRetry: true}
	case KindNetworkError:
		return Presentation{Title: "Network Error", Icon: "wifi-alert", Recovery: "Something went wrong on the network. Try again in a moment.", CanRetry: true}
	case KindTimeout:
		return Presentation{Title: "Request Timed Out", Icon: "clock", Recovery: "The server took too long to respond. Try again.", CanRetry: true}
	case KindUnauthorized:
		return Presentation{Title: "Not Authorized", Icon: "lock", Recovery: "Sign in again to continue."}
	case KindServerError:
		return Presentation{Title: "Server Error", Icon: "server-off", Recovery: "The service is having trouble. Try again shortly.", CanRetry: true}
	case KindValidationError:
		return Presentation{Title: "Invalid Data", Icon: "alert-circle", Recovery: "Check your input and try again."}
	case KindDataCorruption:
		return Presentation{Title: "Data Error", Icon: "database-alert", Recovery: "The data could not be read. Contact support if this persists."}
	case KindStorageError:
		return Presentation{Title: "Storage Error", Icon: "database-off", Recovery: "Local storage failed. Free up space and try again."}
	case KindAuthenticationFailed:
		return Presentation{Title: "Sign-In Failed", Icon: "user-x", Recovery: "Check your credentials and sign in again."}
	case KindPermissionDenied:
		return Presentation{Title: "Permission Denied", Icon: "shield-off", Recovery: "You don't have access to this. Check app permissions."}
	case KindQuotaExceeded:
		return Presentation{Title: "Limit Reached", Icon: "gauge", Recovery: "You've hit a usage limit. Try again later."}
	case KindMaxRetriesExceeded:
		return Presentation{Title: "Still Failing", Icon: "refresh-off", Recovery: "We tried several times without luck. Try again later.", CanRetry: true}
	default:
		return Presentation{Title: "Something Went Wrong", Icon: "alert-triangle", Recovery: "An unexpected error occurred."}
	}
}
