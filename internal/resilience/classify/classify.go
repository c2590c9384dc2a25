package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/observe/metrics"
)

// Classifier maps raw failures into the AppError taxonomy and logs every
// classification with the current connectivity state. Logging never blocks
// or fails the caller.
type Classifier struct {
	log    *slog.Logger
	online func() bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for classification records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// WithConnectivity provides the connectivity state included in every
// classification log record.
func WithConnectivity(fn func() bool) Option {
	return func(c *Classifier) { c.online = fn }
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps err into the taxonomy, stamps the operation context on newly
// classified errors, and records the classification.
func (c *Classifier) Classify(op string, err error) *domain.AppError {
	appErr := Classify(err)
	if appErr == nil {
		return nil
	}
	if appErr.Op == "" {
		appErr.Op = op
	}

	metrics.ClassifiedErrors.WithLabelValues(string(appErr.Kind)).Inc()

	online := true
	if c.online != nil {
		online = c.online()
	}
	c.log.Warn("classified error",
		"context", op,
		"kind", string(appErr.Kind),
		"message", appErr.Message,
		"online", online,
	)

	return appErr
}

// Classify is the pure mapping from a raw error to an AppError. Errors that
// are already classified pass through unchanged.
func Classify(err error) *domain.AppError {
	if err == nil {
		return nil
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindTimeout, "operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.WrapError(domain.KindUnknown, "operation canceled", err)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return fromStatusCode(st.Code(), st.Message(), err)
	}

	if kind, ok := classifyNetError(err); ok {
		return domain.WrapError(kind, err.Error(), err)
	}

	if kind, ok := classifyToken(err.Error()); ok {
		return domain.WrapError(kind, err.Error(), err)
	}

	return domain.WrapError(domain.KindUnknown, err.Error(), err)
}

// ShouldRetry is the default retry gate: transient network and server
// failures are retried, everything else fails immediately. Call sites can
// override it with a custom predicate.
func ShouldRetry(err *domain.AppError) bool {
	return err != nil && err.Kind.Retryable()
}

func fromStatusCode(code codes.Code, msg string, cause error) *domain.AppError {
	switch code {
	case codes.Unavailable:
		return domain.WrapError(domain.KindNetworkUnavailable, msg, cause)
	case codes.DeadlineExceeded:
		return domain.WrapError(domain.KindTimeout, msg, cause)
	case codes.PermissionDenied:
		return domain.WrapError(domain.KindUnauthorized, msg, cause)
	case codes.Unauthenticated:
		return domain.WrapError(domain.KindAuthenticationFailed, msg, cause)
	case codes.ResourceExhausted:
		return domain.WrapError(domain.KindQuotaExceeded, msg, cause)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return domain.WrapError(domain.KindValidationError, msg, cause)
	case codes.DataLoss:
		return domain.WrapError(domain.KindDataCorruption, msg, cause)
	case codes.Internal:
		return domain.WrapError(domain.KindServerError, msg, cause)
	default:
		return domain.WrapError(domain.KindNetworkError, msg, cause)
	}
}

func classifyNetError(err error) (domain.ErrorKind, bool) {
	// Host resolution failures count as no connectivity.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.KindNetworkUnavailable, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ENETDOWN) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return domain.KindNetworkUnavailable, true
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return domain.KindTimeout, true
		}
		return domain.KindNetworkError, true
	}

	// Truncated responses read as a misbehaving server.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.KindServerError, true
	}

	return "", false
}

func classifyToken(msg string) (domain.ErrorKind, bool) {
	switch {
	case strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return domain.KindTimeout, true
	case strings.Contains(msg, "PERMISSION_DENIED"):
		return domain.KindUnauthorized, true
	case strings.Contains(msg, "UNAVAILABLE"):
		return domain.KindNetworkUnavailable, true
	default:
		return "", false
	}
}
