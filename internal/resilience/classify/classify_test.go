package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/openfit/relay/internal/core/domain"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		expect domain.ErrorKind
	}{
		{&net.DNSError{Err: "no such host", IsNotFound: true}, domain.KindNetworkUnavailable},
		{fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), domain.KindNetworkUnavailable},
		{fmt.Errorf("read: %w", syscall.ECONNRESET), domain.KindNetworkUnavailable},
		{&net.OpError{Op: "dial", Err: timeoutError{}}, domain.KindTimeout},
		{context.DeadlineExceeded, domain.KindTimeout},
		{errors.New("rpc failed: DEADLINE_EXCEEDED"), domain.KindTimeout},
		{errors.New("backend says PERMISSION_DENIED"), domain.KindUnauthorized},
		{errors.New("backend says UNAVAILABLE"), domain.KindNetworkUnavailable},
		{status.Error(codes.Unavailable, "service down"), domain.KindNetworkUnavailable},
		{status.Error(codes.DeadlineExceeded, "too slow"), domain.KindTimeout},
		{status.Error(codes.PermissionDenied, "nope"), domain.KindUnauthorized},
		{status.Error(codes.Unauthenticated, "who"), domain.KindAuthenticationFailed},
		{status.Error(codes.ResourceExhausted, "quota"), domain.KindQuotaExceeded},
		{status.Error(codes.InvalidArgument, "bad"), domain.KindValidationError},
		{status.Error(codes.DataLoss, "corrupt"), domain.KindDataCorruption},
		{status.Error(codes.Internal, "oops"), domain.KindServerError},
		{errors.New("something odd happened"), domain.KindUnknown},
	}

	for _, tt := range tests {
		got := Classify(tt.err)
		if got == nil {
			t.Fatalf("Classify(%q) = nil", tt.err)
		}
		if got.Kind != tt.expect {
			t.Errorf("Classify(%q) = %v, want %v", tt.err, got.Kind, tt.expect)
		}
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassifyPassthrough(t *testing.T) {
	orig := domain.NewError(domain.KindValidationError, "bad input")
	got := Classify(orig)
	if got != orig {
		t.Errorf("already-classified error was rewrapped: %v", got)
	}

	wrapped := fmt.Errorf("saving meal: %w", orig)
	got = Classify(wrapped)
	if got != orig {
		t.Errorf("wrapped classified error was rewrapped: %v", got)
	}
}

func TestClassifyEmbedsOriginalMessage(t *testing.T) {
	got := Classify(errors.New("mystery failure 42"))
	if got.Kind != domain.KindUnknown {
		t.Fatalf("kind = %v, want unknown", got.Kind)
	}
	if got.Message != "mystery failure 42" {
		t.Errorf("message = %q, want original message", got.Message)
	}
}

func TestShouldRetry(t *testing.T) {
	retryable := []domain.ErrorKind{
		domain.KindNetworkUnavailable,
		domain.KindTimeout,
		domain.KindServerError,
	}
	for _, kind := range retryable {
		if !ShouldRetry(domain.NewError(kind, "x")) {
			t.Errorf("ShouldRetry(%v) = false, want true", kind)
		}
	}

	terminal := []domain.ErrorKind{
		domain.KindNetworkError,
		domain.KindUnauthorized,
		domain.KindValidationError,
		domain.KindDataCorruption,
		domain.KindStorageError,
		domain.KindAuthenticationFailed,
		domain.KindPermissionDenied,
		domain.KindQuotaExceeded,
		domain.KindMaxRetriesExceeded,
		domain.KindUnknown,
	}
	for _, kind := range terminal {
		if ShouldRetry(domain.NewError(kind, "x")) {
			t.Errorf("ShouldRetry(%v) = true, want false", kind)
		}
	}

	if ShouldRetry(nil) {
		t.Error("ShouldRetry(nil) = true, want false")
	}
}

func TestClassifierStampsContext(t *testing.T) {
	c := New(WithConnectivity(func() bool { return false }))

	got := c.Classify("loadFeed", errors.New("boom"))
	if got.Op != "loadFeed" {
		t.Errorf("Op = %q, want loadFeed", got.Op)
	}

	// Pass-through errors keep their original context.
	orig := domain.NewError(domain.KindTimeout, "slow")
	orig.Op = "likePost"
	got = c.Classify("loadFeed", orig)
	if got.Op != "likePost" {
		t.Errorf("Op = %q, want likePost", got.Op)
	}
}
