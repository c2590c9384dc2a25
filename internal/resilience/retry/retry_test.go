package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/resilience/classify"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		JitterFraction: 0.1,
	}
}

func newExecutor(t *testing.T, cfg Config) *Executor {
	t.Helper()
	ex, err := New(cfg, classify.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ex
}

func TestRetryExhaustsBudget(t *testing.T) {
	ex := newExecutor(t, fastConfig())

	calls := 0
	err := ex.Do(context.Background(), "loadFeed", func(ctx context.Context) error {
		calls++
		return domain.NewError(domain.KindServerError, "boom")
	})

	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error is not an AppError: %v", err)
	}
	if appErr.Kind != domain.KindMaxRetriesExceeded {
		t.Errorf("kind = %v, want max_retries_exceeded", appErr.Kind)
	}
	if !strings.Contains(appErr.Message, "loadFeed") {
		t.Errorf("terminal error does not name the context: %q", appErr.Message)
	}
	if !strings.Contains(appErr.Message, "boom") {
		t.Errorf("terminal error does not wrap the last failure: %q", appErr.Message)
	}

	if got := ex.Attempts("loadFeed"); got != 3 {
		t.Errorf("recorded attempts = %d, want 3 (capped)", got)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	ex := newExecutor(t, fastConfig())

	calls := 0
	val, err := Run(context.Background(), ex, "loadFeed", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", domain.NewError(domain.KindTimeout, "slow")
		}
		return "feed", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "feed" {
		t.Errorf("val = %q, want feed", val)
	}
	if calls != 2 {
		t.Errorf("operation called %d times, want 2", calls)
	}
	if got := ex.Attempts("loadFeed"); got != 0 {
		t.Errorf("attempts counter = %d, want 0 after success", got)
	}
}

func TestRetryNonRetryableFailsImmediately(t *testing.T) {
	ex := newExecutor(t, fastConfig())

	calls := 0
	err := ex.Do(context.Background(), "saveMeal", func(ctx context.Context) error {
		calls++
		return domain.NewError(domain.KindValidationError, "bad meal")
	})

	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}

	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Kind != domain.KindValidationError {
		t.Errorf("error = %v, want validation_error", err)
	}
}

func TestRetryCustomPredicate(t *testing.T) {
	ex := newExecutor(t, fastConfig())

	// Treat everything as non-retryable regardless of classification.
	calls := 0
	err := ex.Do(context.Background(), "loadFeed", func(ctx context.Context) error {
		calls++
		return domain.NewError(domain.KindServerError, "boom")
	}, func(*domain.AppError) bool { return false })

	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Kind != domain.KindServerError {
		t.Errorf("error = %v, want server_error", err)
	}
}

func TestRetryInvalidConfig(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		_, err := New(Config{MaxAttempts: attempts}, classify.New())
		if err == nil {
			t.Errorf("New with MaxAttempts=%d succeeded, want error", attempts)
		}
	}
}

func TestBackoffBounds(t *testing.T) {
	ex := newExecutor(t, DefaultConfig)

	expect := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for i, want := range expect {
		if got := ex.Backoff(i); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, want)
		}
	}

	// Jittered delay stays within [backoff, backoff*1.1].
	for i := 0; i < 6; i++ {
		base := ex.Backoff(i)
		for j := 0; j < 20; j++ {
			d := ex.Delay(i)
			if d < base || float64(d) > float64(base)*1.1 {
				t.Fatalf("Delay(%d) = %v, outside [%v, %v]", i, d, base, time.Duration(float64(base)*1.1))
			}
		}
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.BaseDelay = 10 * time.Second
	cfg.MaxDelay = 10 * time.Second
	ex := newExecutor(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	start := time.Now()
	err := ex.Do(ctx, "loadFeed", func(ctx context.Context) error {
		calls++
		cancel() // cancel while the executor is about to back off
		return domain.NewError(domain.KindServerError, "boom")
	})

	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, backoff was not interrupted", elapsed)
	}
}
