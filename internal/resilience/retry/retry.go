package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/observe/metrics"
	"github.com/openfit/relay/internal/resilience/classify"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	JitterFraction float64       `yaml:"jitter_fraction"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxAttempts:    3,
	BaseDelay:      1 * time.Second,
	MaxDelay:       30 * time.Second,
	JitterFraction: 0.1,
}

// Predicate decides whether a classified error is worth another attempt.
type Predicate func(*domain.AppError) bool

// Executor runs operations with bounded retries and exponential backoff.
// Per-context attempt counters live here, separate from circuit breaker
// state, and are reset on the first success.
type Executor struct {
	cfg        Config
	classifier *classify.Classifier

	mu       sync.Mutex
	attempts map[string]int
}

// New creates an Executor. MaxAttempts must be positive; a zero or negative
// budget would either never run the operation or loop forever.
func New(cfg Config, classifier *classify.Classifier) (*Executor, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, domain.NewError(domain.KindValidationError,
			fmt.Sprintf("retry: max attempts must be positive, got %d", cfg.MaxAttempts))
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = DefaultConfig.JitterFraction
	}
	if classifier == nil {
		classifier = classify.New()
	}
	return &Executor{
		cfg:        cfg,
		classifier: classifier,
		attempts:   make(map[string]int),
	}, nil
}

// Do runs fn with retries under the opCtx context key. See Run.
func (e *Executor) Do(ctx context.Context, opCtx string, fn func(context.Context) error, preds ...Predicate) error {
	_, err := Run(ctx, e, opCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, preds...)
	return err
}

// Run executes fn up to MaxAttempts times total. Failures are classified;
// a non-retryable classification fails immediately. Exhausting the budget
// returns a max-retries-exceeded error naming the operation context and
// wrapping the last observed failure. Backoff waits are cooperative and
// honor ctx cancellation.
func Run[T any](ctx context.Context, e *Executor, opCtx string, fn func(context.Context) (T, error), preds ...Predicate) (T, error) {
	var zero T

	pred := Predicate(classify.ShouldRetry)
	if len(preds) > 0 && preds[0] != nil {
		pred = preds[0]
	}

	var lastErr *domain.AppError
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, e.classifier.Classify(opCtx, err)
		}

		metrics.RetryAttempts.WithLabelValues(opCtx).Inc()

		val, err := fn(ctx)
		if err == nil {
			e.reset(opCtx)
			return val, nil
		}

		lastErr = e.classifier.Classify(opCtx, err)
		e.recordFailure(opCtx)

		if !pred(lastErr) {
			return zero, lastErr
		}
		if attempt == e.cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, e.classifier.Classify(opCtx, ctx.Err())
		case <-time.After(e.Delay(attempt)):
		}
	}

	metrics.RetriesExhausted.WithLabelValues(opCtx).Inc()
	return zero, domain.WrapError(domain.KindMaxRetriesExceeded,
		fmt.Sprintf("%s: giving up after %d attempts: %s", opCtx, e.cfg.MaxAttempts, lastErr.Message),
		lastErr)
}

// Backoff returns the deterministic delay before the attempt following
// attempt index i: min(base * 2^i, max).
func (e *Executor) Backoff(attempt int) time.Duration {
	d := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(e.cfg.MaxDelay) {
		d = float64(e.cfg.MaxDelay)
	}
	return time.Duration(d)
}

// Delay is Backoff plus uniform jitter in [0, JitterFraction*backoff),
// spreading out synchronized retry storms.
func (e *Executor) Delay(attempt int) time.Duration {
	d := e.Backoff(attempt)
	jitter := time.Duration(rand.Float64() * e.cfg.JitterFraction * float64(d))
	return d + jitter
}

// Attempts returns the consecutive failure count recorded for a context.
func (e *Executor) Attempts(opCtx string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[opCtx]
}

func (e *Executor) recordFailure(opCtx string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attempts[opCtx] < e.cfg.MaxAttempts {
		e.attempts[opCtx]++
	}
}

func (e *Executor) reset(opCtx string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts[opCtx] = 0
}
