package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/observe/metrics"
)

// State represents the circuit state for one service.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config controls thresholds for state transitions.
type Config struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold: 5,
	Cooldown:         30 * time.Second,
}

type circuit struct {
	state    State
	failures int
	openedAt time.Time
	trialing bool // a half-open trial call is in flight
}

// Breaker tracks per-service circuit state shared across all callers.
// All state access is serialized; the clock is injectable for tests.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	circuits map[string]*circuit
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a Breaker.
func New(cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig.Cooldown
	}
	b := &Breaker{
		cfg:      cfg,
		now:      time.Now,
		circuits: make(map[string]*circuit),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs fn guarded by the circuit for service. See Run.
func (b *Breaker) Do(ctx context.Context, service string, fn func(context.Context) error) error {
	_, err := Run(ctx, b, service, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run executes fn if the circuit for service allows it. Five consecutive
// failures open the circuit; while open, calls are rejected without running
// fn until the cooldown elapses, after which a single trial call is let
// through. A successful trial closes the circuit, a failed one reopens it
// and restarts the cooldown.
func Run[T any](ctx context.Context, b *Breaker, service string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	trial, err := b.admit(service)
	if err != nil {
		metrics.BreakerRejections.WithLabelValues(service).Inc()
		return zero, err
	}

	val, err := fn(ctx)
	b.record(service, trial, err == nil)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// State returns the current circuit state for a service, accounting for an
// elapsed cooldown.
func (b *Breaker) State(service string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[service]
	if !ok {
		return StateClosed
	}
	if c.state == StateOpen && b.now().Sub(c.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return c.state
}

// Services returns the service keys with tracked circuits.
func (b *Breaker) Services() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.circuits))
	for k := range b.circuits {
		keys = append(keys, k)
	}
	return keys
}

// Reset forces a service's circuit back to closed.
func (b *Breaker) Reset(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.circuits, service)
	metrics.BreakerState.WithLabelValues(service).Set(float64(StateClosed))
}

// admit decides whether a call may proceed. It returns trial=true when the
// call is the single half-open probe.
func (b *Breaker) admit(service string) (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[service]
	if !ok {
		c = &circuit{}
		b.circuits[service] = c
	}

	switch c.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.now().Sub(c.openedAt) < b.cfg.Cooldown {
			return false, b.rejection(service)
		}
		c.state = StateHalfOpen
		c.trialing = true
		b.setStateGauge(service, StateHalfOpen)
		return true, nil
	case StateHalfOpen:
		if c.trialing {
			// Only one probe at a time; everyone else keeps getting rejected.
			return false, b.rejection(service)
		}
		c.trialing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(service string, trial, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[service]
	if !ok {
		return
	}

	if trial {
		c.trialing = false
		if success {
			c.state = StateClosed
			c.failures = 0
			b.setStateGauge(service, StateClosed)
		} else {
			c.state = StateOpen
			c.openedAt = b.now()
			b.setStateGauge(service, StateOpen)
		}
		return
	}

	if success {
		c.failures = 0
		return
	}

	c.failures++
	if c.state == StateClosed && c.failures >= b.cfg.FailureThreshold {
		c.state = StateOpen
		c.openedAt = b.now()
		b.setStateGauge(service, StateOpen)
	}
}

func (b *Breaker) rejection(service string) *domain.AppError {
	return domain.NewError(domain.KindServerError,
		fmt.Sprintf("%s is temporarily unavailable", service))
}

func (b *Breaker) setStateGauge(service string, s State) {
	metrics.BreakerState.WithLabelValues(service).Set(float64(s))
}
