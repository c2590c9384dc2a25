// Package resilience composes the classifier, retry executor and circuit
// breaker into a single entry point for calling flaky upstreams.
package resilience

import (
	"context"

	"github.com/openfit/relay/internal/observe/report"
	"github.com/openfit/relay/internal/resilience/breaker"
	"github.com/openfit/relay/internal/resilience/classify"
	"github.com/openfit/relay/internal/resilience/dedup"
	"github.com/openfit/relay/internal/resilience/retry"
)

// Config holds resilience tuning.
type Config struct {
	Retry   retry.Config   `yaml:"retry"`
	Breaker breaker.Config `yaml:"breaker"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Retry:   retry.DefaultConfig,
	Breaker: breaker.DefaultConfig,
}

// Pipeline wires classification, retry and circuit breaking together. Each
// component keeps its own state store, injected here rather than held in
// package globals, so tests get fresh state per instance.
type Pipeline struct {
	Classifier *classify.Classifier
	Retry      *retry.Executor
	Breaker    *breaker.Breaker
	Reporter   *report.Reporter
}

// NewPipeline builds a Pipeline from config. The classifier options are
// shared with the retry executor so both log with connectivity state.
func NewPipeline(cfg Config, reporter *report.Reporter, opts ...classify.Option) (*Pipeline, error) {
	classifier := classify.New(opts...)

	ex, err := retry.New(cfg.Retry, classifier)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Classifier: classifier,
		Retry:      ex,
		Breaker:    breaker.New(cfg.Breaker),
		Reporter:   reporter,
	}, nil
}

// Execute runs fn through the breaker for service, retried under the opCtx
// key. Terminal failures (non-retryable, or budget exhausted) are surfaced
// to the reporter; callers only ever see the terminal outcome.
func Execute[T any](ctx context.Context, p *Pipeline, opCtx, service string, fn func(context.Context) (T, error), preds ...retry.Predicate) (T, error) {
	val, err := retry.Run(ctx, p.Retry, opCtx, func(ctx context.Context) (T, error) {
		return breaker.Run(ctx, p.Breaker, service, fn)
	}, preds...)
	if err != nil {
		p.surface(err)
		return val, err
	}
	return val, nil
}

// Do is Execute for operations without a result value.
func Do(ctx context.Context, p *Pipeline, opCtx, service string, fn func(context.Context) error, preds ...retry.Predicate) error {
	_, err := Execute(ctx, p, opCtx, service, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, preds...)
	return err
}

// ExecuteDeduped is Execute with in-flight coalescing: concurrent calls
// sharing key ride on one underlying execution of the full retry/breaker
// chain. The group's type parameter enforces a single result type per key
// space at compile time.
func ExecuteDeduped[T any](ctx context.Context, p *Pipeline, g *dedup.Group[T], key, service string, fn func(context.Context) (T, error), preds ...retry.Predicate) (T, error) {
	return g.Do(ctx, key, func(ctx context.Context) (T, error) {
		return Execute(ctx, p, key, service, fn, preds...)
	})
}

func (p *Pipeline) surface(err error) {
	if p.Reporter == nil {
		return
	}
	if appErr := classify.Classify(err); appErr != nil {
		p.Reporter.Report(appErr)
	}
}
