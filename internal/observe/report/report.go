// Package report surfaces terminal errors to UI collaborators as an
// observable stream, with user-facing presentation derived per error kind.
package report

import (
	"log/slog"
	"sync"

	"github.com/openfit/relay/internal/core/domain"
)

// Reporter fans surfaced errors out to subscribers. Delivery is best-effort:
// a slow subscriber drops updates instead of blocking the reporting path.
type Reporter struct {
	log *slog.Logger

	mu      sync.Mutex
	subs    []chan *domain.AppError
	current *domain.AppError
}

// New creates a Reporter.
func New(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

// Report publishes a surfaced error to all subscribers and records it as the
// current error.
func (r *Reporter) Report(err *domain.AppError) {
	if err == nil {
		return
	}

	p := err.Kind.Presentation()
	r.log.Error("surfaced error",
		"context", err.Op,
		"kind", string(err.Kind),
		"title", p.Title,
		"message", err.Message,
		"can_retry", p.CanRetry,
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = err
	for _, ch := range r.subs {
		select {
		case ch <- err:
		default:
		}
	}
}

// Subscribe registers a new observer channel.
func (r *Reporter) Subscribe() <-chan *domain.AppError {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan *domain.AppError, 8)
	r.subs = append(r.subs, ch)
	return ch
}

// Current returns the most recently surfaced error, or nil.
func (r *Reporter) Current() *domain.AppError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Clear dismisses the current error.
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
}
