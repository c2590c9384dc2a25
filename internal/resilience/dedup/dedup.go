// Package dedup collapses concurrent identical requests into a single
// underlying execution. Groups are typed: all callers sharing a key go
// through the same Group[T], so result types are enforced at compile time
// instead of by an unchecked cast.
package dedup

import (
	"context"
	"sync"

	"github.com/openfit/relay/internal/observe/metrics"
)

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Group deduplicates in-flight operations by key.
type Group[T any] struct {
	mu       sync.Mutex
	inflight map[string]*call[T]
}

// NewGroup creates an empty Group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{inflight: make(map[string]*call[T])}
}

// Do executes fn for key unless an identical request is already in flight,
// in which case the caller waits for the existing one and shares its result.
// At most one execution runs per key at a time. The in-flight registration
// is removed before any waiter observes the result, so a caller arriving
// after completion always starts a fresh execution.
//
// A waiter whose ctx is canceled abandons the wait; the shared operation
// keeps running for the remaining waiters.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	g.mu.Lock()
	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		metrics.DedupCoalesced.Inc()

		var zero T
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	c := &call[T]{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	// The initiating caller's cancellation must not kill an operation other
	// waiters may already be sharing, so the execution context is detached
	// and the initiator waits like everyone else.
	go func() {
		c.val, c.err = fn(context.WithoutCancel(ctx))

		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(c.done)
	}()

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// InFlight reports whether an execution for key is currently running.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}
