package offline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
	"github.com/openfit/relay/internal/observe/metrics"
)

// Handler replays one queued operation type against its upstream.
type Handler func(ctx context.Context, op *domain.QueuedOperation) error

// Queue persists operations attempted while offline and replays them in
// enqueue order when connectivity returns. A failed replay leaves the
// operation in place for the next connectivity event.
type Queue struct {
	store storage.QueueRepository
	log   *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	draining bool
}

// NewQueue creates a Queue over the given durable store.
func NewQueue(store storage.QueueRepository, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		store:    store,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to an operation type tag.
func (q *Queue) Register(opType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[opType] = h
}

// Enqueue persists an operation for later replay. The full payload is
// stored, so queued work survives process restarts.
func (q *Queue) Enqueue(ctx context.Context, opType string, payload map[string]string) (*domain.QueuedOperation, error) {
	op := domain.NewQueuedOperation(opType, payload)
	if err := q.store.Append(ctx, op); err != nil {
		return nil, domain.WrapError(domain.KindStorageError, "failed to persist queued operation", err)
	}

	metrics.QueuedOperations.WithLabelValues(opType).Inc()
	q.refreshDepth(ctx)
	q.log.Info("operation queued for replay", "type", opType, "id", op.ID)
	return op, nil
}

// Drain replays queued operations FIFO. Successful replays are removed;
// failures stay queued and the drain moves on. Only one drain runs at a
// time: re-entrant calls (connectivity flaps) return immediately instead of
// double-submitting operations already being processed.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	ops, err := q.store.List(ctx)
	if err != nil {
		return domain.WrapError(domain.KindStorageError, "failed to load offline queue", err)
	}
	if len(ops) == 0 {
		return nil
	}

	q.log.Info("draining offline queue", "pending", len(ops))

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		h := q.handler(op.Type)
		if h == nil {
			q.log.Warn("no handler for queued operation", "type", op.Type, "id", op.ID)
			metrics.ReplayedOperations.WithLabelValues(op.Type, "skipped").Inc()
			continue
		}

		if err := h(ctx, op); err != nil {
			q.log.Warn("replay failed, operation stays queued",
				"type", op.Type, "id", op.ID, "error", err)
			metrics.ReplayedOperations.WithLabelValues(op.Type, "failed").Inc()
			continue
		}

		if err := q.store.Remove(ctx, op.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return domain.WrapError(domain.KindStorageError, "failed to remove replayed operation", err)
		}
		metrics.ReplayedOperations.WithLabelValues(op.Type, "replayed").Inc()
		q.log.Info("operation replayed", "type", op.Type, "id", op.ID)
	}

	q.refreshDepth(ctx)
	return nil
}

// Run drains whenever the monitor reports an offline→online transition.
// Blocks until ctx is canceled.
func (q *Queue) Run(ctx context.Context, monitor *Monitor) {
	ch := monitor.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case online := <-ch:
			if !online {
				continue
			}
			if err := q.Drain(ctx); err != nil {
				q.log.Error("drain failed", "error", err)
			}
		}
	}
}

// Count returns the number of operations currently queued.
func (q *Queue) Count(ctx context.Context) (int, error) {
	return q.store.Count(ctx)
}

func (q *Queue) handler(opType string) Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handlers[opType]
}

func (q *Queue) refreshDepth(ctx context.Context) {
	if n, err := q.store.Count(ctx); err == nil {
		metrics.QueueDepth.Set(float64(n))
	}
}
