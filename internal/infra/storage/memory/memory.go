// Package memory provides an in-memory queue repository, used in tests and
// when running without durable storage configured.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
)

type QueueRepo struct {
	mu  sync.Mutex
	ops []*domain.QueuedOperation
}

func NewQueueRepo() *QueueRepo {
	return &QueueRepo{}
}

func (r *QueueRepo) Append(ctx context.Context, op *domain.QueuedOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *op
	r.ops = append(r.ops, &cp)
	return nil
}

func (r *QueueRepo) List(ctx context.Context) ([]*domain.QueuedOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.QueuedOperation, len(r.ops))
	for i, op := range r.ops {
		cp := *op
		out[i] = &cp
	}
	return out, nil
}

func (r *QueueRepo) Remove(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, op := range r.ops {
		if op.ID == id {
			r.ops = append(r.ops[:i], r.ops[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *QueueRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops), nil
}
