package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/openfit/relay/internal/core/domain"
)

var (
	// ErrNotFound is returned when a queued operation doesn't exist
	ErrNotFound = errors.New("queued operation not found")
)

// QueueRepository persists the offline operation queue. Implementations
// must preserve enqueue order: List returns operations FIFO by enqueue
// time, and each Append/Remove is atomic so a concurrent drain never sees
// a partial write.
type QueueRepository interface {
	// Append adds an operation to the tail of the queue
	Append(ctx context.Context, op *domain.QueuedOperation) error

	// List returns all queued operations in FIFO order
	List(ctx context.Context) ([]*domain.QueuedOperation, error)

	// Remove deletes an operation after successful replay
	Remove(ctx context.Context, id uuid.UUID) error

	// Count returns the number of queued operations
	Count(ctx context.Context) (int, error)
}
