package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueuedOperation is a write attempted while offline, persisted for replay
// once connectivity returns. The payload is opaque to the queue; only the
// registered handler for Type knows how to interpret it.
type QueuedOperation struct {
	ID         uuid.UUID         `json:"id"         db:"id"`
	Type       string            `json:"type"       db:"op_type"`
	Payload    map[string]string `json:"payload"    db:"-"`
	EnqueuedAt time.Time         `json:"enqueued_at" db:"enqueued_at"`
}

// NewQueuedOperation stamps a fresh operation with an ID and enqueue time.
func NewQueuedOperation(opType string, payload map[string]string) *QueuedOperation {
	return &QueuedOperation{
		ID:         uuid.New(),
		Type:       opType,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
}
