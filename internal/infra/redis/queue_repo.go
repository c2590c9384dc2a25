package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
)

const queueKey = "relay:offline_queue"

// QueueRepo persists queued operations as JSON entries in a Redis list,
// RPUSH on enqueue so LRANGE returns FIFO order.
type QueueRepo struct {
	client *Client
}

func NewQueueRepo(client *Client) *QueueRepo {
	return &QueueRepo{client: client}
}

func (r *QueueRepo) Append(ctx context.Context, op *domain.QueuedOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}
	if err := r.client.rdb.RPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

func (r *QueueRepo) List(ctx context.Context) ([]*domain.QueuedOperation, error) {
	entries, err := r.client.rdb.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	ops := make([]*domain.QueuedOperation, 0, len(entries))
	for _, entry := range entries {
		var op domain.QueuedOperation
		if err := json.Unmarshal([]byte(entry), &op); err != nil {
			return nil, fmt.Errorf("unmarshal operation: %w", err)
		}
		ops = append(ops, &op)
	}
	return ops, nil
}

func (r *QueueRepo) Remove(ctx context.Context, id uuid.UUID) error {
	// LREM matches by value, so find the exact serialized entry first.
	entries, err := r.client.rdb.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("lrange failed: %w", err)
	}

	for _, entry := range entries {
		var op domain.QueuedOperation
		if err := json.Unmarshal([]byte(entry), &op); err != nil {
			continue
		}
		if op.ID == id {
			if err := r.client.rdb.LRem(ctx, queueKey, 1, entry).Err(); err != nil {
				return fmt.Errorf("lrem failed: %w", err)
			}
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *QueueRepo) Count(ctx context.Context) (int, error) {
	n, err := r.client.rdb.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return int(n), nil
}
