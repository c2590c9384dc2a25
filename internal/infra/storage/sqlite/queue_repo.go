package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
)

type QueueRepo struct {
	db *sql.DB
}

func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db.DB}
}

func (r *QueueRepo) Append(ctx context.Context, op *domain.QueuedOperation) error {
	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `INSERT INTO queued_operations (id, op_type, payload, enqueued_at) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		op.ID.String(), op.Type, string(payload), op.EnqueuedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *QueueRepo) List(ctx context.Context) ([]*domain.QueuedOperation, error) {
	query := `SELECT id, op_type, payload, enqueued_at FROM queued_operations ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*domain.QueuedOperation
	for rows.Next() {
		var (
			id, opType, payload, enqueuedAt string
		)
		if err := rows.Scan(&id, &opType, &payload, &enqueuedAt); err != nil {
			return nil, err
		}

		op := &domain.QueuedOperation{Type: opType}
		if op.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid operation id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(payload), &op.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for %s: %w", id, err)
		}
		if op.EnqueuedAt, err = time.Parse(time.RFC3339Nano, enqueuedAt); err != nil {
			return nil, fmt.Errorf("invalid enqueue time for %s: %w", id, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (r *QueueRepo) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queued_operations WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *QueueRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM queued_operations`).Scan(&count)
	return count, err
}
