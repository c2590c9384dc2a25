package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
)

type QueueRepo struct {
	db *sqlx.DB
}

func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db.DB}
}

type queuedRow struct {
	ID         uuid.UUID `db:"id"`
	OpType     string    `db:"op_type"`
	Payload    []byte    `db:"payload"`
	EnqueuedAt time.Time `db:"enqueued_at"`
}

func (r *QueueRepo) Append(ctx context.Context, op *domain.QueuedOperation) error {
	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `INSERT INTO queued_operations (id, op_type, payload, enqueued_at) VALUES ($1, $2, $3, $4)`
	_, err = r.db.ExecContext(ctx, query, op.ID, op.Type, payload, op.EnqueuedAt)
	return err
}

func (r *QueueRepo) List(ctx context.Context) ([]*domain.QueuedOperation, error) {
	var rows []queuedRow
	query := `SELECT id, op_type, payload, enqueued_at FROM queued_operations ORDER BY seq ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	ops := make([]*domain.QueuedOperation, 0, len(rows))
	for _, row := range rows {
		op := &domain.QueuedOperation{
			ID:         row.ID,
			Type:       row.OpType,
			EnqueuedAt: row.EnqueuedAt,
		}
		if err := json.Unmarshal(row.Payload, &op.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for %s: %w", row.ID, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (r *QueueRepo) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queued_operations WHERE id = $1`, id)
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
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM queued_operations`)
	return count, err
}
