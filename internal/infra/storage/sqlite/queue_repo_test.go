package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/infra/storage"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func TestQueueRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	db := openTestDB(t, path)
	repo := NewQueueRepo(db)
	ctx := context.Background()

	ops := []*domain.QueuedOperation{
		domain.NewQueuedOperation("logMeal", map[string]string{"meal": "breakfast", "calories": "420"}),
		domain.NewQueuedOperation("likePost", map[string]string{"post": "123"}),
		domain.NewQueuedOperation("logMeal", map[string]string{"meal": "lunch"}),
	}
	for _, op := range ops {
		if err := repo.Append(ctx, op); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("List returned %d operations, want %d", len(got), len(ops))
	}
	for i, op := range ops {
		if got[i].ID != op.ID {
			t.Errorf("order[%d]: id = %s, want %s", i, got[i].ID, op.ID)
		}
		if got[i].Type != op.Type {
			t.Errorf("order[%d]: type = %s, want %s", i, got[i].Type, op.Type)
		}
		for k, v := range op.Payload {
			if got[i].Payload[k] != v {
				t.Errorf("order[%d]: payload[%s] = %q, want %q", i, k, got[i].Payload[k], v)
			}
		}
		if !got[i].EnqueuedAt.Equal(op.EnqueuedAt) {
			t.Errorf("order[%d]: enqueued_at = %v, want %v", i, got[i].EnqueuedAt, op.EnqueuedAt)
		}
	}

	if err := repo.Remove(ctx, ops[1].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	// Removing twice reports not-found.
	if err := repo.Remove(ctx, ops[1].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}

	// Queued operations survive a restart.
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	db = openTestDB(t, path)
	defer db.Close()

	got, err = NewQueueRepo(db).List(ctx)
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(got) != 2 || got[0].ID != ops[0].ID || got[1].ID != ops[2].ID {
		t.Errorf("queue after reopen lost order or content: %v", got)
	}
}
