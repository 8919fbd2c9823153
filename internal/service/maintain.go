package service

import (
	"context"
	"fmt"

	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// CompleteTask marks a pending task completed.
func (s *Service) CompleteTask(ctx context.Context, id string) (models.Task, error) {
	var done models.Task
	err := s.repo.Update(ctx, func(x *index.Index) error {
		t, err := x.CompleteTask(id)
		done = t
		return err
	})
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task completed", "task_id", id, "title", done.Title)
	return done, nil
}

// Forget removes items from the index and then their vectors. Every id is
// checked before anything is removed.
func (s *Service) Forget(ctx context.Context, ids ...string) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var forgotten []models.Item
	err := s.repo.Update(ctx, func(x *index.Index) error {
		forgotten = forgotten[:0]
		for _, id := range ids {
			it, err := x.Forget(id)
			if err != nil {
				return err
			}
			forgotten = append(forgotten, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A crash here leaves orphan rows, which search skips and Reconcile removes.
	n, err := s.store.Delete(ctx, ids...)
	if err != nil {
		return forgotten, fmt.Errorf("delete vectors: %w", err)
	}
	s.logger.Info("items forgotten", "items", len(forgotten), "vectors", n)
	return forgotten, nil
}

// ReconcileResult reports the repairs made by Reconcile.
type ReconcileResult struct {
	Embedded int `json:"embedded"`
	Removed  int `json:"removed"`
}

// Reconcile re-embeds index items that have no vector row and deletes vector
// rows whose item is gone from the index.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	out := &ReconcileResult{}
	err := s.repo.View(ctx, func(x *index.Index) error {
		ids, err := s.store.IDs(ctx)
		if err != nil {
			return err
		}
		stored := make(map[string]bool, len(ids))
		for _, id := range ids {
			stored[id] = true
		}

		known := map[string]bool{}
		var missing []models.Item
		for _, it := range x.Items() {
			known[it.ItemID()] = true
			if !stored[it.ItemID()] {
				missing = append(missing, it)
			}
		}

		var orphans []string
		for _, id := range ids {
			if !known[id] {
				orphans = append(orphans, id)
			}
		}

		if err := s.storeVectors(ctx, missing); err != nil {
			return err
		}
		out.Embedded = len(missing)

		n, err := s.store.Delete(ctx, orphans...)
		if err != nil {
			return fmt.Errorf("delete orphan vectors: %w", err)
		}
		out.Removed = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	s.logger.Info("reconcile complete", "embedded", out.Embedded, "removed", out.Removed)
	return out, nil
}
