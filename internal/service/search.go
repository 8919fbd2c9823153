package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// SearchHit is a ranked, hydrated search result.
type SearchHit struct {
	Item  models.Item
	Type  models.ItemType
	Score float64
}

// Search embeds query and returns up to k items ranked by cosine similarity,
// restricted to types when given. k <= 0 uses the configured limit.
// Vector rows whose item is no longer in the index are skipped.
func (s *Service) Search(ctx context.Context, query string, k int, types ...models.ItemType) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if k <= 0 {
		k = s.limit
	}

	x, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	done := s.metrics.Start(metrics.OpEmbedding)
	vec, err := s.embedder.Embed(ctx, query)
	done(1)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	done = s.metrics.Start(metrics.OpVectorSearch)
	ranked, err := s.store.Search(ctx, vec, 0, types...)
	done(len(ranked))
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	hits := make([]SearchHit, 0, min(k, len(ranked)))
	orphans := 0
	for _, r := range ranked {
		if len(hits) == k {
			break
		}
		it, ok := x.Lookup(r.ID)
		if !ok {
			orphans++
			continue
		}
		hits = append(hits, SearchHit{Item: it, Type: it.Kind(), Score: r.Score})
	}

	s.logger.Debug("search complete",
		"query_len", len(query),
		"k", k,
		"hits", len(hits),
		"orphans", orphans,
		"duration_ms", sinceMs(start),
	)
	return hits, nil
}
