package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises another Embedder by content hash.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps inner with an LRU holding up to size vectors.
func NewCached(inner Embedder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Unwrap returns the wrapped embedder.
func (c *Cached) Unwrap() Embedder { return c.inner }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// EmbedBatch sends only cache misses to the inner embedder, in one call.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(contentHash(text)); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(vectors, len(missTexts), c.inner.Dimension()); err != nil {
		return nil, err
	}
	for j, v := range vectors {
		out[missIdx[j]] = v
		c.cache.Add(contentHash(missTexts[j]), v)
	}
	return out, nil
}

func (c *Cached) Model() string  { return c.inner.Model() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
