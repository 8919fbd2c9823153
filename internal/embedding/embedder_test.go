package embedding

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(128)

	a, err := e.Embed(ctx, "database: Use SQLite")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "database: Use SQLite")
	require.NoError(t, err)

	assert.Len(t, a, 128)
	assert.Equal(t, a, b)
	assert.Equal(t, "hash-128", e.Model())
	assert.Equal(t, 128, e.Dimension())

	var norm float64
	for _, x := range a {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedderEmptyText(t *testing.T) {
	v, err := NewHashEmbedder(16).Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestHashEmbedderBatchPreservesOrder(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)
	texts := []string{"alpha", "beta", "gamma"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "vector %d", i)
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(384)

	q, _ := e.Embed(ctx, "database")
	related, _ := e.Embed(ctx, "database: Use SQLite")
	unrelated, _ := e.Embed(ctx, "Add tests")

	assert.Greater(t, dot(q, related), dot(q, unrelated))
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// countingEmbedder records how many texts reach the inner provider.
type countingEmbedder struct {
	inner Embedder
	calls atomic.Int32
	texts atomic.Int32
	fail  error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	c.texts.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Model() string  { return c.inner.Model() }
func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }

func TestCachedEmbedBatchOnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: NewHashEmbedder(32)}
	c, err := NewCached(inner, 16)
	require.NoError(t, err)

	_, err = c.Embed(ctx, "b")
	require.NoError(t, err)

	out, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, int32(3), inner.texts.Load(), "b was served from cache")
	assert.Equal(t, 3, c.Len())

	want, _ := NewHashEmbedder(32).EmbedBatch(ctx, []string{"a", "b", "c"})
	assert.Equal(t, want, out)

	_, err = c.EmbedBatch(ctx, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "fully cached batch makes no call")
}

func TestCachedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{inner: NewHashEmbedder(8), fail: boom}
	c, err := NewCached(inner, 4)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	_, err = c.EmbedBatch(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestNewFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("hash", func(t *testing.T) {
		e, err := New(ctx, Config{Provider: ProviderHash, Dimension: 64}, nil)
		require.NoError(t, err)
		assert.IsType(t, &HashEmbedder{}, e)
	})

	t.Run("hash with cache", func(t *testing.T) {
		e, err := New(ctx, Config{Provider: ProviderHash, Dimension: 64, CacheSize: 10}, nil)
		require.NoError(t, err)
		c, ok := e.(*Cached)
		require.True(t, ok)
		assert.IsType(t, &HashEmbedder{}, c.Unwrap())
	})

	t.Run("local is shared", func(t *testing.T) {
		cfg := Config{Provider: ProviderLocal, Dimension: 384, ModelCacheDir: t.TempDir()}
		a, err := New(ctx, cfg, nil)
		require.NoError(t, err)
		b, err := New(ctx, cfg, nil)
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.False(t, a.(*LocalEmbedder).Loaded(), "model loads lazily")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "nope", Dimension: 8}, nil)
		assert.Error(t, err)
	})

	t.Run("non-positive dimension", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: ProviderHash}, nil)
		assert.Error(t, err)
	})

	t.Run("openai requires key", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: ProviderOpenAI, Dimension: 8}, nil)
		assert.Error(t, err)
	})
}

func TestCheckBatch(t *testing.T) {
	assert.NoError(t, checkBatch([][]float32{{1, 2}, {3, 4}}, 2, 2))
	assert.Error(t, checkBatch([][]float32{{1, 2}}, 2, 2))
	assert.ErrorIs(t, checkBatch([][]float32{{1, 2}, {3}}, 2, 2), ErrDimensionMismatch)
}

func TestChunks(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks(texts, 2))
	assert.Equal(t, [][]string{texts}, chunks(texts, 0))
	assert.Equal(t, [][]string{texts}, chunks(texts, 10))
}
