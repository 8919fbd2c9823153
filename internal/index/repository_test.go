package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

func newTestRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	r := NewRepository(filepath.Join(t.TempDir(), ".tenax"), opts...)
	created, err := r.Initialize(context.Background(), "/work/project")
	require.NoError(t, err)
	require.True(t, created)
	return r
}

func TestInitializeOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.Update(ctx, func(x *Index) error {
		_, _, err := x.AddTask(models.Task{Title: "keep me"})
		return err
	}))

	created, err := r.Initialize(ctx, "/work/project")
	require.NoError(t, err)
	assert.False(t, created)

	x, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, x.Stats().TotalTasks.Pending, "second initialize must not reset")
	assert.Equal(t, "/work/project", x.Snapshot().ProjectPath)
	assert.Equal(t, models.IndexVersion, x.Snapshot().Version)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not initialized", func(t *testing.T) {
		r := NewRepository(t.TempDir())
		_, err := r.Load(ctx)
		assert.ErrorIs(t, err, ErrNotInitialized)
		assert.False(t, r.Exists())
	})

	t.Run("bad json", func(t *testing.T) {
		r := NewRepository(t.TempDir())
		require.NoError(t, os.WriteFile(r.Path(), []byte("{not json"), 0o644))
		_, err := r.Load(ctx)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("future version", func(t *testing.T) {
		r := NewRepository(t.TempDir())
		require.NoError(t, os.WriteFile(r.Path(), []byte(`{"version": 99}`), 0o644))
		_, err := r.Load(ctx)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("drifted totals", func(t *testing.T) {
		r := NewRepository(t.TempDir())
		doc := `{"version":1,"decisions":[],"stats":{"totalDecisions":3}}`
		require.NoError(t, os.WriteFile(r.Path(), []byte(doc), 0o644))
		_, err := r.Load(ctx)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestUpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	boom := errors.New("embed failed")

	err := r.Update(ctx, func(x *Index) error {
		_, _, _ = x.AddDecision(models.Decision{Topic: "db", Decision: "Use SQLite"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	x, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, x.Stats().TotalDecisions)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRepo(t, WithClock(func() time.Time { return now }))

	require.NoError(t, r.Update(ctx, func(x *Index) error {
		_, _, err := x.AddInsight(models.Insight{Content: "atomic rename"})
		return err
	}))

	entries, err := os.ReadDir(r.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{FileName, LockName}, names)

	x, err := r.Load(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(x.Snapshot().LastUpdated))
	assert.True(t, now.Equal(x.Snapshot().Insights[0].CreatedAt))
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Update(ctx, func(x *Index) error {
				_, _, err := x.AddTask(models.Task{Title: fmt.Sprintf("task %d", i)})
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	x, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, x.Stats().TotalTasks.Pending, "no update may be lost")
	assert.Len(t, x.Snapshot().Tasks, writers)
}

func TestUpdateLockTimeout(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t, WithLockTimeout(100*time.Millisecond))

	held := flock.New(filepath.Join(r.Dir(), LockName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	err = r.Update(ctx, func(*Index) error { return nil })
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUpdateHonoursContext(t *testing.T) {
	r := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Update(ctx, func(*Index) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
