package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

const (
	// FileName is the index file inside the data directory.
	FileName = "index.json"

	// LockName is the advisory lock file guarding writers.
	LockName = "index.lock"

	// DefaultLockTimeout bounds how long Update waits for another writer.
	DefaultLockTimeout = 10 * time.Second

	lockRetry = 25 * time.Millisecond
)

// Repository loads and publishes the project index under a data directory.
type Repository struct {
	dir         string
	lockTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Collector
	now         func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repository) { r.lockTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithMetrics records save timings.
func WithMetrics(mc *metrics.Collector) Option {
	return func(r *Repository) { r.metrics = mc }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository returns a repository for the index in dataDir.
func NewRepository(dataDir string, opts ...Option) *Repository {
	r := &Repository{
		dir:         dataDir,
		lockTimeout: DefaultLockTimeout,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Path is the index file location.
func (r *Repository) Path() string { return filepath.Join(r.dir, FileName) }

// Dir is the data directory.
func (r *Repository) Dir() string { return r.dir }

// Exists reports whether the index file is present.
func (r *Repository) Exists() bool {
	_, err := os.Stat(r.Path())
	return err == nil
}

// Load reads the last published index. It takes no lock: Save publishes by
// rename, so a reader always sees a whole file.
func (r *Repository) Load(ctx context.Context) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, r.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var p models.ProjectIndex
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, r.Path(), err)
	}
	if p.Version > models.IndexVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported %d", ErrCorrupt, p.Version, models.IndexVersion)
	}

	x := r.wrap(&p)
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return x, nil
}

// Save publishes x atomically: the file is written to a temp name in the same
// directory, synced, then renamed over the previous snapshot.
func (r *Repository) Save(ctx context.Context, x *Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	done := r.metrics.Start(metrics.OpIndexSave)
	defer done(0)

	p := x.Snapshot()
	p.Version = models.IndexVersion
	p.LastUpdated = r.now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, r.Path()); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}

	r.logger.Debug("index saved", "path", r.Path(), "bytes", len(data))
	return nil
}

// Initialize creates an empty index for projectPath. It reports false and
// leaves the file untouched when the index already exists.
func (r *Repository) Initialize(ctx context.Context, projectPath string) (bool, error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	if r.Exists() {
		return false, nil
	}
	x := r.wrap(models.NewProjectIndex(projectPath, r.now()))
	if err := r.Save(ctx, x); err != nil {
		return false, err
	}
	r.logger.Info("index initialized", "path", r.Path(), "project", projectPath)
	return true, nil
}

// Update runs fn against a freshly loaded index while holding the writer
// lock and saves the result. An error from fn discards every change.
func (r *Repository) Update(ctx context.Context, fn func(*Index) error) error {
	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	x, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(x); err != nil {
		return err
	}
	return r.Save(ctx, x)
}

// View runs fn against a freshly loaded index while holding the writer lock,
// without saving. Use it when fn must see a state no writer can change.
func (r *Repository) View(ctx context.Context, fn func(*Index) error) error {
	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	x, err := r.Load(ctx)
	if err != nil {
		return err
	}
	return fn(x)
}

func (r *Repository) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	fl := flock.New(filepath.Join(r.dir, LockName))
	lctx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	start := time.Now()
	locked, err := fl.TryLockContext(lctx, lockRetry)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: waited %s for %s", ErrLocked, r.lockTimeout, fl.Path())
	}
	if waited := time.Since(start); waited > lockRetry {
		r.logger.Debug("index lock acquired", "waited_ms", waited.Milliseconds())
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			r.logger.Warn("failed to release index lock", "error", err)
		}
	}, nil
}

func (r *Repository) wrap(p *models.ProjectIndex) *Index {
	x := Wrap(p)
	x.now = r.now
	return x
}
