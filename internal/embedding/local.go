package embedding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

const (
	// DefaultLocalModel is a 384-dimension MiniLM sentence encoder with an ONNX export.
	DefaultLocalModel = "KnightsAnalytics/all-MiniLM-L6-v2"

	// DefaultLocalDimension is the output size of DefaultLocalModel.
	DefaultLocalDimension = 384

	defaultLocalBatch = 32
)

// LocalConfig configures the in-process ONNX embedder.
type LocalConfig struct {
	Repo           string
	CacheDir       string
	OrtLibraryPath string
	Dimension      int
	BatchSize      int
}

// LocalEmbedder runs a feature-extraction pipeline in process. The model is
// loaded on first use and can be released with Close; a released embedder
// loads the model again on its next call.
type LocalEmbedder struct {
	cfg    LocalConfig
	logger *slog.Logger

	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

var _ Embedder = (*LocalEmbedder)(nil)

var (
	sharedMu sync.Mutex
	shared   = map[string]*LocalEmbedder{}
)

// Shared returns the process-wide embedder for cfg.Repo, creating it unloaded
// on first request.
func Shared(cfg LocalConfig, logger *slog.Logger) *LocalEmbedder {
	cfg = cfg.withDefaults()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if e, ok := shared[cfg.Repo]; ok {
		return e
	}
	e := NewLocalEmbedder(cfg, logger)
	shared[cfg.Repo] = e
	return e
}

// CloseShared releases every process-wide model.
func CloseShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	var errs []error
	for _, e := range shared {
		errs = append(errs, e.Close())
	}
	return errors.Join(errs...)
}

// NewLocalEmbedder creates an unshared local embedder. Most callers want Shared.
func NewLocalEmbedder(cfg LocalConfig, logger *slog.Logger) *LocalEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalEmbedder{cfg: cfg.withDefaults(), logger: logger}
}

func (c LocalConfig) withDefaults() LocalConfig {
	if c.Repo == "" {
		c.Repo = DefaultLocalModel
	}
	if c.Dimension <= 0 {
		c.Dimension = DefaultLocalDimension
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultLocalBatch
	}
	if c.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CacheDir = filepath.Join(home, ".cache", "tenax", "models")
		} else {
			c.CacheDir = filepath.Join(os.TempDir(), "tenax-models")
		}
	}
	return c
}

// modelPath is where hugot.DownloadModel places a repository.
func (c LocalConfig) modelPath() string {
	return filepath.Join(c.CacheDir, strings.ReplaceAll(c.Repo, "/", "_"))
}

func (l *LocalEmbedder) Model() string  { return l.cfg.Repo }
func (l *LocalEmbedder) Dimension() int { return l.cfg.Dimension }

// Loaded reports whether the model is currently resident.
func (l *LocalEmbedder) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pipeline != nil
}

func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := l.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (l *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLocked(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	out := make([][]float32, 0, len(texts))
	for _, chunk := range chunks(texts, l.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := l.pipeline.RunPipeline(chunk)
		if err != nil {
			return nil, fmt.Errorf("run embedding pipeline: %w", err)
		}
		out = append(out, res.Embeddings...)
	}

	if err := checkBatch(out, len(texts), l.cfg.Dimension); err != nil {
		return nil, err
	}

	l.logger.Debug("local embedding complete", "model", l.cfg.Repo, "texts", len(texts), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// EnsureModel loads the model if it is not resident.
func (l *LocalEmbedder) EnsureModel(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLocked(ctx)
}

func (l *LocalEmbedder) ensureLocked(ctx context.Context) error {
	if l.pipeline != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := l.cfg.modelPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(l.cfg.CacheDir, 0o755); err != nil {
			return fmt.Errorf("create model cache dir: %w", err)
		}
		l.logger.Info("downloading embedding model", "repo", l.cfg.Repo, "dir", l.cfg.CacheDir)
		path, err = hugot.DownloadModel(l.cfg.Repo, l.cfg.CacheDir, hugot.NewDownloadOptions())
		if err != nil {
			return fmt.Errorf("download model %s: %w", l.cfg.Repo, err)
		}
	}

	sessionOpts := []options.WithOption{
		options.WithIntraOpNumThreads(runtime.NumCPU()),
	}
	if l.cfg.OrtLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(l.cfg.OrtLibraryPath))
	}

	start := time.Now()
	session, err := hugot.NewORTSession(sessionOpts...)
	if err != nil {
		return fmt.Errorf("create ORT session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: path,
		Name:      "tenax-embedder",
	})
	if err != nil {
		session.Destroy()
		return fmt.Errorf("create embedding pipeline: %w", err)
	}

	l.session = session
	l.pipeline = pipeline
	l.logger.Info("embedding model loaded", "repo", l.cfg.Repo, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Close releases the model. Calling Close on an unloaded embedder is a no-op.
func (l *LocalEmbedder) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		l.session.Destroy()
		l.session = nil
		l.logger.Debug("embedding model released", "repo", l.cfg.Repo)
	}
	l.pipeline = nil
	return nil
}
