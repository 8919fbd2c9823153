// Package service runs the capture and retrieval pipelines over the project
// index, the vector store and an embedder.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/config"
	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
	"github.com/Rab-crypto/tenax-sub001/internal/extract"
	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/vectorstore"
)

// Options wires a Service. Repo, Store and Embedder are required.
type Options struct {
	ProjectRoot string
	SessionsDir string
	SearchLimit int

	Repo      *index.Repository
	Store     *vectorstore.Store
	Embedder  embedding.Embedder
	Extractor *extract.Extractor
	Logger    *slog.Logger
	Metrics   *metrics.Collector
	Now       func() time.Time
}

// Service is the entry point for every operation on a project's memory.
type Service struct {
	root        string
	sessionsDir string
	limit       int

	repo      *index.Repository
	store     *vectorstore.Store
	embedder  embedding.Embedder
	extractor *extract.Extractor
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

// New creates a Service from already opened components.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.New(opts.Logger, extract.WithClock(opts.Now))
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	return &Service{
		root:        opts.ProjectRoot,
		sessionsDir: opts.SessionsDir,
		limit:       opts.SearchLimit,
		repo:        opts.Repo,
		store:       opts.Store,
		embedder:    opts.Embedder,
		extractor:   opts.Extractor,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
}

// Open builds the embedder, vector store and index repository described by
// cfg. The caller must Close the service.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, mc *metrics.Collector) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	emb, err := embedding.New(ctx, cfg.Embedding(), logger)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	store, err := vectorstore.Open(ctx, cfg.VectorsPath(), vectorstore.Options{
		Dimension: emb.Dimension(),
		Model:     emb.Model(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	repo := index.NewRepository(cfg.DataDir,
		index.WithLockTimeout(cfg.LockTimeout),
		index.WithLogger(logger),
		index.WithMetrics(mc),
	)

	return New(Options{
		ProjectRoot: cfg.ProjectRoot,
		SessionsDir: cfg.SessionsDir(),
		SearchLimit: cfg.SearchLimit,
		Repo:        repo,
		Store:       store,
		Embedder:    emb,
		Logger:      logger,
		Metrics:     mc,
	}), nil
}

// Close releases the vector store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Embedder returns the embedder in use.
func (s *Service) Embedder() embedding.Embedder { return s.embedder }

// Initialize creates the project index and the sessions directory. It
// reports false when the project was already initialized.
func (s *Service) Initialize(ctx context.Context) (bool, error) {
	if s.sessionsDir != "" {
		if err := os.MkdirAll(s.sessionsDir, 0o755); err != nil {
			return false, fmt.Errorf("create sessions dir: %w", err)
		}
	}
	return s.repo.Initialize(ctx, s.root)
}

// Index returns the last published index snapshot.
func (s *Service) Index(ctx context.Context) (*index.Index, error) {
	return s.repo.Load(ctx)
}

// StatsReport summarises the stored memory.
type StatsReport struct {
	Index     models.Stats     `json:"index"`
	Vectors   int              `json:"vectors"`
	Topics    int              `json:"topics"`
	Model     string           `json:"model"`
	Dimension int              `json:"dimension"`
	Updated   time.Time        `json:"lastUpdated"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

// Stats reports index totals next to the vector row count.
func (s *Service) Stats(ctx context.Context) (*StatsReport, error) {
	x, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	p := x.Snapshot()
	return &StatsReport{
		Index:     p.Stats,
		Vectors:   n,
		Topics:    len(p.Topics),
		Model:     s.embedder.Model(),
		Dimension: s.embedder.Dimension(),
		Updated:   p.LastUpdated,
		Metrics:   s.metrics.Snapshot(),
	}, nil
}

// storeVectors embeds items in one batch and writes them in one transaction.
func (s *Service) storeVectors(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.EmbeddingText()
	}

	done := s.metrics.Start(metrics.OpEmbedding)
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	done(len(texts))
	if err != nil {
		return fmt.Errorf("embed items: %w", err)
	}
	if len(vectors) != len(items) {
		return fmt.Errorf("embed items: got %d vectors for %d texts", len(vectors), len(items))
	}

	rows := make([]vectorstore.Row, len(items))
	for i, it := range items {
		rows[i] = vectorstore.Row{Entry: models.EntryFor(it), Vector: vectors[i]}
	}

	done = s.metrics.Start(metrics.OpVectorWrite)
	err = s.store.InsertBatch(ctx, rows)
	done(len(rows))
	return err
}

// ensureIndex initializes the project on first write.
func (s *Service) ensureIndex(ctx context.Context) error {
	if s.repo.Exists() {
		return nil
	}
	_, err := s.Initialize(ctx)
	return err
}

// IsNotInitialized reports whether err means the project has no index yet.
func IsNotInitialized(err error) bool {
	return errors.Is(err, index.ErrNotInitialized)
}
