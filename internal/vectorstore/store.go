package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	id          TEXT PRIMARY KEY,
	item_type   TEXT NOT NULL,
	source_text TEXT NOT NULL,
	session_id  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	dimension   INTEGER NOT NULL,
	vector      BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_embeddings_type ON embeddings(item_type);
`

const upsertSQL = `
INSERT INTO embeddings (id, item_type, source_text, session_id, created_at, dimension, vector)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	item_type   = excluded.item_type,
	source_text = excluded.source_text,
	session_id  = excluded.session_id,
	created_at  = excluded.created_at,
	dimension   = excluded.dimension,
	vector      = excluded.vector`

// deleteChunk bounds the number of bound parameters per DELETE statement.
const deleteChunk = 500

// Options configure Open.
type Options struct {
	// Dimension every stored and queried vector must have.
	Dimension int

	// Model names the embedding model. Empty skips the model check.
	Model string

	Logger *slog.Logger
}

// Row is one vector with its metadata.
type Row struct {
	Entry  models.EmbeddingEntry
	Vector []float32
}

// Hit is a ranked search result.
type Hit struct {
	models.EmbeddingEntry
	Score float64
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// storeHooks let tests inject faults into writes.
type storeHooks struct {
	exec   func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	commit func(tx *sql.Tx) error
}

// Store is a SQLite-backed vector store.
type Store struct {
	db     *sql.DB
	dim    int
	model  string
	logger *slog.Logger
	hooks  storeHooks

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the store at path. The dimension and model are
// recorded on first open; reopening with different values fails.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("open vector store: dimension must be positive, got %d", opts.Dimension)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create vector store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	// One connection keeps per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("vector store pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create vector store schema: %w", err)
	}

	s := &Store{db: db, dim: opts.Dimension, model: opts.Model, logger: opts.Logger}
	if err := s.checkMeta(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("vector store opened", "path", path, "dimension", s.dim, "model", s.model)
	return s, nil
}

// checkMeta records or verifies the dimension and model of the store.
func (s *Store) checkMeta(ctx context.Context) error {
	meta := map[string]string{}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return fmt.Errorf("read vector store meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return fmt.Errorf("scan vector store meta: %w", err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read vector store meta: %w", err)
	}

	if v, ok := meta["dimension"]; ok {
		stored, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse stored dimension %q: %w", v, err)
		}
		if stored != s.dim {
			return fmt.Errorf("%w: store has %d, embedder has %d", ErrDimensionMismatch, stored, s.dim)
		}
	}
	if v, ok := meta["model"]; ok && s.model != "" && v != s.model {
		return fmt.Errorf("%w: store was built with %q, embedder is %q", ErrModelMismatch, v, s.model)
	}

	const put = `INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, put, "dimension", strconv.Itoa(s.dim)); err != nil {
		return fmt.Errorf("write vector store meta: %w", err)
	}
	if s.model != "" {
		if _, err := s.db.ExecContext(ctx, put, "model", s.model); err != nil {
			return fmt.Errorf("write vector store meta: %w", err)
		}
	}
	return nil
}

// Dimension returns the vector size of the store.
func (s *Store) Dimension() int { return s.dim }

// Model returns the configured embedding model name.
func (s *Store) Model() string { return s.model }

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// acquire guards against use after Close. Callers must call the returned release.
func (s *Store) acquire() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

// Insert upserts a single vector.
func (s *Store) Insert(ctx context.Context, entry models.EmbeddingEntry, vector []float32) error {
	return s.InsertBatch(ctx, []Row{{Entry: entry, Vector: vector}})
}

// InsertBatch upserts rows in one transaction: all rows are written or none.
func (s *Store) InsertBatch(ctx context.Context, rows []Row) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if len(rows) == 0 {
		return nil
	}
	for i, r := range rows {
		if len(r.Vector) != s.dim {
			return fmt.Errorf("row %d (%s): %w: got %d, want %d", i, r.Entry.ID, ErrDimensionMismatch, len(r.Vector), s.dim)
		}
		if r.Entry.ID == "" {
			return fmt.Errorf("row %d: empty id", i)
		}
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vector batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		_, err := s.execHook(ctx, tx, upsertSQL,
			r.Entry.ID,
			string(r.Entry.Type),
			r.Entry.Text,
			r.Entry.SessionID,
			r.Entry.CreatedAt.UnixNano(),
			len(r.Vector),
			encodeVector(r.Vector),
		)
		if err != nil {
			return fmt.Errorf("insert vector %s: %w", r.Entry.ID, err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("commit vector batch: %w", err)
	}

	s.logger.Debug("vector batch inserted", "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Search returns the k rows most similar to query, optionally restricted to
// the given item types. Ties are broken by the most recent CreatedAt, then id.
// k <= 0 returns every row.
func (s *Store) Search(ctx context.Context, query []float32, k int, types ...models.ItemType) ([]Hit, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if len(query) != s.dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(query), s.dim)
	}

	q := `SELECT id, item_type, source_text, session_id, created_at, vector FROM embeddings`
	args := make([]any, 0, len(types))
	if len(types) > 0 {
		q += ` WHERE item_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	qn := norm(query)
	var hits []Hit
	for rows.Next() {
		var (
			h       Hit
			typ     string
			created int64
			blob    []byte
		)
		if err := rows.Scan(&h.ID, &typ, &h.Text, &h.SessionID, &created, &blob); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		v, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", h.ID, err)
		}
		if len(v) != s.dim {
			return nil, fmt.Errorf("stored vector %s: %w: got %d, want %d", h.ID, ErrDimensionMismatch, len(v), s.dim)
		}
		h.Type = models.ItemType(typ)
		h.CreatedAt = time.Unix(0, created).UTC()
		h.Score = cosineWithNorm(query, qn, v)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID < hits[j].ID
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes rows by id and reports how many existed.
func (s *Store) Delete(ctx context.Context, ids ...string) (int, error) {
	release, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin vector delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for start := 0; start < len(ids); start += deleteChunk {
		chunk := ids[start:min(start+deleteChunk, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		res, err := s.execHook(ctx, tx, `DELETE FROM embeddings WHERE id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return 0, fmt.Errorf("delete vectors: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete vectors: %w", err)
		}
		deleted += int(n)
	}

	if err := s.commitHook(tx); err != nil {
		return 0, fmt.Errorf("commit vector delete: %w", err)
	}
	return deleted, nil
}

// IDs lists every stored id.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM embeddings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list vector ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vector id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	release, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// Close releases the database. Any later call returns ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close vector store: %w", err)
	}
	return nil
}

// IsClosed reports whether err came from a closed store.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
