package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/extract"
	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
)

// ProcessedSession is the outcome of processing one transcript.
type ProcessedSession struct {
	Session       models.Session
	Extracted     models.ItemCounts
	Added         models.ItemCounts
	Items         []models.Item
	Heuristic     bool
	TokenEstimate int
	Skipped       int
}

// ProcessTranscript parses the transcript at path, extracts knowledge, and
// persists every item not already in the index. The raw transcript is kept
// as sessions/<sessionID>.jsonl. An empty sessionID falls back to the
// conversation id recorded in the transcript, then to the file name.
// A missing transcript extracts nothing and leaves the index untouched.
func (s *Service) ProcessTranscript(ctx context.Context, path, sessionID string) (*ProcessedSession, error) {
	t, err := parser.ParseFile(path, s.logger)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = t.ConversationID
	}
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if t.Len() == 0 {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			s.logger.Info("transcript not found, nothing to extract", "path", path, "session_id", sessionID)
			return &ProcessedSession{Session: models.Session{ID: sessionID}}, nil
		}
	}

	done := s.metrics.Start(metrics.OpExtraction)
	res := s.extractor.Extract(t, sessionID)
	done(res.Counts().Total())

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	retained, err := s.retain(path, sessionID)
	if err != nil {
		return nil, err
	}

	out := &ProcessedSession{
		Extracted:     res.Counts(),
		Heuristic:     res.Heuristic,
		TokenEstimate: EstimateTokens(t.FullText),
		Skipped:       t.Skipped,
	}

	err = s.repo.Update(ctx, func(x *index.Index) error {
		added, counts, err := stage(x, res.Items)
		if err != nil {
			return err
		}
		if err := s.storeVectors(ctx, added); err != nil {
			return err
		}

		sess := models.Session{
			ID:             sessionID,
			ConversationID: t.ConversationID,
			StartedAt:      t.StartedAt,
			EndedAt:        t.EndedAt,
			ProcessedAt:    s.now(),
			TokenEstimate:  out.TokenEstimate,
			Summary:        res.Summary,
			Counts:         out.Extracted,
			Added:          counts,
			Topics:         res.Topics,
			ModifiedFiles:  t.ModifiedFiles,
			TranscriptPath: retained,
		}
		x.PutSession(sess)

		out.Session = sess
		out.Added = counts
		out.Items = added
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("process session %s: %w", sessionID, err)
	}

	s.logger.Info("session processed",
		"session_id", sessionID,
		"entries", t.Len(),
		"extracted", out.Extracted.Total(),
		"added", out.Added.Total(),
		"heuristic", out.Heuristic,
		"tokens", out.TokenEstimate,
	)
	return out, nil
}

// stage adds extracted items to x and returns the ones that were new.
func stage(x *index.Index, items extract.Items) ([]models.Item, models.ItemCounts, error) {
	var (
		added  []models.Item
		counts models.ItemCounts
	)
	for _, d := range items.Decisions {
		got, ok, err := x.AddDecision(d)
		if err != nil {
			return nil, counts, err
		}
		if ok {
			added = append(added, &got)
			counts.Inc(models.TypeDecision)
		}
	}
	for _, p := range items.Patterns {
		got, ok, err := x.AddPattern(p)
		if err != nil {
			return nil, counts, err
		}
		if ok {
			added = append(added, &got)
			counts.Inc(models.TypePattern)
		}
	}
	for _, t := range items.Tasks {
		got, ok, err := x.AddTask(t)
		if err != nil {
			return nil, counts, err
		}
		if ok {
			added = append(added, &got)
			counts.Inc(models.TypeTask)
		}
	}
	for _, in := range items.Insights {
		got, ok, err := x.AddInsight(in)
		if err != nil {
			return nil, counts, err
		}
		if ok {
			added = append(added, &got)
			counts.Inc(models.TypeInsight)
		}
	}
	return added, counts, nil
}

// retain copies the transcript into the sessions directory and returns its
// path relative to the data directory.
func (s *Service) retain(src, sessionID string) (string, error) {
	if s.sessionsDir == "" {
		return "", nil
	}
	name := sanitizeID(sessionID) + ".jsonl"
	dst := filepath.Join(s.sessionsDir, name)
	rel := filepath.Join(filepath.Base(s.sessionsDir), name)

	if same, _ := samePath(src, dst); same {
		return rel, nil
	}
	if err := os.MkdirAll(s.sessionsDir, 0o755); err != nil {
		return "", fmt.Errorf("create sessions dir: %w", err)
	}

	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open transcript: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(s.sessionsDir, ".session-*.tmp")
	if err != nil {
		return "", fmt.Errorf("retain transcript: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return "", fmt.Errorf("retain transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("retain transcript: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("retain transcript: %w", err)
	}
	return rel, nil
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// sanitizeID keeps session ids usable as file names.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// sinceMs is a logging helper.
func sinceMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
