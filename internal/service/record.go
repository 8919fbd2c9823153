package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// ManualSession is the session id given to directly recorded items.
const ManualSession = "manual"

// RawDecision is a decision as supplied by a caller.
type RawDecision struct {
	Topic      string `json:"topic"`
	Decision   string `json:"decision"`
	Rationale  string `json:"rationale,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
}

// RawPattern is a pattern as supplied by a caller.
type RawPattern struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage,omitempty"`
}

// RawTask is a task as supplied by a caller.
type RawTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// RawInsight is an insight as supplied by a caller.
type RawInsight struct {
	Content string `json:"content"`
	Context string `json:"context,omitempty"`
}

// RawBatch is the direct-entry payload.
type RawBatch struct {
	SessionID string        `json:"sessionId,omitempty"`
	Decisions []RawDecision `json:"decisions,omitempty"`
	Patterns  []RawPattern  `json:"patterns,omitempty"`
	Tasks     []RawTask     `json:"tasks,omitempty"`
	Insights  []RawInsight  `json:"insights,omitempty"`

	// Rejected lists items that failed to decode. Their slots above hold
	// zero values so indexes match the payload.
	Rejected []Rejection `json:"-"`
}

// Len is the number of items in the batch.
func (b RawBatch) Len() int {
	return len(b.Decisions) + len(b.Patterns) + len(b.Tasks) + len(b.Insights)
}

// Rejection explains why one batch item was skipped.
type Rejection struct {
	Type   models.ItemType `json:"type"`
	Index  int             `json:"index"`
	Reason string          `json:"reason"`
}

// RecordResult reports what a batch changed.
type RecordResult struct {
	Added      models.ItemCounts `json:"added"`
	Duplicates models.ItemCounts `json:"duplicates"`
	Rejected   []Rejection       `json:"rejected,omitempty"`
	Items      []models.Item     `json:"-"`
}

// DecodeBatch reads a RawBatch from JSON. Each item is decoded on its own;
// an item that does not fit its schema is listed in Rejected and the rest
// of the batch is kept.
func DecodeBatch(r io.Reader) (RawBatch, error) {
	var raw struct {
		SessionID string            `json:"sessionId"`
		Decisions []json.RawMessage `json:"decisions"`
		Patterns  []json.RawMessage `json:"patterns"`
		Tasks     []json.RawMessage `json:"tasks"`
		Insights  []json.RawMessage `json:"insights"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return RawBatch{}, fmt.Errorf("decode batch: %w", err)
	}

	b := RawBatch{SessionID: raw.SessionID}
	b.Decisions = decodeItems[RawDecision](raw.Decisions, models.TypeDecision, &b.Rejected)
	b.Patterns = decodeItems[RawPattern](raw.Patterns, models.TypePattern, &b.Rejected)
	b.Tasks = decodeItems[RawTask](raw.Tasks, models.TypeTask, &b.Rejected)
	b.Insights = decodeItems[RawInsight](raw.Insights, models.TypeInsight, &b.Rejected)
	return b, nil
}

func decodeItems[T any](raw []json.RawMessage, kind models.ItemType, rejected *[]Rejection) []T {
	if len(raw) == 0 {
		return nil
	}
	out := make([]T, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &out[i]); err != nil {
			var zero T
			out[i] = zero
			*rejected = append(*rejected, Rejection{Type: kind, Index: i, Reason: "invalid item: " + err.Error()})
		}
	}
	return out
}

// RecordItems stores manually supplied items through the same dedup and
// embedding path as extraction. Items missing required fields are rejected
// one by one. A consistency error, such as a dangling supersedes reference,
// aborts the whole batch before anything is written.
func (s *Service) RecordItems(ctx context.Context, batch RawBatch) (*RecordResult, error) {
	sessionID := strings.TrimSpace(batch.SessionID)
	if sessionID == "" {
		sessionID = ManualSession
	}
	now := s.now()
	out := &RecordResult{Rejected: append([]Rejection(nil), batch.Rejected...)}
	reject := func(t models.ItemType, i int, reason string) {
		out.Rejected = append(out.Rejected, Rejection{Type: t, Index: i, Reason: reason})
	}
	undecoded := make(map[Rejection]bool, len(batch.Rejected))
	for _, r := range batch.Rejected {
		undecoded[Rejection{Type: r.Type, Index: r.Index}] = true
	}
	skip := func(t models.ItemType, i int) bool {
		return undecoded[Rejection{Type: t, Index: i}]
	}

	var decisions []models.Decision
	for i, d := range batch.Decisions {
		if skip(models.TypeDecision, i) {
			continue
		}
		if blank(d.Topic) || blank(d.Decision) {
			reject(models.TypeDecision, i, "topic and decision are required")
			continue
		}
		decisions = append(decisions, models.Decision{
			Topic:      strings.TrimSpace(d.Topic),
			Decision:   strings.TrimSpace(d.Decision),
			Rationale:  strings.TrimSpace(d.Rationale),
			Supersedes: strings.TrimSpace(d.Supersedes),
			SessionID:  sessionID,
			CreatedAt:  now,
			Source:     models.SourceManual,
			Confidence: 1,
		})
	}
	var patterns []models.Pattern
	for i, p := range batch.Patterns {
		if skip(models.TypePattern, i) {
			continue
		}
		if blank(p.Name) || blank(p.Description) {
			reject(models.TypePattern, i, "name and description are required")
			continue
		}
		patterns = append(patterns, models.Pattern{
			Name:        strings.TrimSpace(p.Name),
			Description: strings.TrimSpace(p.Description),
			Usage:       strings.TrimSpace(p.Usage),
			SessionID:   sessionID,
			CreatedAt:   now,
			Source:      models.SourceManual,
		})
	}
	var tasks []models.Task
	for i, t := range batch.Tasks {
		if skip(models.TypeTask, i) {
			continue
		}
		if blank(t.Title) {
			reject(models.TypeTask, i, "title is required")
			continue
		}
		tasks = append(tasks, models.Task{
			Title:       strings.TrimSpace(t.Title),
			Description: strings.TrimSpace(t.Description),
			Priority:    models.ParsePriority(t.Priority),
			SessionID:   sessionID,
			CreatedAt:   now,
			Source:      models.SourceManual,
		})
	}
	var insights []models.Insight
	for i, in := range batch.Insights {
		if skip(models.TypeInsight, i) {
			continue
		}
		if blank(in.Content) {
			reject(models.TypeInsight, i, "content is required")
			continue
		}
		insights = append(insights, models.Insight{
			Content:   strings.TrimSpace(in.Content),
			Context:   strings.TrimSpace(in.Context),
			SessionID: sessionID,
			CreatedAt: now,
			Source:    models.SourceManual,
		})
	}

	for _, r := range out.Rejected {
		s.logger.Debug("batch item rejected", "type", r.Type, "index", r.Index, "reason", r.Reason)
	}

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	err := s.repo.Update(ctx, func(x *index.Index) error {
		var (
			added  []models.Item
			counts models.ItemCounts
			dups   models.ItemCounts
		)
		track := func(it models.Item, ok bool) {
			if ok {
				added = append(added, it)
				counts.Inc(it.Kind())
			} else {
				dups.Inc(it.Kind())
			}
		}
		for _, d := range decisions {
			got, ok, err := x.AddDecision(d)
			if err != nil {
				return err
			}
			track(&got, ok)
		}
		for _, p := range patterns {
			got, ok, err := x.AddPattern(p)
			if err != nil {
				return err
			}
			track(&got, ok)
		}
		for _, t := range tasks {
			got, ok, err := x.AddTask(t)
			if err != nil {
				return err
			}
			track(&got, ok)
		}
		for _, in := range insights {
			got, ok, err := x.AddInsight(in)
			if err != nil {
				return err
			}
			track(&got, ok)
		}

		if err := s.storeVectors(ctx, added); err != nil {
			return err
		}
		out.Added, out.Duplicates, out.Items = counts, dups, added
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record items: %w", err)
	}

	s.logger.Info("items recorded",
		"session_id", sessionID,
		"added", out.Added.Total(),
		"duplicates", out.Duplicates.Total(),
		"rejected", len(out.Rejected),
	)
	return out, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
