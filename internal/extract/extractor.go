// Package extract turns transcript text into decisions, patterns, tasks and insights.
package extract

import (
	"log/slog"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
)

// Items is what a Source produces. Markers counts marker heads seen, even
// those whose body turned out empty.
type Items struct {
	Decisions []models.Decision
	Patterns  []models.Pattern
	Tasks     []models.Task
	Insights  []models.Insight
	Markers   int
}

// Counts returns the number of items per type.
func (it Items) Counts() models.ItemCounts {
	return models.ItemCounts{
		Decisions: len(it.Decisions),
		Patterns:  len(it.Patterns),
		Tasks:     len(it.Tasks),
		Insights:  len(it.Insights),
	}
}

// Source produces knowledge items from text segments.
type Source interface {
	Name() string
	Extract(segments []string, sessionID string) Items
}

// Result is the outcome of extracting one transcript.
type Result struct {
	Items
	Summary   string
	Topics    []string
	Heuristic bool
}

// Extractor runs the marker grammar and falls back to heuristics when a
// transcript carries no markers at all.
type Extractor struct {
	markers  Source
	fallback Source
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*options)

type options struct {
	now      func() time.Time
	fallback bool
}

// WithClock sets the time source used for item timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutFallback disables heuristic extraction.
func WithoutFallback() Option {
	return func(o *options) { o.fallback = false }
}

// New creates an Extractor.
func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now, fallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Extractor{
		markers: NewMarkerSource(o.now),
		logger:  logger,
	}
	if o.fallback {
		e.fallback = NewHeuristicSource(o.now)
	}
	return e
}

// Extract scans the user and assistant turns of t. Tool output is ignored.
func (e *Extractor) Extract(t *parser.Transcript, sessionID string) *Result {
	segments := make([]string, 0, t.Len())
	for _, entry := range t.Entries {
		if entry.Role == parser.RoleUser || entry.Role == parser.RoleAssistant {
			segments = append(segments, entry.Text)
		}
	}

	res := &Result{Items: e.markers.Extract(segments, sessionID)}
	if res.Markers == 0 && e.fallback != nil {
		res.Items = e.fallback.Extract(segments, sessionID)
		res.Heuristic = true
	}

	res.Summary = Summarize(res.Items, t)
	res.Topics = Topics(res.Items)

	e.logger.Debug("extraction complete",
		"session_id", sessionID,
		"segments", len(segments),
		"markers", res.Markers,
		"heuristic", res.Heuristic,
		"decisions", len(res.Decisions),
		"patterns", len(res.Patterns),
		"tasks", len(res.Tasks),
		"insights", len(res.Insights),
	)
	return res
}
