// Package models defines the knowledge items and the project index aggregate.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemType identifies the kind of a knowledge item.
type ItemType string

const (
	TypeDecision ItemType = "decision"
	TypePattern  ItemType = "pattern"
	TypeTask     ItemType = "task"
	TypeInsight  ItemType = "insight"
)

// ItemTypes lists every embeddable item kind in display order.
var ItemTypes = []ItemType{TypeDecision, TypePattern, TypeTask, TypeInsight}

// ParseItemType accepts singular or plural names, case-insensitively.
func ParseItemType(s string) (ItemType, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for _, t := range ItemTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Source records how an item entered the index.
type Source string

const (
	SourceMarker    Source = "marker"
	SourceHeuristic Source = "heuristic"
	SourceManual    Source = "manual"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps free text to a priority; anything unrecognised is medium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// TaskStatus is the state of a task. Transitions only go pending -> completed.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// Item is implemented by every embeddable knowledge item.
type Item interface {
	ItemID() string
	Kind() ItemType
	EmbeddingText() string
	OwnerSession() string
	Created() time.Time
}

// Decision records a choice made during a session.
type Decision struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale,omitempty"`
	SessionID  string    `json:"sessionId"`
	CreatedAt  time.Time `json:"timestamp"`
	Supersedes string    `json:"supersedes,omitempty"`
	Source     Source    `json:"source,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
}

// Pattern records a convention or recurring approach.
type Pattern struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Usage       string    `json:"usage,omitempty"`
	SessionID   string    `json:"sessionId"`
	CreatedAt   time.Time `json:"timestamp"`
	Source      Source    `json:"source,omitempty"`
}

// Task is an outstanding piece of work.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	SessionID   string     `json:"sessionId"`
	CreatedAt   time.Time  `json:"timestamp"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Source      Source     `json:"source,omitempty"`
}

// Insight is a free-form observation worth remembering.
type Insight struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Context   string    `json:"context,omitempty"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`
}

// ItemCounts holds per-type item counts.
type ItemCounts struct {
	Decisions int `json:"decisions"`
	Patterns  int `json:"patterns"`
	Tasks     int `json:"tasks"`
	Insights  int `json:"insights"`
}

// Total sums all item kinds.
func (c ItemCounts) Total() int {
	return c.Decisions + c.Patterns + c.Tasks + c.Insights
}

// Inc increments the counter for one item kind.
func (c *ItemCounts) Inc(t ItemType) {
	switch t {
	case TypeDecision:
		c.Decisions++
	case TypePattern:
		c.Patterns++
	case TypeTask:
		c.Tasks++
	case TypeInsight:
		c.Insights++
	}
}

// Session records one processing pass over a transcript.
type Session struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId,omitempty"`
	StartedAt      time.Time  `json:"startTime"`
	EndedAt        time.Time  `json:"endTime"`
	ProcessedAt    time.Time  `json:"processedAt"`
	TokenEstimate  int        `json:"tokenCount"`
	Summary        string     `json:"summary"`
	Counts         ItemCounts `json:"counts"`
	Added          ItemCounts `json:"added"`
	Topics         []string   `json:"topics,omitempty"`
	ModifiedFiles  []string   `json:"filesModified,omitempty"`
	TranscriptPath string     `json:"transcriptPath,omitempty"`
}

// EmbeddingEntry is the metadata stored next to each vector.
type EmbeddingEntry struct {
	ID        string
	Type      ItemType
	Text      string
	SessionID string
	CreatedAt time.Time
}

// EntryFor builds the vector store entry for an item.
func EntryFor(it Item) EmbeddingEntry {
	return EmbeddingEntry{
		ID:        it.ItemID(),
		Type:      it.Kind(),
		Text:      it.EmbeddingText(),
		SessionID: it.OwnerSession(),
		CreatedAt: it.Created(),
	}
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

var (
	_ Item = (*Decision)(nil)
	_ Item = (*Pattern)(nil)
	_ Item = (*Task)(nil)
	_ Item = (*Insight)(nil)
)

func (d *Decision) ItemID() string       { return d.ID }
func (d *Decision) Kind() ItemType       { return TypeDecision }
func (d *Decision) OwnerSession() string { return d.SessionID }
func (d *Decision) Created() time.Time   { return d.CreatedAt }

func (p *Pattern) ItemID() string       { return p.ID }
func (p *Pattern) Kind() ItemType       { return TypePattern }
func (p *Pattern) OwnerSession() string { return p.SessionID }
func (p *Pattern) Created() time.Time   { return p.CreatedAt }

func (t *Task) ItemID() string       { return t.ID }
func (t *Task) Kind() ItemType       { return TypeTask }
func (t *Task) OwnerSession() string { return t.SessionID }
func (t *Task) Created() time.Time   { return t.CreatedAt }

func (i *Insight) ItemID() string       { return i.ID }
func (i *Insight) Kind() ItemType       { return TypeInsight }
func (i *Insight) OwnerSession() string { return i.SessionID }
func (i *Insight) Created() time.Time   { return i.CreatedAt }
