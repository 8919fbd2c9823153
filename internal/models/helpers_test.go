package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "use sqlite", "use sqlite"},
		{"surrounding space", "  use sqlite \n", "use sqlite"},
		{"inner runs", "use\t\tsqlite\n\nfor   storage", "use sqlite for storage"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello..."},
		{"multibyte", "äöüäöüäöü", 6, "äöü..."},
		{"tiny limit", "hello", 2, "he"},
		{"no limit", "hello", 0, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestParseItemType(t *testing.T) {
	tests := []struct {
		in   string
		want ItemType
		ok   bool
	}{
		{"decision", TypeDecision, true},
		{"Decisions", TypeDecision, true},
		{"PATTERN", TypePattern, true},
		{"tasks", TypeTask, true},
		{" insight ", TypeInsight, true},
		{"session", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseItemType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, PriorityLow, ParsePriority(" low "))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
}

func TestEmbeddingText(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		item Item
		want string
	}{
		{"decision", &Decision{Topic: "database", Decision: "Use SQLite"}, "database: Use SQLite"},
		{"decision with rationale", &Decision{Topic: "database", Decision: "Use SQLite", Rationale: "embedded"}, "database: Use SQLite Rationale: embedded"},
		{"pattern", &Pattern{Name: "errors", Description: "wrap with context"}, "errors: wrap with context"},
		{"pattern with usage", &Pattern{Name: "errors", Description: "wrap", Usage: "everywhere"}, "errors: wrap Usage: everywhere"},
		{"task title only", &Task{Title: "Add tests", Description: "Add tests"}, "Add tests"},
		{"task with description", &Task{Title: "Add tests", Description: "Add tests for the store."}, "Add tests: Add tests for the store."},
		{"insight", &Insight{Content: "WAL helps", CreatedAt: now}, "WAL helps"},
		{"insight with context", &Insight{Content: "WAL helps", Context: "sqlite"}, "WAL helps Context: sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.EmbeddingText())
			assert.Equal(t, tt.item.EmbeddingText(), tt.item.EmbeddingText())
		})
	}
}

func TestEntryFor(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := &Decision{ID: "d1", Topic: "db", Decision: "sqlite", SessionID: "s1", CreatedAt: now}

	e := EntryFor(d)
	assert.Equal(t, "d1", e.ID)
	assert.Equal(t, TypeDecision, e.Type)
	assert.Equal(t, "db: sqlite", e.Text)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, now, e.CreatedAt)
}

func TestItemCounts(t *testing.T) {
	var c ItemCounts
	c.Inc(TypeDecision)
	c.Inc(TypeDecision)
	c.Inc(TypeTask)
	c.Inc(ItemType("bogus"))
	assert.Equal(t, ItemCounts{Decisions: 2, Tasks: 1}, c)
	assert.Equal(t, 3, c.Total())
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{name: "decision", item: &Decision{Topic: "db", Decision: "Use SQLite"}, want: "db: Use SQLite"},
		{name: "pattern", item: &Pattern{Name: "Repository", Description: "ignored"}, want: "Repository"},
		{name: "task", item: &Task{Title: "Add tests", Status: StatusPending}, want: "[pending] Add tests"},
		{name: "insight", item: &Insight{Content: "WAL helps"}, want: "WAL helps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Headline(tt.item))
		})
	}
}
