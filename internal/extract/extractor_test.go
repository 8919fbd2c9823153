package extract

import (
	"fmt"
	"testing"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript(entries ...parser.Entry) *parser.Transcript {
	for i := range entries {
		entries[i].Index = i
	}
	return &parser.Transcript{Entries: entries}
}

func TestExtractorUsesMarkers(t *testing.T) {
	tr := transcript(
		parser.Entry{Role: parser.RoleUser, Text: "We decided to use Postgres for the queue."},
		parser.Entry{Role: parser.RoleAssistant, Text: "[DECISION: database] Use SQLite\n\n[TASK: high] Add tests"},
	)

	res := New(nil, WithClock(clock)).Extract(tr, "s1")

	assert.False(t, res.Heuristic)
	assert.Equal(t, 2, res.Markers)
	require.Len(t, res.Decisions, 1, "prose is not mined when markers exist")
	assert.Equal(t, "database", res.Decisions[0].Topic)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, []string{"database"}, res.Topics)
	assert.Equal(t, "Decided database (Use SQLite). Captured 1 decision, 0 patterns, 1 task and 0 insights.", res.Summary)
}

func TestExtractorFallsBackWithoutMarkers(t *testing.T) {
	tr := transcript(
		parser.Entry{Role: parser.RoleUser, Text: "How should we store vectors?"},
		parser.Entry{Role: parser.RoleAssistant, Text: "We decided to use SQLite for vector storage."},
	)

	res := New(nil, WithClock(clock)).Extract(tr, "s1")

	assert.True(t, res.Heuristic)
	assert.Equal(t, 0, res.Markers)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, models.SourceHeuristic, res.Decisions[0].Source)
	assert.Equal(t, "sqlite", res.Decisions[0].Topic)
}

func TestExtractorWithoutFallback(t *testing.T) {
	tr := transcript(parser.Entry{Role: parser.RoleAssistant, Text: "We decided to use SQLite for vector storage."})

	res := New(nil, WithClock(clock), WithoutFallback()).Extract(tr, "s1")

	assert.False(t, res.Heuristic)
	assert.Equal(t, 0, res.Counts().Total())
}

func TestExtractorIgnoresToolOutput(t *testing.T) {
	tr := transcript(
		parser.Entry{Role: parser.RoleTool, Text: "[DECISION: leaked] from a file dump"},
		parser.Entry{Role: parser.RoleAssistant, Text: "[INSIGHT] tool output is not a source"},
	)

	res := New(nil, WithClock(clock)).Extract(tr, "s1")

	assert.Empty(t, res.Decisions)
	require.Len(t, res.Insights, 1)
}

func TestExtractorEmptyTranscript(t *testing.T) {
	res := New(nil, WithClock(clock)).Extract(&parser.Transcript{}, "s1")

	assert.Equal(t, 0, res.Counts().Total())
	assert.Equal(t, "No knowledge captured.", res.Summary)
	assert.Empty(t, res.Topics)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		items Items
		tr    *parser.Transcript
		want  string
	}{
		{
			name: "decisions and patterns",
			items: Items{
				Decisions: []models.Decision{{Topic: "db", Decision: "Use SQLite."}, {Topic: "api", Decision: "REST"}},
				Patterns:  []models.Pattern{{Name: "errors"}},
			},
			want: "Decided db (Use SQLite); api (REST). Established patterns: errors. Captured 2 decisions, 1 pattern, 0 tasks and 0 insights.",
		},
		{
			name:  "only tasks",
			items: Items{Tasks: []models.Task{{Title: "a"}}, Insights: []models.Insight{{Content: "b"}, {Content: "c"}}},
			want:  "Captured 0 decisions, 0 patterns, 1 task and 2 insights.",
		},
		{
			name: "nothing extracted echoes first request",
			tr: transcript(
				parser.Entry{Role: parser.RoleAssistant, Text: "hello"},
				parser.Entry{Role: parser.RoleUser, Text: "Please   refactor the parser"},
			),
			want: "Session started with: Please refactor the parser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.items, tt.tr))
		})
	}
}

func TestTopics(t *testing.T) {
	items := Items{
		Decisions: []models.Decision{{Topic: "Database"}, {Topic: "database"}, {Topic: "auth"}},
		Patterns:  []models.Pattern{{Name: "AUTH"}, {Name: "naming"}},
	}
	assert.Equal(t, []string{"Database", "auth", "naming"}, Topics(items))

	var many Items
	for i := 0; i < 15; i++ {
		many.Decisions = append(many.Decisions, models.Decision{Topic: fmt.Sprintf("topic-%d", i)})
	}
	assert.Len(t, Topics(many), MaxTopics)
}
