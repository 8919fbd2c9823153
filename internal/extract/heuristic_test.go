package extract

import (
	"strings"
	"testing"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicDecisions(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTopic string
	}{
		{"decided to", "We decided to use PostgreSQL for storage.", "postgresql"},
		{"we will use", "For caching we will use Redis clusters.", "redis"},
		{"opted for", "In the end we opted for the gRPC transport.", "grpc"},
		{"chose", "The team chose cobra for the command line.", "cobra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := NewHeuristicSource(clock).Extract([]string{tt.input}, "s1")
			require.Len(t, items.Decisions, 1)
			d := items.Decisions[0]
			assert.Equal(t, tt.wantTopic, d.Topic)
			assert.Equal(t, tt.input, d.Decision)
			assert.Equal(t, models.SourceHeuristic, d.Source)
			assert.InDelta(t, heuristicConfidence, d.Confidence, 1e-9)
			assert.Equal(t, 0, items.Markers)
		})
	}
}

func TestHeuristicTasks(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantTitle    string
		wantPriority models.Priority
	}{
		{"todo prefix", "TODO: wire the reconcile command into CI", "wire the reconcile command into CI", models.PriorityMedium},
		{"need to", "We still need to handle urgent token refresh failures.", "We still need to handle urgent token refresh failures.", models.PriorityHigh},
		{"bullet command", "- add tests for the watcher debounce", "add tests for the watcher debounce", models.PriorityMedium},
		{"low priority", "We should eventually drop the legacy flag.", "We should eventually drop the legacy flag.", models.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := NewHeuristicSource(clock).Extract([]string{tt.input}, "s1")
			require.Len(t, items.Tasks, 1)
			assert.Equal(t, tt.wantTitle, items.Tasks[0].Title)
			assert.Equal(t, tt.wantPriority, items.Tasks[0].Priority)
			assert.Equal(t, models.StatusPending, items.Tasks[0].Status)
		})
	}
}

func TestHeuristicInsights(t *testing.T) {
	items := NewHeuristicSource(clock).Extract([]string{"It turns out the lock is released on close."}, "s1")
	require.Len(t, items.Insights, 1)
	assert.Equal(t, "It turns out the lock is released on close.", items.Insights[0].Content)
}

func TestHeuristicIgnoresNoise(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too short", "Chose Go."},
		{"too long", "We decided to " + strings.Repeat("go on and on ", 40)},
		{"plain prose", "The function returns the sum of both values in order."},
		{"code fence", "```go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := NewHeuristicSource(clock).Extract([]string{tt.input}, "s1")
			assert.Equal(t, 0, items.Counts().Total())
		})
	}
}

func TestHeuristicCapsPerKind(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("It turns out that finding number ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(" matters.\n")
	}
	items := NewHeuristicSource(clock).Extract([]string{b.String()}, "s1")
	assert.Len(t, items.Insights, defaultMaxKind)
}

func TestGuessTopic(t *testing.T) {
	assert.Equal(t, "sqlite", guessTopic("use SQLite for now"))
	assert.Equal(t, "general", guessTopic("to use the"))
	assert.Equal(t, "v2", guessTopic("with v2."))
}
