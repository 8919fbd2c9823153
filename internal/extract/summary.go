package extract

import (
	"fmt"
	"strings"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
)

const (
	// MaxTopics caps the key topics reported per session.
	MaxTopics = 10

	summaryListItems = 3
)

// Summarize builds a summary of at most three sentences: decisions first,
// then patterns, then item counts. Without items it echoes the first request.
func Summarize(items Items, t *parser.Transcript) string {
	var sentences []string

	if n := len(items.Decisions); n > 0 {
		parts := make([]string, 0, summaryListItems)
		for _, d := range items.Decisions[:min(n, summaryListItems)] {
			parts = append(parts, fmt.Sprintf("%s (%s)", d.Topic, strings.TrimRight(models.Truncate(d.Decision, 60), ".")))
		}
		sentences = append(sentences, "Decided "+strings.Join(parts, "; ")+".")
	}

	if n := len(items.Patterns); n > 0 {
		names := make([]string, 0, summaryListItems)
		for _, p := range items.Patterns[:min(n, summaryListItems)] {
			names = append(names, p.Name)
		}
		sentences = append(sentences, "Established patterns: "+strings.Join(names, ", ")+".")
	}

	c := items.Counts()
	if c.Total() > 0 {
		sentences = append(sentences, fmt.Sprintf("Captured %s, %s, %s and %s.",
			plural(c.Decisions, "decision"),
			plural(c.Patterns, "pattern"),
			plural(c.Tasks, "task"),
			plural(c.Insights, "insight"),
		))
		return strings.Join(sentences, " ")
	}

	if t != nil {
		for _, e := range t.Entries {
			if e.Role == parser.RoleUser {
				return "Session started with: " + models.Truncate(models.Clean(e.Text), 120)
			}
		}
	}
	return "No knowledge captured."
}

// Topics returns decision topics then pattern names, deduplicated without
// regard to case and capped at MaxTopics.
func Topics(items Items) []string {
	seen := map[string]bool{}
	topics := []string{}
	add := func(s string) {
		key := strings.ToLower(models.Clean(s))
		if key == "" || seen[key] || len(topics) >= MaxTopics {
			return
		}
		seen[key] = true
		topics = append(topics, models.Clean(s))
	}
	for _, d := range items.Decisions {
		add(d.Topic)
	}
	for _, p := range items.Patterns {
		add(p.Name)
	}
	return topics
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
