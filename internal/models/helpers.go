package models

import (
	"strings"
	"unicode/utf8"
)

// Clean trims s and collapses every run of whitespace into a single space.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return strings.TrimSpace(string([]rune(s)[:n-3])) + "..."
}

// EqualFold reports whether two strings match after cleaning, ignoring case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(Clean(a), Clean(b))
}

// EmbeddingText returns "<topic>: <decision>" plus the rationale when present.
func (d *Decision) EmbeddingText() string {
	s := d.Topic + ": " + d.Decision
	if d.Rationale != "" {
		s += " Rationale: " + d.Rationale
	}
	return s
}

// EmbeddingText returns "<name>: <description>" plus usage when present.
func (p *Pattern) EmbeddingText() string {
	s := p.Name + ": " + p.Description
	if p.Usage != "" {
		s += " Usage: " + p.Usage
	}
	return s
}

// EmbeddingText returns the title, followed by the description when it adds anything.
func (t *Task) EmbeddingText() string {
	if t.Description == "" || t.Description == t.Title {
		return t.Title
	}
	return t.Title + ": " + t.Description
}

// EmbeddingText returns the content plus its context when present.
func (i *Insight) EmbeddingText() string {
	if i.Context == "" {
		return i.Content
	}
	return i.Content + " Context: " + i.Context
}

// Headline is a one-line label for listings.
func Headline(it Item) string {
	switch v := it.(type) {
	case *Decision:
		return v.Topic + ": " + Truncate(v.Decision, 100)
	case *Pattern:
		return v.Name
	case *Task:
		return "[" + string(v.Status) + "] " + v.Title
	case *Insight:
		return Truncate(v.Content, 100)
	default:
		return it.ItemID()
	}
}
