package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
)

// syntax distinguishes the two marker spellings.
type syntax int

const (
	syntaxLong syntax = iota
	syntaxCompact
)

// rule is one row of the marker grammar. Capture group 1 of head, when
// present, is the marker argument (topic, name or priority).
type rule struct {
	kind   models.ItemType
	syntax syntax
	head   *regexp.Regexp
}

// compactPrefix anchors compact heads at line start, optionally after a bullet,
// or after sentence punctuation, so indexing expressions like v[i] inside code
// never match.
const compactPrefix = `(?im)(?:^[ \t]*(?:[-*][ \t]+)?|[.!?][ \t]+)`

var grammar = []rule{
	{models.TypeDecision, syntaxLong, regexp.MustCompile(`(?i)\[DECISION:[ \t]*([^\]\n]+?)[ \t]*\]`)},
	{models.TypePattern, syntaxLong, regexp.MustCompile(`(?i)\[PATTERN:[ \t]*([^\]\n]+?)[ \t]*\]`)},
	{models.TypeTask, syntaxLong, regexp.MustCompile(`(?i)\[TASK(?::[ \t]*([^\]\n]*?))?[ \t]*\]`)},
	{models.TypeInsight, syntaxLong, regexp.MustCompile(`(?i)\[INSIGHT\]`)},
	{models.TypeDecision, syntaxCompact, regexp.MustCompile(compactPrefix + `\[D\]`)},
	{models.TypePattern, syntaxCompact, regexp.MustCompile(compactPrefix + `\[P\]`)},
	{models.TypeTask, syntaxCompact, regexp.MustCompile(compactPrefix + `\[T(?::[ \t]*([a-z]+))?\]`)},
	{models.TypeInsight, syntaxCompact, regexp.MustCompile(compactPrefix + `\[I\]`)},
}

const closeMarker = "[/]"

var (
	blankLine = regexp.MustCompile(`\n[ \t]*\n`)

	rationaleLine = regexp.MustCompile(`(?im)^[ \t]*(?:rationale|reason|why)[ \t]*:[ \t]*(.+)$`)
	usageLine     = regexp.MustCompile(`(?im)^[ \t]*(?:usage|when|context)[ \t]*:[ \t]*(.+)$`)
	contextLine   = regexp.MustCompile(`(?im)^[ \t]*context[ \t]*:[ \t]*(.+)$`)
	because       = regexp.MustCompile(`(?i)[,;]?\s+because\s+`)
)

const (
	defaultTopic  = "general"
	maxTitleRunes = 100
	maxNameRunes  = 60
	maxTopicRunes = 60
)

// head is a located marker head.
type head struct {
	rule  *rule
	start int
	end   int
	arg   string
}

// MarkerSource extracts items from explicit marker syntax.
type MarkerSource struct {
	now func() time.Time
}

// NewMarkerSource creates a MarkerSource.
func NewMarkerSource(now func() time.Time) *MarkerSource {
	if now == nil {
		now = time.Now
	}
	return &MarkerSource{now: now}
}

func (m *MarkerSource) Name() string { return "marker" }

// Extract scans every segment independently; a marker never spans segments.
func (m *MarkerSource) Extract(segments []string, sessionID string) Items {
	var items Items
	for _, seg := range segments {
		m.scan(seg, sessionID, &items)
	}
	return items
}

// scan emits one item per head. A block head consumes everything up to its
// closing [/], including any heads inside the block.
func (m *MarkerSource) scan(text, sessionID string, items *Items) {
	heads := findHeads(text)

	consumed := 0
	for i, h := range heads {
		if h.start < consumed {
			continue
		}
		items.Markers++

		var body string
		if end, ok := blockEnd(text, h.end); ok {
			body = strings.TrimSpace(text[h.end:end])
			consumed = end + len(closeMarker)
		} else {
			limit := len(text)
			if i+1 < len(heads) {
				limit = heads[i+1].start
			}
			body = markerBody(text[h.end:limit])
			consumed = h.end
		}
		if body == "" {
			continue
		}
		m.emit(h, body, sessionID, items)
	}
}

// blockEnd reports where the closing [/] of a block head ending at from is.
// A block head is one whose line holds nothing after it.
func blockEnd(text string, from int) (int, bool) {
	rest := text[from:]
	firstLine := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine = rest[:nl]
	}
	if strings.TrimSpace(firstLine) != "" {
		return 0, false
	}
	closeAt := strings.Index(rest, closeMarker)
	if closeAt < 0 {
		return 0, false
	}
	return from + closeAt, true
}

// findHeads locates marker heads of every rule, ordered by position.
func findHeads(text string) []head {
	var heads []head
	for i := range grammar {
		r := &grammar[i]
		for _, loc := range r.head.FindAllStringSubmatchIndex(text, -1) {
			// The prefix is not part of the head.
			start := loc[0] + strings.IndexByte(text[loc[0]:loc[1]], '[')
			h := head{rule: r, start: start, end: loc[1]}
			if len(loc) >= 4 && loc[2] >= 0 {
				h.arg = text[loc[2]:loc[3]]
			}
			heads = append(heads, h)
		}
	}
	sort.SliceStable(heads, func(a, b int) bool { return heads[a].start < heads[b].start })

	out := heads[:0]
	end := 0
	for _, h := range heads {
		if h.start < end {
			continue
		}
		out = append(out, h)
		end = h.end
	}
	return out
}

// markerBody applies the inline body rule to the text between a head and the
// next one: the body stops at the first blank line or [/].
func markerBody(region string) string {
	cut := len(region)
	if loc := blankLine.FindStringIndex(region); loc != nil {
		cut = loc[0]
	}
	if closeAt := strings.Index(region, closeMarker); closeAt >= 0 && closeAt < cut {
		cut = closeAt
	}
	return strings.TrimSpace(region[:cut])
}

func (m *MarkerSource) emit(h head, body, sessionID string, items *Items) {
	now := m.now()

	switch h.rule.kind {
	case models.TypeDecision:
		topic := models.Clean(h.arg)
		text := body
		if h.rule.syntax == syntaxCompact {
			topic, text = splitLabel(body, maxTopicRunes)
			if topic == "" {
				topic = defaultTopic
			}
		}
		d := buildDecision(topic, text)
		if d.Topic == "" || d.Decision == "" {
			return
		}
		d.ID = models.NewID()
		d.SessionID = sessionID
		d.CreatedAt = now
		d.Source = models.SourceMarker
		d.Confidence = 1
		items.Decisions = append(items.Decisions, d)

	case models.TypePattern:
		name := models.Clean(h.arg)
		text := body
		if h.rule.syntax == syntaxCompact {
			name, text = splitLabel(body, maxNameRunes)
		}
		text, usage := takeLine(text, usageLine)
		desc := models.Clean(text)
		if name == "" {
			name = models.Truncate(desc, maxNameRunes)
		}
		if name == "" || desc == "" {
			return
		}
		items.Patterns = append(items.Patterns, models.Pattern{
			ID:          models.NewID(),
			Name:        name,
			Description: desc,
			Usage:       usage,
			SessionID:   sessionID,
			CreatedAt:   now,
			Source:      models.SourceMarker,
		})

	case models.TypeTask:
		t := buildTask(body, models.ParsePriority(h.arg))
		if t.Title == "" {
			return
		}
		t.ID = models.NewID()
		t.SessionID = sessionID
		t.CreatedAt = now
		t.Source = models.SourceMarker
		items.Tasks = append(items.Tasks, t)

	case models.TypeInsight:
		text, ctx := takeLine(body, contextLine)
		content := models.Clean(text)
		if content == "" {
			return
		}
		items.Insights = append(items.Insights, models.Insight{
			ID:        models.NewID(),
			Content:   content,
			Context:   ctx,
			SessionID: sessionID,
			CreatedAt: now,
			Source:    models.SourceMarker,
		})
	}
}

// splitLabel splits "label: text". Without a usable label the label is empty
// and the whole body is the text.
func splitLabel(body string, maxLabel int) (string, string) {
	i := strings.IndexByte(body, ':')
	if i <= 0 {
		return "", body
	}
	label := models.Clean(body[:i])
	if label == "" || len([]rune(label)) > maxLabel || strings.Contains(body[:i], "\n") {
		return "", body
	}
	return label, body[i+1:]
}

// takeLine removes the first line matching re and returns its captured value.
func takeLine(body string, re *regexp.Regexp) (string, string) {
	loc := re.FindStringSubmatchIndex(body)
	if loc == nil {
		return body, ""
	}
	value := models.Clean(body[loc[2]:loc[3]])
	return body[:loc[0]] + body[loc[1]:], value
}

func buildDecision(topic, body string) models.Decision {
	text, rationale := takeLine(body, rationaleLine)
	text = models.Clean(text)
	if rationale == "" {
		if loc := because.FindStringIndex(text); loc != nil && loc[0] > 0 {
			rationale = models.Clean(text[loc[1]:])
			text = models.Clean(text[:loc[0]])
		}
	}
	return models.Decision{
		Topic:     models.Clean(topic),
		Decision:  text,
		Rationale: rationale,
	}
}

func buildTask(body string, priority models.Priority) models.Task {
	desc := models.Clean(body)
	title := desc
	if sentences := parser.SplitSentences(desc); len(sentences) > 0 {
		title = sentences[0]
	}
	return models.Task{
		Title:       models.Truncate(title, maxTitleRunes),
		Description: desc,
		Status:      models.StatusPending,
		Priority:    priority,
	}
}
