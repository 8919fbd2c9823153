package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
	"github.com/Rab-crypto/tenax-sub001/internal/parser"
)

// Heuristic decisions are guesses and carry reduced confidence.
const heuristicConfidence = 0.5

const (
	minSentenceLen = 20
	maxSentenceLen = 300
	defaultMaxKind = 5
)

var (
	decisionPhrase = regexp.MustCompile(`(?i)\b(?:decided to|we will use|we'll use|we will go with|chose|choose to|going with|opted for|settled on)\b\s+(.+)`)

	todoPrefix    = regexp.MustCompile(`(?i)^(?:[-*][ \t]+)?(?:TODO|FIXME)\b[:\s-]*(.+)`)
	taskPhrase    = regexp.MustCompile(`(?i)\b(?:we need to|still need to|need to|we should|next step is to|next step:|remember to)\b`)
	bulletCommand = regexp.MustCompile(`(?i)^[-*][ \t]+(?:add|fix|implement|update|write|remove|refactor|create|migrate|document|investigate)\s+\w+`)

	insightPhrase = regexp.MustCompile(`(?i)\b(?:turns out|turned out|discovered|learned|realized|realised|note that|root cause|the issue was|the problem was|gotcha)\b`)

	highPriority = regexp.MustCompile(`(?i)\b(?:urgent|asap|critical|blocker|blocking)\b`)
	lowPriority  = regexp.MustCompile(`(?i)\b(?:eventually|nice to have|someday|later|low priority)\b`)
)

// topicStopwords are skipped when guessing a decision topic.
var topicStopwords = map[string]bool{
	"use": true, "using": true, "the": true, "a": true, "an": true, "to": true,
	"with": true, "for": true, "go": true, "on": true, "we": true, "will": true,
	"it": true, "this": true, "that": true, "keep": true, "switch": true,
	"move": true, "stick": true, "our": true, "of": true, "and": true,
}

// HeuristicSource finds likely decisions, tasks and insights in unmarked
// prose. It is approximate: precision is well below the marker grammar.
type HeuristicSource struct {
	now     func() time.Time
	maxKind int
}

// NewHeuristicSource creates a HeuristicSource.
func NewHeuristicSource(now func() time.Time) *HeuristicSource {
	if now == nil {
		now = time.Now
	}
	return &HeuristicSource{now: now, maxKind: defaultMaxKind}
}

func (h *HeuristicSource) Name() string { return "heuristic" }

// Extract classifies each sentence as at most one item kind.
func (h *HeuristicSource) Extract(segments []string, sessionID string) Items {
	var items Items
	now := h.now()

	for _, seg := range segments {
		for _, raw := range parser.SplitSentences(seg) {
			if strings.HasPrefix(raw, "```") {
				continue
			}
			s := models.Clean(raw)
			if len(s) < minSentenceLen || len(s) > maxSentenceLen {
				continue
			}

			switch {
			case decisionPhrase.MatchString(s):
				if len(items.Decisions) >= h.maxKind {
					continue
				}
				m := decisionPhrase.FindStringSubmatch(s)
				items.Decisions = append(items.Decisions, models.Decision{
					ID:         models.NewID(),
					Topic:      guessTopic(m[1]),
					Decision:   s,
					SessionID:  sessionID,
					CreatedAt:  now,
					Source:     models.SourceHeuristic,
					Confidence: heuristicConfidence,
				})

			case todoPrefix.MatchString(s) || taskPhrase.MatchString(s) || bulletCommand.MatchString(s):
				if len(items.Tasks) >= h.maxKind {
					continue
				}
				body := s
				if m := todoPrefix.FindStringSubmatch(s); m != nil {
					body = m[1]
				}
				body = strings.TrimLeft(body, "-* \t")
				t := buildTask(body, guessPriority(s))
				if t.Title == "" {
					continue
				}
				t.ID = models.NewID()
				t.SessionID = sessionID
				t.CreatedAt = now
				t.Source = models.SourceHeuristic
				items.Tasks = append(items.Tasks, t)

			case insightPhrase.MatchString(s):
				if len(items.Insights) >= h.maxKind {
					continue
				}
				items.Insights = append(items.Insights, models.Insight{
					ID:        models.NewID(),
					Content:   s,
					SessionID: sessionID,
					CreatedAt: now,
					Source:    models.SourceHeuristic,
				})
			}
		}
	}
	return items
}

// guessTopic picks the first meaningful word after the decision phrase.
func guessTopic(rest string) string {
	for _, w := range strings.Fields(rest) {
		w = strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w == "" || topicStopwords[w] {
			continue
		}
		return w
	}
	return defaultTopic
}

func guessPriority(s string) models.Priority {
	switch {
	case highPriority.MatchString(s):
		return models.PriorityHigh
	case lowPriority.MatchString(s):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}
