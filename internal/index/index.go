package index

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Rab-crypto/tenax-sub001/internal/models"
)

// Index wraps a ProjectIndex and keeps its totals and topic map in step with
// the item lists. All insertions go through it.
type Index struct {
	p   *models.ProjectIndex
	now func() time.Time
}

// Wrap adopts p. Nil collections are replaced with empty ones.
func Wrap(p *models.ProjectIndex) *Index {
	if p.Sessions == nil {
		p.Sessions = []models.Session{}
	}
	if p.Decisions == nil {
		p.Decisions = []models.Decision{}
	}
	if p.Patterns == nil {
		p.Patterns = []models.Pattern{}
	}
	if p.Tasks == nil {
		p.Tasks = []models.Task{}
	}
	if p.Insights == nil {
		p.Insights = []models.Insight{}
	}
	if p.Topics == nil {
		p.Topics = map[string][]string{}
	}
	return &Index{p: p, now: func() time.Time { return time.Now().UTC() }}
}

// Snapshot returns the underlying aggregate. Callers must not mutate it.
func (x *Index) Snapshot() *models.ProjectIndex { return x.p }

// Stats returns the running totals.
func (x *Index) Stats() models.Stats { return x.p.Stats }

// AddDecision inserts d unless an equal decision exists under the same topic.
// The returned decision carries the assigned id, or the existing duplicate.
func (x *Index) AddDecision(d models.Decision) (models.Decision, bool, error) {
	d.Topic = strings.TrimSpace(d.Topic)
	d.Decision = strings.TrimSpace(d.Decision)
	if d.Topic == "" || d.Decision == "" {
		return d, false, fmt.Errorf("decision needs a topic and text")
	}
	x.fill(&d.ID, &d.CreatedAt)
	if d.Supersedes != "" {
		if err := x.checkSupersedes(d.ID, d.Supersedes); err != nil {
			return d, false, err
		}
	}
	for _, e := range x.p.Decisions {
		if e.Topic == d.Topic && models.EqualFold(e.Decision, d.Decision) {
			return e, false, nil
		}
	}

	x.p.Decisions = append(x.p.Decisions, d)
	x.p.Stats.TotalDecisions++
	x.p.Topics[d.Topic] = append(x.p.Topics[d.Topic], d.ID)
	return d, true, nil
}

// checkSupersedes verifies that target is an existing decision and that
// following the chain from it never reaches id.
func (x *Index) checkSupersedes(id, target string) error {
	if target == id {
		return fmt.Errorf("%w: %s supersedes itself", ErrSupersessionCycle, id)
	}
	seen := map[string]bool{id: true}
	for cur := target; cur != ""; {
		if seen[cur] {
			return fmt.Errorf("%w: chain from %s returns to %s", ErrSupersessionCycle, id, cur)
		}
		seen[cur] = true
		d, ok := x.decision(cur)
		if !ok {
			return fmt.Errorf("%w: %s", ErrDanglingSupersedes, cur)
		}
		cur = d.Supersedes
	}
	return nil
}

// AddPattern inserts p unless a pattern with the same name exists.
func (x *Index) AddPattern(p models.Pattern) (models.Pattern, bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return p, false, fmt.Errorf("pattern needs a name")
	}
	for _, e := range x.p.Patterns {
		if models.EqualFold(e.Name, p.Name) {
			return e, false, nil
		}
	}
	x.fill(&p.ID, &p.CreatedAt)
	x.p.Patterns = append(x.p.Patterns, p)
	x.p.Stats.TotalPatterns++
	return p, true, nil
}

// AddTask inserts t unless a task with the same title exists. New tasks
// always start pending.
func (x *Index) AddTask(t models.Task) (models.Task, bool, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return t, false, fmt.Errorf("task needs a title")
	}
	for _, e := range x.p.Tasks {
		if models.EqualFold(e.Title, t.Title) {
			return e, false, nil
		}
	}
	x.fill(&t.ID, &t.CreatedAt)
	t.Status = models.StatusPending
	t.CompletedAt = nil
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	x.p.Tasks = append(x.p.Tasks, t)
	x.p.Stats.TotalTasks.Pending++
	return t, true, nil
}

// AddInsight inserts in unless an insight with the same content exists.
func (x *Index) AddInsight(in models.Insight) (models.Insight, bool, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return in, false, fmt.Errorf("insight needs content")
	}
	for _, e := range x.p.Insights {
		if models.EqualFold(e.Content, in.Content) {
			return e, false, nil
		}
	}
	x.fill(&in.ID, &in.CreatedAt)
	x.p.Insights = append(x.p.Insights, in)
	x.p.Stats.TotalInsights++
	return in, true, nil
}

func (x *Index) fill(id *string, created *time.Time) {
	if *id == "" {
		*id = models.NewID()
	}
	if created.IsZero() {
		*created = x.now()
	}
}

// PutSession records s, replacing an earlier record with the same id.
func (x *Index) PutSession(s models.Session) {
	for i := range x.p.Sessions {
		if x.p.Sessions[i].ID == s.ID {
			x.p.Sessions[i] = s
			return
		}
	}
	x.p.Sessions = append(x.p.Sessions, s)
	x.p.Stats.TotalSessions = len(x.p.Sessions)
}

// Session looks up a session by id.
func (x *Index) Session(id string) (models.Session, bool) {
	for _, s := range x.p.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return models.Session{}, false
}

// CompleteTask moves a pending task to completed.
func (x *Index) CompleteTask(id string) (models.Task, error) {
	for i := range x.p.Tasks {
		t := &x.p.Tasks[i]
		if t.ID != id {
			continue
		}
		if t.Status == models.StatusCompleted {
			return *t, fmt.Errorf("%w: %s", ErrTaskCompleted, id)
		}
		now := x.now()
		t.Status = models.StatusCompleted
		t.CompletedAt = &now
		x.p.Stats.TotalTasks.Pending--
		x.p.Stats.TotalTasks.Completed++
		return *t, nil
	}
	return models.Task{}, fmt.Errorf("%w: task %s", ErrNotFound, id)
}

// Forget removes an item by id. A decision that another decision supersedes
// is kept and ErrReferenced returned.
func (x *Index) Forget(id string) (models.Item, error) {
	for i, d := range x.p.Decisions {
		if d.ID != id {
			continue
		}
		for _, other := range x.p.Decisions {
			if other.Supersedes == id {
				return nil, fmt.Errorf("%w: decision %s is superseded by %s", ErrReferenced, id, other.ID)
			}
		}
		x.p.Decisions = slices.Delete(x.p.Decisions, i, i+1)
		x.p.Stats.TotalDecisions--
		x.dropTopic(d.Topic, id)
		return &d, nil
	}
	for i, p := range x.p.Patterns {
		if p.ID == id {
			x.p.Patterns = slices.Delete(x.p.Patterns, i, i+1)
			x.p.Stats.TotalPatterns--
			return &p, nil
		}
	}
	for i, t := range x.p.Tasks {
		if t.ID == id {
			x.p.Tasks = slices.Delete(x.p.Tasks, i, i+1)
			if t.Status == models.StatusCompleted {
				x.p.Stats.TotalTasks.Completed--
			} else {
				x.p.Stats.TotalTasks.Pending--
			}
			return &t, nil
		}
	}
	for i, in := range x.p.Insights {
		if in.ID == id {
			x.p.Insights = slices.Delete(x.p.Insights, i, i+1)
			x.p.Stats.TotalInsights--
			return &in, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (x *Index) dropTopic(topic, id string) {
	ids := slices.DeleteFunc(x.p.Topics[topic], func(s string) bool { return s == id })
	if len(ids) == 0 {
		delete(x.p.Topics, topic)
		return
	}
	x.p.Topics[topic] = ids
}

func (x *Index) decision(id string) (models.Decision, bool) {
	for _, d := range x.p.Decisions {
		if d.ID == id {
			return d, true
		}
	}
	return models.Decision{}, false
}

// Lookup returns the item with the given id.
func (x *Index) Lookup(id string) (models.Item, bool) {
	for i := range x.p.Decisions {
		if x.p.Decisions[i].ID == id {
			d := x.p.Decisions[i]
			return &d, true
		}
	}
	for i := range x.p.Patterns {
		if x.p.Patterns[i].ID == id {
			p := x.p.Patterns[i]
			return &p, true
		}
	}
	for i := range x.p.Tasks {
		if x.p.Tasks[i].ID == id {
			t := x.p.Tasks[i]
			return &t, true
		}
	}
	for i := range x.p.Insights {
		if x.p.Insights[i].ID == id {
			in := x.p.Insights[i]
			return &in, true
		}
	}
	return nil, false
}

// Items lists every embeddable item in index order.
func (x *Index) Items() []models.Item {
	items := make([]models.Item, 0, len(x.p.Decisions)+len(x.p.Patterns)+len(x.p.Tasks)+len(x.p.Insights))
	for i := range x.p.Decisions {
		items = append(items, &x.p.Decisions[i])
	}
	for i := range x.p.Patterns {
		items = append(items, &x.p.Patterns[i])
	}
	for i := range x.p.Tasks {
		items = append(items, &x.p.Tasks[i])
	}
	for i := range x.p.Insights {
		items = append(items, &x.p.Insights[i])
	}
	return items
}

// Recount derives the totals and topic map from the item lists.
func (x *Index) Recount() (models.Stats, map[string][]string) {
	var st models.Stats
	st.TotalSessions = len(x.p.Sessions)
	st.TotalDecisions = len(x.p.Decisions)
	st.TotalPatterns = len(x.p.Patterns)
	st.TotalInsights = len(x.p.Insights)
	for _, t := range x.p.Tasks {
		if t.Status == models.StatusCompleted {
			st.TotalTasks.Completed++
		} else {
			st.TotalTasks.Pending++
		}
	}
	topics := map[string][]string{}
	for _, d := range x.p.Decisions {
		topics[d.Topic] = append(topics[d.Topic], d.ID)
	}
	return st, topics
}

// Validate checks totals, topic map, id uniqueness and supersession chains.
func (x *Index) Validate() error {
	st, topics := x.Recount()
	if st != x.p.Stats {
		return fmt.Errorf("%w: stats %+v do not match items %+v", ErrCorrupt, x.p.Stats, st)
	}
	if len(topics) != len(x.p.Topics) {
		return fmt.Errorf("%w: topic map has %d topics, decisions have %d", ErrCorrupt, len(x.p.Topics), len(topics))
	}
	for topic, ids := range topics {
		got := slices.Clone(x.p.Topics[topic])
		want := slices.Clone(ids)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fmt.Errorf("%w: topic %q lists %v, want %v", ErrCorrupt, topic, got, want)
		}
	}

	seen := map[string]bool{}
	for _, it := range x.Items() {
		if seen[it.ItemID()] {
			return fmt.Errorf("%w: duplicate id %s", ErrCorrupt, it.ItemID())
		}
		seen[it.ItemID()] = true
	}

	for _, d := range x.p.Decisions {
		if d.Supersedes == "" {
			continue
		}
		if err := x.checkSupersedes(d.ID, d.Supersedes); err != nil {
			return fmt.Errorf("%w: decision %s: %w", ErrCorrupt, d.ID, err)
		}
	}
	return nil
}
