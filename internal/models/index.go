package models

import "time"

// IndexVersion is the on-disk schema version of the project index.
const IndexVersion = 1

// TaskTotals splits the task total by status.
type TaskTotals struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// Stats are the running totals kept alongside the item lists.
type Stats struct {
	TotalSessions  int        `json:"totalSessions"`
	TotalDecisions int        `json:"totalDecisions"`
	TotalPatterns  int        `json:"totalPatterns"`
	TotalTasks     TaskTotals `json:"totalTasks"`
	TotalInsights  int        `json:"totalInsights"`
}

// ProjectIndex is the single persisted aggregate of a project's memory.
type ProjectIndex struct {
	Version     int                 `json:"version"`
	ProjectPath string              `json:"projectPath"`
	CreatedAt   time.Time           `json:"createdAt"`
	LastUpdated time.Time           `json:"lastUpdated"`
	Sessions    []Session           `json:"sessions"`
	Decisions   []Decision          `json:"decisions"`
	Patterns    []Pattern           `json:"patterns"`
	Tasks       []Task              `json:"tasks"`
	Insights    []Insight           `json:"insights"`
	Stats       Stats               `json:"stats"`
	Topics      map[string][]string `json:"topics"`
}

// NewProjectIndex returns an empty index for a project.
func NewProjectIndex(projectPath string, now time.Time) *ProjectIndex {
	return &ProjectIndex{
		Version:     IndexVersion,
		ProjectPath: projectPath,
		CreatedAt:   now,
		LastUpdated: now,
		Sessions:    []Session{},
		Decisions:   []Decision{},
		Patterns:    []Pattern{},
		Tasks:       []Task{},
		Insights:    []Insight{},
		Topics:      map[string][]string{},
	}
}
