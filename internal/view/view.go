// Package view derives the read models shown to the user from the task and
// category collections. Every function here is pure: inputs are never
// mutated and results are freshly allocated.
package view

import (
	"strings"
	"time"

	"taskflow/internal/model"
)

// Stats aggregates task completion.
type Stats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Percent returns the completion percentage, 0 for an empty task set.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// VisibleTasks filters tasks to categoryID when it is non-nil, then keeps
// tasks whose title or description contains query, ignoring case. Relative
// order is preserved.
func VisibleTasks(tasks []model.Task, categoryID *string, query string) []model.Task {
	needle := strings.ToLower(query)
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if categoryID != nil && t.CategoryID != *categoryID {
			continue
		}
		if needle != "" && !t.Matches(needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CategoryCounts returns a copy of categories with TaskCount set to the
// number of tasks referencing each one.
func CategoryCounts(tasks []model.Task, categories []model.Category) []model.Category {
	counts := make(map[string]int, len(categories))
	for _, t := range tasks {
		counts[t.CategoryID]++
	}
	out := make([]model.Category, len(categories))
	for i, c := range categories {
		c.TaskCount = counts[c.ID]
		out[i] = c
	}
	return out
}

// CompletionStats counts completed tasks against the total.
func CompletionStats(tasks []model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	return s
}

// Due classifies a task's deadline relative to a point in time.
type Due string

const (
	DueNone     Due = ""
	DueOverdue  Due = "overdue"
	DueToday    Due = "today"
	DueTomorrow Due = "tomorrow"
	DueUpcoming Due = "upcoming"
)

// DueStatus reports how t's due date relates to now, by calendar day in
// now's location. Completed tasks are never overdue.
func DueStatus(t model.Task, now time.Time) Due {
	if t.DueDate == nil {
		return DueNone
	}
	due := startOfDay(t.DueDate.In(now.Location()))
	today := startOfDay(now)
	switch {
	case due.Equal(today):
		return DueToday
	case due.Before(today):
		if t.Completed {
			return DueNone
		}
		return DueOverdue
	case due.Equal(today.AddDate(0, 0, 1)):
		return DueTomorrow
	default:
		return DueUpcoming
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
