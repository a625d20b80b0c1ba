package model

import (
	"strings"
	"time"
)

// Priority ranks a task for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task represents a single unit of work inside a category.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	CategoryID  string     `gorm:"index;size:36;not null" json:"categoryId"`
	Priority    Priority   `gorm:"size:16;default:medium" json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	Position    int        `gorm:"index" json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Matches reports whether the case-folded title or description contains the
// already case-folded needle.
func (t Task) Matches(foldedNeedle string) bool {
	return strings.Contains(strings.ToLower(t.Title), foldedNeedle) ||
		strings.Contains(strings.ToLower(t.Description), foldedNeedle)
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryID  string     `json:"categoryId"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// TaskPatch lists the task fields an update may change. Nil fields are left as is.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	CategoryID  *string    `json:"categoryId,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ClearDue    bool       `json:"clearDueDate,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryID == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDue && p.Completed == nil
}

// Apply returns a copy of t with the patch applied. Completion changes keep
// CompletedAt present exactly when Completed is true.
func (p TaskPatch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDue:
		t.DueDate = nil
	case p.DueDate != nil:
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Completed != nil {
		t.SetCompleted(*p.Completed, now)
	}
	return t
}

// SetCompleted flips the completion flag and maintains CompletedAt.
func (t *Task) SetCompleted(done bool, now time.Time) {
	switch {
	case done && !t.Completed:
		at := now
		t.CompletedAt = &at
	case !done:
		t.CompletedAt = nil
	}
	t.Completed = done
}
