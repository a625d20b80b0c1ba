package service

import (
	"strings"
	"testing"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/view"
)

func TestSummaryListsOpenTasksByDueDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	nextWeek := now.AddDate(0, 0, 7)

	tasks := newFakeTaskRepo(
		model.Task{ID: "a", Title: "No deadline", CategoryID: "work"},
		model.Task{ID: "b", Title: "Later", CategoryID: "work", DueDate: &nextWeek},
		model.Task{ID: "c", Title: "Late <one>", CategoryID: "home", DueDate: &yesterday, Priority: model.PriorityHigh},
		model.Task{ID: "d", Title: "Finished", CategoryID: "home", Completed: true, CompletedAt: &now},
	)
	cats := newFakeCategoryRepo(model.Category{ID: "work", Name: "Work"}, model.Category{ID: "home", Name: "Home"})
	c := newTestController(t, tasks, cats)

	// A filter on the board must not hide tasks from the summary.
	home := "home"
	c.SetCategoryFilter(&home)

	text := NewSummaryService(c).Summary(now)

	if !strings.Contains(text, "1 of 4 done (25%)") {
		t.Errorf("missing stats line:\n%s", text)
	}
	if strings.Contains(text, "Finished") {
		t.Errorf("completed task listed:\n%s", text)
	}
	late := strings.Index(text, "Late &lt;one&gt;")
	later := strings.Index(text, "Later")
	none := strings.Index(text, "No deadline")
	if late < 0 || later < 0 || none < 0 {
		t.Fatalf("open tasks missing:\n%s", text)
	}
	if !(late < later && later < none) {
		t.Errorf("tasks not ordered by due date:\n%s", text)
	}
	if !strings.Contains(text, "<b>overdue</b>") {
		t.Errorf("overdue marker missing:\n%s", text)
	}
	if !strings.Contains(text, "• Work: 2") || !strings.Contains(text, "• Home: 2") {
		t.Errorf("category counts missing:\n%s", text)
	}
}

func TestSummaryEmptyBoard(t *testing.T) {
	c := newTestController(t, newFakeTaskRepo(), newFakeCategoryRepo())
	text := NewSummaryService(c).Summary(time.Now())
	if !strings.Contains(text, "0 of 0 done (0%)") || !strings.Contains(text, "nothing left to do") {
		t.Errorf("unexpected summary:\n%s", text)
	}
}

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		stats view.Stats
		want  int
	}{
		{view.Stats{}, 0},
		{view.Stats{Completed: 1, Total: 3}, 33},
		{view.Stats{Completed: 2, Total: 3}, 67},
		{view.Stats{Completed: 3, Total: 3}, 100},
	}
	for _, tt := range tests {
		if got := RoundPercent(tt.stats); got != tt.want {
			t.Errorf("RoundPercent(%+v) = %d, want %d", tt.stats, got, tt.want)
		}
	}
}
