package view

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"taskflow/internal/model"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Draft report", CategoryID: "work"},
		{ID: "2", Title: "Buy milk", Description: "Semi-skimmed", CategoryID: "shopping", Completed: true},
		{ID: "3", Title: "Review PR", Description: "draft changes", CategoryID: "work"},
		{ID: "4", Title: "Call mom", CategoryID: "personal"},
		{ID: "5", Title: "Orphan", CategoryID: "deleted"},
	}
}

func sampleCategories() []model.Category {
	return []model.Category{
		{ID: "work", Name: "Work", TaskCount: 42},
		{ID: "personal", Name: "Personal"},
		{ID: "shopping", Name: "Shopping"},
	}
}

func ptr(s string) *string { return &s }

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVisibleTasks(t *testing.T) {
	tests := []struct {
		name   string
		filter *string
		query  string
		want   []string
	}{
		{"no filter no query returns all in order", nil, "", []string{"1", "2", "3", "4", "5"}},
		{"category filter", ptr("work"), "", []string{"1", "3"}},
		{"search title and description case-folded", nil, "DRAFT", []string{"1", "3"}},
		{"filter and search", ptr("work"), "review", []string{"3"}},
		{"no match", nil, "zzz", []string{}},
		{"unknown category", ptr("nope"), "", []string{}},
		{"description only", nil, "skimmed", []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(VisibleTasks(sampleTasks(), tt.filter, tt.query))
			if !equalIDs(got, tt.want) {
				t.Errorf("VisibleTasks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleTasksDoesNotAliasInput(t *testing.T) {
	tasks := sampleTasks()
	got := VisibleTasks(tasks, nil, "")
	got[0].Title = "changed"
	if tasks[0].Title != "Draft report" {
		t.Fatalf("input mutated through result")
	}
}

func TestCategoryCountsOverwritesHint(t *testing.T) {
	cats := sampleCategories()
	got := CategoryCounts(sampleTasks(), cats)

	want := map[string]int{"work": 2, "personal": 1, "shopping": 1}
	for _, c := range got {
		if c.TaskCount != want[c.ID] {
			t.Errorf("%s.TaskCount = %d, want %d", c.ID, c.TaskCount, want[c.ID])
		}
	}
	if cats[0].TaskCount != 42 {
		t.Errorf("input category mutated: TaskCount = %d", cats[0].TaskCount)
	}
}

func TestCategoryCountsSumProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var cats []model.Category
		known := map[string]bool{}
		nCats, nTasks := r.Intn(6), r.Intn(40)
		for i := 0; i < nCats; i++ {
			id := "c" + strconv.Itoa(i)
			cats = append(cats, model.Category{ID: id})
			known[id] = true
		}
		var tasks []model.Task
		inKnown := 0
		for i := 0; i < nTasks; i++ {
			cid := "c" + strconv.Itoa(r.Intn(8))
			tasks = append(tasks, model.Task{ID: strconv.Itoa(i), CategoryID: cid, Completed: r.Intn(2) == 0})
			if known[cid] {
				inKnown++
			}
		}

		sum := 0
		for _, c := range CategoryCounts(tasks, cats) {
			sum += c.TaskCount
		}
		if sum != inKnown {
			t.Fatalf("round %d: sum of counts = %d, want %d", round, sum, inKnown)
		}

		stats := CompletionStats(tasks)
		if stats.Completed > stats.Total {
			t.Fatalf("round %d: completed %d > total %d", round, stats.Completed, stats.Total)
		}
	}
}

func TestCompletionStats(t *testing.T) {
	s := CompletionStats(sampleTasks())
	if s.Completed != 1 || s.Total != 5 {
		t.Fatalf("stats = %+v", s)
	}
	if got := s.Percent(); got != 20 {
		t.Errorf("Percent = %v, want 20", got)
	}

	empty := CompletionStats(nil)
	if empty.Total != 0 || empty.Percent() != 0 {
		t.Errorf("empty stats = %+v percent %v", empty, empty.Percent())
	}
}

func TestDueStatus(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	at := func(days int) *time.Time {
		d := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		return &d
	}
	tests := []struct {
		name string
		task model.Task
		want Due
	}{
		{"no due date", model.Task{}, DueNone},
		{"yesterday", model.Task{DueDate: at(-1)}, DueOverdue},
		{"yesterday but done", model.Task{DueDate: at(-1), Completed: true}, DueNone},
		{"earlier today", model.Task{DueDate: at(0)}, DueToday},
		{"tomorrow", model.Task{DueDate: at(1)}, DueTomorrow},
		{"next week", model.Task{DueDate: at(7)}, DueUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueStatus(tt.task, now); got != tt.want {
				t.Errorf("DueStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectorMemoizes(t *testing.T) {
	var p Projector
	in := Inputs{Tasks: sampleTasks(), Categories: sampleCategories(), TasksRev: 1, CategoriesRev: 1}

	first := p.Project(in)
	if p.Recomputes() != 3 {
		t.Fatalf("initial recomputes = %d, want 3", p.Recomputes())
	}
	if len(first.Visible) != 5 || first.Stats.Total != 5 {
		t.Fatalf("first projection = %+v", first)
	}

	p.Project(in)
	if p.Recomputes() != 3 {
		t.Errorf("unchanged inputs recomputed: %d", p.Recomputes())
	}

	in.Query = "draft"
	second := p.Project(in)
	if p.Recomputes() != 4 {
		t.Errorf("query change recomputes = %d, want 4", p.Recomputes())
	}
	if len(second.Visible) != 2 {
		t.Errorf("visible after query = %v", ids(second.Visible))
	}

	in.Categories = append(in.Categories, model.Category{ID: "deleted"})
	in.CategoriesRev = 2
	third := p.Project(in)
	if p.Recomputes() != 5 {
		t.Errorf("category change recomputes = %d, want 5", p.Recomputes())
	}
	if got := third.Categories[len(third.Categories)-1].TaskCount; got != 1 {
		t.Errorf("new category count = %d, want 1", got)
	}

	in.TasksRev = 2
	p.Project(in)
	if p.Recomputes() != 8 {
		t.Errorf("task change recomputes = %d, want 8", p.Recomputes())
	}
}
