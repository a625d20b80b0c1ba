package service

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/view"
)

// Board is the part of the Controller the summary reads from.
type Board interface {
	AllTasks() []model.Task
	Snapshot() Snapshot
}

// SummaryService builds human-readable progress reports.
type SummaryService struct {
	board Board
}

func NewSummaryService(board Board) *SummaryService {
	return &SummaryService{board: board}
}

// Summary renders an HTML report of open tasks, ordered by due date with
// undated tasks last, followed by per-category counts.
func (s *SummaryService) Summary(now time.Time) string {
	snap := s.board.Snapshot()
	tasks := s.board.AllTasks()

	catNames := make(map[string]string, len(snap.Categories))
	for _, cat := range snap.Categories {
		catNames[cat.ID] = cat.Name
	}

	var pending []model.Task
	for _, task := range tasks {
		if !task.Completed {
			pending = append(pending, task)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		switch {
		case pending[i].DueDate == nil:
			return false
		case pending[j].DueDate == nil:
			return true
		default:
			return pending[i].DueDate.Before(*pending[j].DueDate)
		}
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Task summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("✅ %d of %d done (%d%%)\n\n", snap.Stats.Completed, snap.Stats.Total, RoundPercent(snap.Stats)))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing left to do\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, catNames, now))
		}
	}

	if len(snap.Categories) > 0 {
		builder.WriteString("\n📂 <b>Categories</b>\n")
		for _, cat := range snap.Categories {
			builder.WriteString(fmt.Sprintf("• %s: %d\n", html.EscapeString(strings.TrimSpace(cat.Name)), cat.TaskCount))
		}
	}

	return strings.TrimSpace(builder.String())
}

// RoundPercent returns the completion percentage rounded for display.
func RoundPercent(s view.Stats) int {
	return int(math.Round(s.Percent()))
}

// DueIcon maps a due status to the marker shown next to a task.
func DueIcon(due view.Due) string {
	switch due {
	case view.DueOverdue:
		return "⚠️"
	case view.DueToday, view.DueTomorrow:
		return "⏳"
	default:
		return "🟢"
	}
}

// PriorityIcon maps a priority to the marker shown next to a task.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "⚪"
	default:
		return "🟡"
	}
}

func formatTask(task model.Task, catNames map[string]string, now time.Time) string {
	var sb strings.Builder

	due := view.DueStatus(task, now)
	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s %s", DueIcon(due), PriorityIcon(task.Priority), title))

	if name, ok := catNames[task.CategoryID]; ok {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed)))
		}
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch due {
		case view.DueOverdue:
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", d.Format("2006-01-02")))
		case view.DueToday:
			sb.WriteString("\n   ⏰ due today")
		case view.DueTomorrow:
			sb.WriteString("\n   ⏰ due tomorrow")
		default:
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format("2006-01-02")))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}
