package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/view"
)

const dateLayout = "2006-01-02"

// maxButtons caps the inline keyboard; longer lists stay usable through
// the numbered commands.
const maxButtons = 20

var errAddUsage = errors.New("usage: /add <title> | <category> [| YYYY-MM-DD]")

func escape(s string) string {
	return html.EscapeString(s)
}

// parseAddArgs reads "title | category [| due date]".
func parseAddArgs(args string, categories []model.Category, loc *time.Location) (model.TaskInput, error) {
	parts := strings.Split(args, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return model.TaskInput{}, errAddUsage
	}
	title := strings.TrimSpace(parts[0])
	if title == "" {
		return model.TaskInput{}, errAddUsage
	}
	category, ok := findCategory(categories, parts[1])
	if !ok {
		return model.TaskInput{}, fmt.Errorf("no category named %q, see /categories", strings.TrimSpace(parts[1]))
	}

	input := model.TaskInput{Title: title, CategoryID: category.ID}
	if len(parts) == 3 {
		due, err := parseDate(parts[2], loc)
		if err != nil {
			return model.TaskInput{}, err
		}
		input.DueDate = &due
	}
	return input, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	due, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot read date %q, use YYYY-MM-DD", strings.TrimSpace(value))
	}
	return due, nil
}

// findCategory looks a category up by name, ignoring case and surrounding
// space.
func findCategory(categories []model.Category, name string) (model.Category, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, false
	}
	for _, cat := range categories {
		if strings.EqualFold(strings.TrimSpace(cat.Name), name) {
			return cat, true
		}
	}
	return model.Category{}, false
}

// pickNumbered returns the id shown as number arg in the last rendered list.
func pickNumbered(ids []string, arg string) (string, error) {
	if len(ids) == 0 {
		return "", errors.New("send /tasks first, then refer to tasks by number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("%q is not a task number", strings.TrimSpace(arg))
	}
	if n < 1 || n > len(ids) {
		return "", fmt.Errorf("no task number %d, send /tasks to refresh the list", n)
	}
	return ids[n-1], nil
}

// renderTaskList formats the visible tasks of snap as a numbered list and
// returns the ids in display order.
func renderTaskList(snap service.Snapshot, now time.Time) (string, []string) {
	catNames := make(map[string]string, len(snap.Categories))
	for _, cat := range snap.Categories {
		catNames[cat.ID] = strings.TrimSpace(cat.Name)
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Tasks</b>")
	if snap.Filter != nil {
		sb.WriteString(fmt.Sprintf(" · %s", escape(catNames[*snap.Filter])))
	}
	if snap.Query != "" {
		sb.WriteString(fmt.Sprintf(" · search “%s”", escape(snap.Query)))
	}
	sb.WriteByte('\n')

	if len(snap.Tasks) == 0 {
		if snap.Filter != nil || snap.Query != "" {
			sb.WriteString("\n📭 Nothing matches. Try /filter all or an empty /search.")
		} else {
			sb.WriteString("\n📭 No tasks yet. Send /newtask to add one.")
		}
		return sb.String(), nil
	}

	ids := make([]string, 0, len(snap.Tasks))
	for i, task := range snap.Tasks {
		ids = append(ids, task.ID)
		sb.WriteString(formatLine(i+1, task, catNames, now))
	}
	sb.WriteString(fmt.Sprintf("\n✅ %d of %d done (%d%%)", snap.Stats.Completed, snap.Stats.Total, service.RoundPercent(snap.Stats)))
	return sb.String(), ids
}

func formatLine(n int, task model.Task, catNames map[string]string, now time.Time) string {
	check := "⬜"
	title := escape(strings.TrimSpace(task.Title))
	if task.Completed {
		check = "☑️"
		title = "<s>" + title + "</s>"
	}

	line := fmt.Sprintf("%d. %s %s %s", n, check, service.PriorityIcon(task.Priority), title)
	if name := catNames[task.CategoryID]; name != "" {
		line += fmt.Sprintf(" <i>(%s)</i>", escape(name))
	}
	if task.DueDate != nil {
		due := view.DueStatus(task, now)
		switch due {
		case view.DueOverdue:
			line += " · " + service.DueIcon(due) + " overdue"
		case view.DueToday:
			line += " · " + service.DueIcon(due) + " today"
		case view.DueTomorrow:
			line += " · " + service.DueIcon(due) + " tomorrow"
		default:
			line += " · " + task.DueDate.In(now.Location()).Format(dateLayout)
		}
	}
	return line + "\n"
}

func renderCategories(snap service.Snapshot) string {
	if len(snap.Categories) == 0 {
		return "📂 No categories yet. Add one with /newcategory &lt;name&gt;."
	}
	var sb strings.Builder
	sb.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range snap.Categories {
		marker := "•"
		if snap.Filter != nil && *snap.Filter == cat.ID {
			marker = "▶"
		}
		sb.WriteString(fmt.Sprintf("%s %s: %d\n", marker, escape(strings.TrimSpace(cat.Name)), cat.TaskCount))
	}
	return strings.TrimSpace(sb.String())
}

func shortTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-1]) + "…"
}

func taskKeyboard(ids []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ids))
	for i, id := range ids {
		if i == maxButtons {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", i+1), cbTogglePrefix+id),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), cbDeletePrefix+id),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelStats),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard lays category names out two per row.
func categoryKeyboard(categories []model.Category) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, cat := range categories {
		row = append(row, tgbotapi.NewKeyboardButton(strings.TrimSpace(cat.Name)))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	text = strings.TrimSpace(text)
	return text == btnSkip || strings.EqualFold(text, "skip") || text == "-"
}

func isCancelDialogInput(text string) bool {
	text = strings.TrimSpace(text)
	return text == btnCancelDialog || strings.EqualFold(text, "cancel")
}
