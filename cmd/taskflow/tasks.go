package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/view"
)

var (
	tasksCategory string
	tasksQuery    string
	tasksJSON     bool

	addCategory string
	addDue      string
	addPriority string
	addNote     string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	RunE:  runTasks,
}

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show completion statistics",
	RunE:  runStats,
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksCategory, "category", "c", "", "only tasks in this category (name)")
	tasksCmd.Flags().StringVarP(&tasksQuery, "query", "q", "", "only tasks whose title or description contains text")
	tasksCmd.Flags().BoolVarP(&tasksJSON, "json", "j", false, "output as JSON")

	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category name (required)")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "due date, YYYY-MM-DD")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "low, medium or high")
	addCmd.Flags().StringVar(&addNote, "note", "", "description")
	_ = addCmd.MarkFlagRequired("category")
}

func runTasks(cmd *cobra.Command, args []string) error {
	ctrl, _, closeDB, err := openBoard(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	snap := ctrl.Snapshot()
	if tasksCategory != "" {
		cat, err := categoryByName(snap.Categories, tasksCategory)
		if err != nil {
			return err
		}
		ctrl.SetCategoryFilter(&cat.ID)
	}
	ctrl.SetSearchQuery(tasksQuery)
	snap = ctrl.Snapshot()

	if tasksJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Tasks)
	}

	names := make(map[string]string, len(snap.Categories))
	for _, cat := range snap.Categories {
		names[cat.ID] = cat.Name
	}
	if len(snap.Tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	now := time.Now()
	for _, task := range snap.Tasks {
		check := "[ ]"
		if task.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %-36s %-8s %-12s", check, task.Title, task.Priority, names[task.CategoryID])
		if task.DueDate != nil {
			line += " " + task.DueDate.In(now.Location()).Format("2006-01-02")
			if view.DueStatus(task, now) == view.DueOverdue {
				line += " (overdue)"
			}
		}
		fmt.Println(strings.TrimRight(line, " "))
		fmt.Printf("    id: %s\n", task.ID)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctrl, _, closeDB, err := openBoard(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	cat, err := categoryByName(ctrl.Snapshot().Categories, addCategory)
	if err != nil {
		return err
	}
	input := model.TaskInput{
		Title:       strings.Join(args, " "),
		Description: addNote,
		CategoryID:  cat.ID,
		Priority:    model.Priority(strings.ToLower(addPriority)),
	}
	if addDue != "" {
		due, err := time.ParseInLocation("2006-01-02", addDue, time.Local)
		if err != nil {
			return fmt.Errorf("--due must be YYYY-MM-DD: %w", err)
		}
		input.DueDate = &due
	}

	task, err := ctrl.CreateTask(cmd.Context(), input)
	if err != nil {
		return err
	}
	fmt.Printf("Added %q to %s (id %s)\n", task.Title, cat.Name, task.ID)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctrl, _, closeDB, err := openBoard(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	snap := ctrl.Snapshot()
	fmt.Println("Taskflow Stats")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("  %-12s %d of %d (%d%%)\n", "Done:", snap.Stats.Completed, snap.Stats.Total, service.RoundPercent(snap.Stats))
	fmt.Println("\nBy category:")
	for _, cat := range snap.Categories {
		fmt.Printf("  %-12s %d\n", cat.Name+":", cat.TaskCount)
	}
	return nil
}

func categoryByName(categories []model.Category, name string) (model.Category, error) {
	for _, cat := range categories {
		if strings.EqualFold(strings.TrimSpace(cat.Name), strings.TrimSpace(name)) {
			return cat, nil
		}
	}
	return model.Category{}, fmt.Errorf("unknown category %q", name)
}
