package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

const taskOrder = "position ASC, created_at ASC"

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, now: time.Now}
}

// GetAll returns every task in persisted display order.
func (r *TaskRepository) GetAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, notFound("find task", id, err)
	}
	return &task, nil
}

// Create stores a new task at the end of the display order. The category
// must exist.
func (r *TaskRepository) Create(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	task := model.Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   r.now(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCategory(tx, task.CategoryID); err != nil {
			return err
		}
		pos, err := nextPosition(tx, &model.Task{})
		if err != nil {
			return err
		}
		task.Position = pos
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Update applies patch to the stored task and returns the saved version.
func (r *TaskRepository) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		if patch.CategoryID != nil && *patch.CategoryID != task.CategoryID {
			if err := requireCategory(tx, *patch.CategoryID); err != nil {
				return err
			}
		}
		task = patch.Apply(task, r.now())
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, notFound("update task", id, err)
	}
	return &task, nil
}

// ToggleComplete flips the completion flag, setting or clearing completed_at.
func (r *TaskRepository) ToggleComplete(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		task.SetCompleted(!task.Completed, r.now())
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, notFound("toggle task", id, err)
	}
	return &task, nil
}

// Delete removes a task. A missing task is reported as ErrNotFound.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) GetByCategory(ctx context.Context, categoryID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by category: %w", err)
	}
	return tasks, nil
}

// Search returns tasks whose title or description contains text, ignoring
// case. Matching happens in Go because SQLite's LOWER only folds ASCII.
func (r *TaskRepository) Search(ctx context.Context, text string) ([]model.Task, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	needle := strings.ToLower(text)
	matched := make([]model.Task, 0, len(all))
	for _, task := range all {
		if task.Matches(needle) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// Reorder persists a new display order: ids first in the given order, then
// every remaining task in its previous order. Unknown ids are ignored.
func (r *TaskRepository) Reorder(ctx context.Context, ids []string) ([]model.Task, error) {
	var ordered []model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []model.Task
		if err := tx.Order(taskOrder).Find(&current).Error; err != nil {
			return err
		}
		ordered = ApplyOrder(current, ids)
		for i := range ordered {
			if ordered[i].Position == i {
				continue
			}
			ordered[i].Position = i
			if err := tx.Model(&model.Task{}).Where("id = ?", ordered[i].ID).Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reorder tasks: %w", err)
	}
	return ordered, nil
}

// ApplyOrder returns tasks rearranged so that ids come first in the given
// order, followed by the tasks not mentioned in ids in their original order.
func ApplyOrder(tasks []model.Task, ids []string) []model.Task {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}
	used := make([]bool, len(tasks))
	out := make([]model.Task, 0, len(tasks))
	for _, id := range ids {
		i, ok := index[id]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, tasks[i])
	}
	for i, t := range tasks {
		if !used[i] {
			out = append(out, t)
		}
	}
	return out
}
