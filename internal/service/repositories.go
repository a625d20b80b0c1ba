package service

import (
	"context"

	"taskflow/internal/model"
)

// TaskRepository is the task store the controller reconciles with.
// Implementations report a missing record as an error, never as an empty
// success.
type TaskRepository interface {
	GetAll(ctx context.Context) ([]model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	Create(ctx context.Context, input model.TaskInput) (*model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id string) error
	ToggleComplete(ctx context.Context, id string) (*model.Task, error)
	GetByCategory(ctx context.Context, categoryID string) ([]model.Task, error)
	Search(ctx context.Context, text string) ([]model.Task, error)
	Reorder(ctx context.Context, ids []string) ([]model.Task, error)
}

// CategoryRepository is the category store. TaskCount values it returns are
// ignored; counts are always derived from tasks.
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, input model.CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error)
	Delete(ctx context.Context, id string) error
}
