package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

var errBackend = errors.New("backend unavailable")

// fakeTaskRepo is an in-memory TaskRepository. Hooks run before the
// matching operation; a non-nil hook error fails the call.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  []model.Task
	nextID int
	now    time.Time
	calls  map[string]int

	GetAllErr error
	CreateErr error
	UpdateErr error
	DeleteErr error
	ToggleHook func(id string) error
	// ReorderHook runs after the new order is stored and before it is
	// returned.
	ReorderHook func()
}

func newFakeTaskRepo(tasks ...model.Task) *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks: tasks,
		now:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		calls: map[string]int{},
	}
}

func (f *fakeTaskRepo) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeTaskRepo) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeTaskRepo) index(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeTaskRepo) GetAll(ctx context.Context) ([]model.Task, error) {
	f.record("GetAll")
	if f.GetAllErr != nil {
		return nil, f.GetAllErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.tasks...), nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	task := f.tasks[i]
	return &task, nil
}

func (f *fakeTaskRepo) Create(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	f.record("Create")
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	task := model.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       input.Title,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Priority:    priority,
		DueDate:     input.DueDate,
		Position:    len(f.tasks),
		CreatedAt:   f.now,
	}
	f.tasks = append(f.tasks, task)
	return &task, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	f.record("Update")
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	f.tasks[i] = patch.Apply(f.tasks[i], f.now)
	task := f.tasks[i]
	return &task, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id string) error {
	f.record("Delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *fakeTaskRepo) ToggleComplete(ctx context.Context, id string) (*model.Task, error) {
	f.record("ToggleComplete")
	if f.ToggleHook != nil {
		if err := f.ToggleHook(id); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	f.now = f.now.Add(time.Minute)
	f.tasks[i].SetCompleted(!f.tasks[i].Completed, f.now)
	task := f.tasks[i]
	return &task, nil
}

func (f *fakeTaskRepo) GetByCategory(ctx context.Context, categoryID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) Search(ctx context.Context, text string) ([]model.Task, error) {
	return nil, errors.New("not used")
}

func (f *fakeTaskRepo) Reorder(ctx context.Context, ids []string) ([]model.Task, error) {
	f.record("Reorder")
	f.mu.Lock()
	f.tasks = repository.ApplyOrder(f.tasks, ids)
	for i := range f.tasks {
		f.tasks[i].Position = i
	}
	out := append([]model.Task(nil), f.tasks...)
	hook := f.ReorderHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories []model.Category
	nextID     int
	calls      map[string]int

	GetAllErr error
	DeleteErr error
}

func newFakeCategoryRepo(categories ...model.Category) *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: categories, calls: map[string]int{}}
}

func (f *fakeCategoryRepo) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCategoryRepo) GetAll(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetAll"]++
	if f.GetAllErr != nil {
		return nil, f.GetAllErr
	}
	return append([]model.Category(nil), f.categories...), nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cat := range f.categories {
		if cat.ID == id {
			return &cat, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) Create(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Create"]++
	f.nextID++
	cat := model.Category{
		ID:        fmt.Sprintf("c%d", f.nextID),
		Name:      input.Name,
		Color:     model.DefaultCategoryColor,
		Icon:      model.DefaultCategoryIcon,
		TaskCount: 99, // stale hint, must be ignored
	}
	f.categories = append(f.categories, cat)
	return &cat, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Update"]++
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories[i] = patch.Apply(f.categories[i])
			cat := f.categories[i]
			return &cat, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Delete"]++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i := range f.categories {
		if f.categories[i].ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
