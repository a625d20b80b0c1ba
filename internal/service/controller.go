package service

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/view"
)

// Snapshot is the read-only state published to the presentation layer.
type Snapshot struct {
	Tasks      []model.Task     `json:"tasks"`
	Categories []model.Category `json:"categories"`
	Stats      view.Stats       `json:"completionStats"`
	Percent    float64          `json:"completionPercent"`
	Filter     *string          `json:"categoryFilter"`
	Query      string           `json:"searchQuery"`
	Loading    bool             `json:"loading"`
	LastError  *Error           `json:"lastError"`
	Revision   uint64           `json:"revision"`
}

// Controller keeps the client-side task and category collections, reconciles
// them with the repositories and republishes derived views after every
// change.
//
// Repository calls run without holding the state lock, so operations on
// different tasks interleave and apply in the order their responses arrive.
// Operations on the same task id are serialized.
type Controller struct {
	tasksRepo      TaskRepository
	categoriesRepo CategoryRepository

	mu            sync.Mutex
	tasks         []model.Task
	categories    []model.Category
	filter        *string
	query         string
	loading       bool
	lastErr       *Error
	rev           uint64
	tasksRev      uint64
	categoriesRev uint64
	projector     view.Projector

	seq sequencer

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	pubMu      sync.Mutex
	published  uint64
	pending    []Snapshot
	delivering bool
}

func NewController(tasks TaskRepository, categories CategoryRepository) *Controller {
	return &Controller{
		tasksRepo:      tasks,
		categoriesRepo: categories,
		subs:           make(map[int]func(Snapshot)),
	}
}

// Initialize loads tasks and categories concurrently. A failed fetch leaves
// its collection empty and is recorded as the last error; the other
// collection is still applied.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mutate(func() {
		c.loading = true
		c.lastErr = nil
	})

	var (
		tasks                   []model.Task
		categories              []model.Category
		tasksErr, categoriesErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		tasks, tasksErr = c.tasksRepo.GetAll(ctx)
		return tasksErr
	})
	g.Go(func() error {
		categories, categoriesErr = c.categoriesRepo.GetAll(ctx)
		return categoriesErr
	})
	_ = g.Wait()

	var failure *Error
	switch {
	case tasksErr != nil:
		failure = readFailed("load tasks", tasksErr)
		tasks = nil
	case categoriesErr != nil:
		failure = readFailed("load categories", categoriesErr)
	}
	if categoriesErr != nil {
		categories = nil
	}

	c.mutate(func() {
		c.tasks = slices.Clone(tasks)
		c.categories = slices.Clone(categories)
		c.tasksRev++
		c.categoriesRev++
		c.loading = false
		c.lastErr = failure
	})

	if failure != nil {
		log.Printf("initialize: %v", failure)
		return failure
	}
	log.Printf("[info] loaded %d tasks in %d categories", len(tasks), len(categories))
	return nil
}

// CreateTask validates input, stores it and appends the stored task.
func (c *Controller) CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error) {
	const op = "create task"
	input.Title = strings.TrimSpace(input.Title)
	input.CategoryID = strings.TrimSpace(input.CategoryID)

	var fields []string
	if input.Title == "" {
		fields = append(fields, "title")
	}
	if input.CategoryID == "" || !c.hasCategory(input.CategoryID) {
		fields = append(fields, "categoryId")
	}
	if input.Priority != "" && !input.Priority.Valid() {
		fields = append(fields, "priority")
	}
	if len(fields) > 0 {
		return model.Task{}, c.fail(validationFailed(op, fields...))
	}

	created, err := c.tasksRepo.Create(ctx, input)
	if err != nil {
		return model.Task{}, c.fail(writeFailed(op, "", err))
	}

	task := *created
	c.mutate(func() {
		c.tasks = append(c.tasks, task)
		c.tasksRev++
	})
	log.Printf("[info] task created id=%s category=%s", task.ID, task.CategoryID)
	return task, nil
}

// UpdateTask applies patch to a task and replaces it in place.
func (c *Controller) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	const op = "update task"
	unlock := c.seq.lock(id)
	defer unlock()

	current, ok := c.findTask(id)
	if !ok {
		return model.Task{}, c.fail(notFound(op, id))
	}
	fields := validatePatch(&patch)
	if patch.CategoryID != nil && *patch.CategoryID != "" && !c.hasCategory(*patch.CategoryID) {
		fields = append(fields, "categoryId")
	}
	if len(fields) > 0 {
		return model.Task{}, c.fail(validationFailed(op, fields...))
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := c.tasksRepo.Update(ctx, id, patch)
	if err != nil {
		return model.Task{}, c.fail(writeFailed(op, id, err))
	}
	c.replaceTask(*updated)
	return *updated, nil
}

// ToggleComplete flips a task's completion through the repository and
// replaces it in place with the confirmed version.
func (c *Controller) ToggleComplete(ctx context.Context, id string) (model.Task, error) {
	const op = "toggle task"
	unlock := c.seq.lock(id)
	defer unlock()

	if _, ok := c.findTask(id); !ok {
		return model.Task{}, c.fail(notFound(op, id))
	}

	updated, err := c.tasksRepo.ToggleComplete(ctx, id)
	if err != nil {
		return model.Task{}, c.fail(writeFailed(op, id, err))
	}
	c.replaceTask(*updated)
	log.Printf("[info] task toggled id=%s completed=%t", id, updated.Completed)
	return *updated, nil
}

// MoveTask reassigns a task to categoryID. Moving to the current category
// issues no repository call.
func (c *Controller) MoveTask(ctx context.Context, id, categoryID string) (model.Task, error) {
	const op = "move task"
	unlock := c.seq.lock(id)
	defer unlock()

	current, ok := c.findTask(id)
	if !ok {
		return model.Task{}, c.fail(notFound(op, id))
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return model.Task{}, c.fail(validationFailed(op, "categoryId"))
	}
	if current.CategoryID == categoryID {
		return current, nil
	}
	if !c.hasCategory(categoryID) {
		return model.Task{}, c.fail(validationFailed(op, "categoryId"))
	}

	updated, err := c.tasksRepo.Update(ctx, id, model.TaskPatch{CategoryID: &categoryID})
	if err != nil {
		return model.Task{}, c.fail(writeFailed(op, id, err))
	}
	c.replaceTask(*updated)
	log.Printf("[info] task moved id=%s from=%s to=%s", id, current.CategoryID, categoryID)
	return *updated, nil
}

// DeleteTask removes a task from the repository and the local collection.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	const op = "delete task"
	unlock := c.seq.lock(id)
	defer unlock()

	if _, ok := c.findTask(id); !ok {
		return c.fail(notFound(op, id))
	}
	if err := c.tasksRepo.Delete(ctx, id); err != nil {
		return c.fail(writeFailed(op, id, err))
	}
	c.mutate(func() {
		c.tasks = slices.DeleteFunc(slices.Clone(c.tasks), func(t model.Task) bool { return t.ID == id })
		c.tasksRev++
	})
	log.Printf("[info] task deleted id=%s", id)
	return nil
}

// ReorderTasks persists a new display order: ids first, remaining tasks after
// them in their previous order. Only the order is taken from the repository
// response; tasks changed, created or deleted while the call was in flight
// keep their current local state.
func (c *Controller) ReorderTasks(ctx context.Context, ids []string) ([]model.Task, error) {
	ordered, err := c.tasksRepo.Reorder(ctx, ids)
	if err != nil {
		return nil, c.fail(writeFailed("reorder tasks", "", err))
	}
	var merged []model.Task
	c.mutate(func() {
		c.tasks = mergeOrder(c.tasks, ordered)
		c.tasksRev++
		merged = slices.Clone(c.tasks)
	})
	return merged, nil
}

// CreateCategory validates and stores a category, appending it.
func (c *Controller) CreateCategory(ctx context.Context, input model.CategoryInput) (model.Category, error) {
	const op = "create category"
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return model.Category{}, c.fail(validationFailed(op, "name"))
	}

	created, err := c.categoriesRepo.Create(ctx, input)
	if err != nil {
		return model.Category{}, c.fail(writeFailed(op, "", err))
	}
	category := *created
	c.mutate(func() {
		c.categories = append(c.categories, category)
		c.categoriesRev++
	})
	log.Printf("[info] category created id=%s name=%q", category.ID, category.Name)
	return category, nil
}

// UpdateCategory applies patch to a category and replaces it in place.
func (c *Controller) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) (model.Category, error) {
	const op = "update category"
	if !c.hasCategory(id) {
		return model.Category{}, c.fail(notFound(op, id))
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Category{}, c.fail(validationFailed(op, "name"))
		}
		patch.Name = &name
	}

	updated, err := c.categoriesRepo.Update(ctx, id, patch)
	if err != nil {
		return model.Category{}, c.fail(writeFailed(op, id, err))
	}
	category := *updated
	c.mutate(func() {
		for i := range c.categories {
			if c.categories[i].ID == id {
				c.categories = slices.Clone(c.categories)
				c.categories[i] = category
				c.categoriesRev++
				return
			}
		}
	})
	return category, nil
}

// DeleteCategory removes a category that no task references. Deleting a
// category with tasks is refused without contacting the repository.
func (c *Controller) DeleteCategory(ctx context.Context, id string) error {
	const op = "delete category"
	if !c.hasCategory(id) {
		return c.fail(notFound(op, id))
	}
	c.mu.Lock()
	inUse := slices.ContainsFunc(c.tasks, func(t model.Task) bool { return t.CategoryID == id })
	c.mu.Unlock()
	if inUse {
		return c.fail(&Error{Kind: KindCategoryInUse, Op: op, ID: id})
	}

	if err := c.categoriesRepo.Delete(ctx, id); err != nil {
		return c.fail(writeFailed(op, id, err))
	}
	c.mutate(func() {
		c.categories = slices.DeleteFunc(slices.Clone(c.categories), func(cat model.Category) bool { return cat.ID == id })
		if c.filter != nil && *c.filter == id {
			c.filter = nil
		}
		c.categoriesRev++
	})
	log.Printf("[info] category deleted id=%s", id)
	return nil
}

// SetCategoryFilter restricts the visible tasks to one category; nil shows all.
func (c *Controller) SetCategoryFilter(categoryID *string) {
	var filter *string
	if categoryID != nil {
		id := *categoryID
		filter = &id
	}
	c.mutate(func() { c.filter = filter })
}

// SetSearchQuery filters visible tasks by text; empty disables text filtering.
func (c *Controller) SetSearchQuery(query string) {
	c.mutate(func() { c.query = query })
}

// ClearError forgets the last surfaced error.
func (c *Controller) ClearError() {
	c.mutate(func() { c.lastErr = nil })
}

// Snapshot returns the current derived state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// AllTasks returns every task regardless of the active filter and query.
func (c *Controller) AllTasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// Subscribe registers fn to receive every published snapshot and returns a
// function that unregisters it. Snapshots arrive in revision order; a stale
// snapshot is never delivered after a newer one. Calls to fn never overlap
// and may come from any intent's goroutine, so an intent can return before
// its snapshot has been delivered. fn may call back into the Controller but
// must not block for long.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// mutate applies fn under the state lock, bumps the revision and publishes
// the resulting snapshot.
func (c *Controller) mutate(fn func()) {
	c.mu.Lock()
	fn()
	c.rev++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// fail records err as the last error, publishes it and returns it.
func (c *Controller) fail(err *Error) error {
	c.mutate(func() { c.lastErr = err })
	if err.Kind == KindRepositoryWriteFailed || err.Kind == KindRepositoryReadFailed {
		log.Printf("%v", err)
	}
	return err
}

// publish queues snap for subscribers unless a newer revision was already
// queued. One caller at a time drains the queue, invoking subscribers
// without holding any controller lock, so a subscriber may call back into
// the Controller; its own snapshot is delivered after the current one.
func (c *Controller) publish(snap Snapshot) {
	c.pubMu.Lock()
	if snap.Revision <= c.published {
		c.pubMu.Unlock()
		return
	}
	c.published = snap.Revision
	c.pending = append(c.pending, snap)
	if c.delivering {
		c.pubMu.Unlock()
		return
	}
	c.delivering = true
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.pubMu.Unlock()
		c.deliver(next)
		c.pubMu.Lock()
	}
	c.delivering = false
	c.pubMu.Unlock()
}

func (c *Controller) deliver(snap Snapshot) {
	c.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	proj := c.projector.Project(view.Inputs{
		Tasks:         c.tasks,
		Categories:    c.categories,
		Filter:        c.filter,
		Query:         c.query,
		TasksRev:      c.tasksRev,
		CategoriesRev: c.categoriesRev,
	})
	snap := Snapshot{
		Tasks:      slices.Clone(proj.Visible),
		Categories: slices.Clone(proj.Categories),
		Stats:      proj.Stats,
		Percent:    proj.Stats.Percent(),
		Query:      c.query,
		Loading:    c.loading,
		LastError:  c.lastErr,
		Revision:   c.rev,
	}
	if c.filter != nil {
		f := *c.filter
		snap.Filter = &f
	}
	return snap
}

// mergeOrder arranges current in the order of ordered, keeping the current
// task values. Tasks absent from ordered keep their relative order at the
// end; ids in ordered that are no longer present are skipped.
func mergeOrder(current, ordered []model.Task) []model.Task {
	ids := make([]string, len(ordered))
	positions := make(map[string]int, len(ordered))
	for i, t := range ordered {
		ids[i] = t.ID
		positions[t.ID] = t.Position
	}
	merged := repository.ApplyOrder(current, ids)
	for i := range merged {
		if pos, ok := positions[merged[i].ID]; ok {
			merged[i].Position = pos
		}
	}
	return merged
}

func (c *Controller) findTask(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (c *Controller) hasCategory(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.ContainsFunc(c.categories, func(cat model.Category) bool { return cat.ID == id })
}

// replaceTask swaps the task with the same id, keeping its position. A task
// removed while the call was in flight stays removed.
func (c *Controller) replaceTask(task model.Task) {
	c.mutate(func() {
		i := slices.IndexFunc(c.tasks, func(t model.Task) bool { return t.ID == task.ID })
		if i < 0 {
			return
		}
		c.tasks = slices.Clone(c.tasks)
		c.tasks[i] = task
		c.tasksRev++
	})
}

// validatePatch trims patched text fields and lists the invalid ones.
func validatePatch(p *model.TaskPatch) []string {
	var fields []string
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			fields = append(fields, "title")
		}
		p.Title = &title
	}
	if p.CategoryID != nil {
		id := strings.TrimSpace(*p.CategoryID)
		if id == "" {
			fields = append(fields, "categoryId")
		}
		p.CategoryID = &id
	}
	if p.Priority != nil && !p.Priority.Valid() {
		fields = append(fields, "priority")
	}
	return fields
}

// IsUserError reports whether err is caused by the request rather than the
// repositories.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrCategoryInUse)
}
