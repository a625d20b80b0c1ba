package view

import (
	"sync"

	"taskflow/internal/model"
)

// Inputs is everything a Projection is derived from. TasksRev and
// CategoriesRev must change whenever the corresponding slice changes; the
// Projector compares revisions rather than slice contents.
type Inputs struct {
	Tasks         []model.Task
	Categories    []model.Category
	Filter        *string
	Query         string
	TasksRev      uint64
	CategoriesRev uint64
}

// Projection is the derived read model. Its slices are shared between
// callers and must be treated as read-only.
type Projection struct {
	Visible    []model.Task
	Categories []model.Category
	Stats      Stats
}

type visibleKey struct {
	tasksRev  uint64
	hasFilter bool
	filter    string
	query     string
}

type countsKey struct {
	tasksRev, categoriesRev uint64
}

// Projector memoizes each derived view and recomputes only the parts whose
// inputs changed since the previous call.
type Projector struct {
	mu sync.Mutex

	visibleOK  bool
	visibleKey visibleKey
	visible    []model.Task

	countsOK  bool
	countsKey countsKey
	counts    []model.Category

	statsOK  bool
	statsRev uint64
	stats    Stats

	recomputes int
}

// Project returns the projection for in.
func (p *Projector) Project(in Inputs) Projection {
	p.mu.Lock()
	defer p.mu.Unlock()

	vk := visibleKey{tasksRev: in.TasksRev, query: in.Query}
	if in.Filter != nil {
		vk.hasFilter = true
		vk.filter = *in.Filter
	}
	if !p.visibleOK || p.visibleKey != vk {
		p.visible = VisibleTasks(in.Tasks, in.Filter, in.Query)
		p.visibleKey, p.visibleOK = vk, true
		p.recomputes++
	}

	ck := countsKey{tasksRev: in.TasksRev, categoriesRev: in.CategoriesRev}
	if !p.countsOK || p.countsKey != ck {
		p.counts = CategoryCounts(in.Tasks, in.Categories)
		p.countsKey, p.countsOK = ck, true
		p.recomputes++
	}

	if !p.statsOK || p.statsRev != in.TasksRev {
		p.stats = CompletionStats(in.Tasks)
		p.statsRev, p.statsOK = in.TasksRev, true
		p.recomputes++
	}

	return Projection{Visible: p.visible, Categories: p.counts, Stats: p.stats}
}

// Recomputes reports how many individual views have been computed so far.
func (p *Projector) Recomputes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recomputes
}
