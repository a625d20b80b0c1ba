package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

type moveRequest struct {
	CategoryID string `json:"categoryId"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type statsResponse struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Rounded   int     `json:"rounded"`
}

// handleSnapshot applies the optional category and q parameters as the
// active filter and search, then returns the full snapshot. category=all
// or an empty value clears the filter.
func (s *Server) handleSnapshot(c *gin.Context) {
	if category, ok := c.GetQuery("category"); ok {
		category = strings.TrimSpace(category)
		if category == "" || category == "all" {
			s.board.SetCategoryFilter(nil)
		} else {
			s.board.SetCategoryFilter(&category)
		}
	}
	if q, ok := c.GetQuery("q"); ok {
		s.board.SetSearchQuery(q)
	}
	c.JSON(http.StatusOK, s.board.Snapshot())
}

// handleEvents streams snapshots as server-sent events: the current one
// first, then one per published change. A slow client skips intermediate
// snapshots and always receives the latest.
func (s *Server) handleEvents(c *gin.Context) {
	updates := make(chan service.Snapshot, 1)
	unsubscribe := s.board.Subscribe(func(snap service.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	current := s.board.Snapshot()
	last := current.Revision
	c.SSEvent("snapshot", current)
	c.Writer.Flush()

	for {
		select {
		case snap := <-updates:
			if snap.Revision <= last {
				continue
			}
			last = snap.Revision
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.board.Snapshot().Stats
	c.JSON(http.StatusOK, statsResponse{
		Completed: stats.Completed,
		Total:     stats.Total,
		Percent:   stats.Percent(),
		Rounded:   service.RoundPercent(stats),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Snapshot().Tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var input model.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := s.board.CreateTask(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := s.board.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	task, err := s.board.ToggleComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := s.board.MoveTask(c.Request.Context(), c.Param("id"), req.CategoryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.board.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReorderTasks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tasks, err := s.board.ReorderTasks(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Snapshot().Categories)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var input model.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := s.board.CreateCategory(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	var patch model.CategoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	category, err := s.board.UpdateCategory(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	if err := s.board.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps controller error kinds onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindValidationFailed:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindCategoryInUse:
		status = http.StatusConflict
	case service.KindRepositoryReadFailed, service.KindRepositoryWriteFailed:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error()}
	if kind := service.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	var e *service.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.JSON(status, body)
}
