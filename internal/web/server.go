package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

// Board is the controller surface the HTTP API drives.
type Board interface {
	Snapshot() service.Snapshot
	CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	ToggleComplete(ctx context.Context, id string) (model.Task, error)
	MoveTask(ctx context.Context, id, categoryID string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string) ([]model.Task, error)
	CreateCategory(ctx context.Context, input model.CategoryInput) (model.Category, error)
	UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) (model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	SetCategoryFilter(categoryID *string)
	SetSearchQuery(query string)
	Subscribe(fn func(service.Snapshot)) (unsubscribe func())
}

// Server exposes the task board as a JSON API.
type Server struct {
	board  Board
	router *gin.Engine
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(board Board) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		board:  board,
		router: router,
	}

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := router.Group("/api")
	{
		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/events", s.handleEvents)
		api.GET("/stats", s.handleStats)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/order", s.handleReorderTasks)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/toggle", s.handleToggleTask)
		api.POST("/tasks/:id/move", s.handleMoveTask)

		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.PATCH("/categories/:id", s.handleUpdateCategory)
		api.DELETE("/categories/:id", s.handleDeleteCategory)
	}

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open event streams close on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] http listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
