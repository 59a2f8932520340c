package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/auth"
	"task-tracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP transport for tasks, categories and accounts.
type Server struct {
	auth       *auth.Service
	tasks      *service.TaskService
	categories *service.CategoryService
	router     *gin.Engine
}

// NewServer creates the API server and registers its routes.
func NewServer(authSvc *auth.Service, tasks *service.TaskService, categories *service.CategoryService) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())

	s := &Server{
		auth:       authSvc,
		tasks:      tasks,
		categories: categories,
		router:     router,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/register", s.handleRegister)
		api.POST("/login", s.handleLogin)
	}

	private := api.Group("", s.requireUser())
	{
		private.GET("/tasks", s.handleListTasks)
		private.POST("/tasks", s.handleCreateTask)
		private.GET("/tasks/:id", s.handleGetTask)
		private.PUT("/tasks/:id", s.handleUpdateTask)
		private.PATCH("/tasks/:id", s.handleUpdateTask)
		private.DELETE("/tasks/:id", s.handleDeleteTask)
		private.PATCH("/tasks/:id/toggle", s.handleToggleTask)

		private.GET("/categories", s.handleListCategories)
		private.POST("/categories", s.handleCreateCategory)
		private.GET("/categories/:id", s.handleGetCategory)
		private.PUT("/categories/:id", s.handleUpdateCategory)
		private.PATCH("/categories/:id", s.handleUpdateCategory)
		private.DELETE("/categories/:id", s.handleDeleteCategory)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "addr", addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server_stopped", "addr", addr)
	return nil
}
