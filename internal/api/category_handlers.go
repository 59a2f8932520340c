package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/model"
)

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	TaskCount int64     `json:"task_count"`
	CreatedAt time.Time `json:"created_at"`
}

func newCategoryResponse(stat *model.CategoryStat) categoryResponse {
	return categoryResponse{
		ID:        stat.ID,
		Name:      stat.Name,
		TaskCount: stat.TaskCount,
		CreatedAt: stat.CreatedAt,
	}
}

func (s *Server) handleListCategories(c *gin.Context) {
	stats, err := s.categories.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]categoryResponse, 0, len(stats))
	for i := range stats {
		resp = append(resp, newCategoryResponse(&stats[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	stat, err := s.categories.Create(c.Request.Context(), currentUser(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(stat))
}

func (s *Server) handleGetCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	stat, err := s.categories.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(stat))
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	stat, err := s.categories.Rename(c.Request.Context(), currentUser(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(stat))
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.categories.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
