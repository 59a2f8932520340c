package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/model"
	"task-tracker/internal/service"
)

type taskResponse struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	IsCompleted  bool           `json:"is_completed"`
	Priority     model.Priority `json:"priority"`
	Category     *uint          `json:"category"`
	CategoryName *string        `json:"category_name"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	DueDate      *time.Time     `json:"due_date"`
}

func newTaskResponse(task *model.Task) taskResponse {
	resp := taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		IsCompleted: task.IsCompleted,
		Priority:    task.Priority,
		Category:    task.CategoryID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		CompletedAt: task.CompletedAt,
		DueDate:     task.DueDate,
	}
	if task.Category != nil {
		name := task.Category.Name
		resp.CategoryName = &name
	}
	return resp
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Category    *uint      `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := model.ParseTaskFilter(c.Request.URL.Query())
	tasks, err := s.tasks.ListTasks(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, newTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	input := service.TaskInput{
		Title:       req.Title,
		Priority:    req.Priority,
		CategoryID:  req.Category,
		DueDate:     req.DueDate,
		IsCompleted: req.IsCompleted,
	}
	if req.Description != nil {
		input.Description = *req.Description
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), currentUser(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	patch, err := decodeTaskPatch(body)
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := s.tasks.UpdateTask(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleToggleTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, err := s.tasks.ToggleTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.tasks.DeleteTask(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// decodeTaskPatch turns a JSON object into a patch, keeping track of which
// keys were present. An explicit null clears category, due_date and
// description. Read-only keys (id, timestamps) are ignored.
func decodeTaskPatch(body map[string]json.RawMessage) (service.TaskPatch, error) {
	var patch service.TaskPatch
	verr := &service.ValidationError{}

	for key, raw := range body {
		isNull := string(raw) == "null"
		switch key {
		case "title":
			var v string
			if isNull || json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be a string")
				continue
			}
			patch.Title = &v
		case "description":
			v := ""
			if !isNull && json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be a string")
				continue
			}
			patch.Description = &v
		case "priority":
			var v string
			if isNull || json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be a string")
				continue
			}
			patch.Priority = &v
		case "category":
			if isNull {
				patch.ClearCategory = true
				continue
			}
			var v uint
			if json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be a category id")
				continue
			}
			patch.CategoryID = &v
		case "due_date":
			if isNull {
				patch.ClearDueDate = true
				continue
			}
			var v time.Time
			if json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be an RFC 3339 timestamp")
				continue
			}
			patch.DueDate = &v
		case "is_completed":
			var v bool
			if isNull || json.Unmarshal(raw, &v) != nil {
				verr.Add(key, "must be a boolean")
				continue
			}
			patch.IsCompleted = &v
		}
	}

	return patch, verr.Err()
}
