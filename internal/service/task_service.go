package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	// Priority defaults to medium when empty.
	Priority   string
	CategoryID *uint
	// Category names a category to use or create when CategoryID is nil.
	Category    string
	DueDate     *time.Time
	IsCompleted bool
}

// TaskService wraps task-related business logic. Every method is scoped to
// the calling user.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	now          func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	now := s.now()
	verr := &ValidationError{}

	validateTitle(input.Title, verr)

	priority := model.PriorityMedium
	if input.Priority != "" {
		p, ok := model.ParsePriority(input.Priority)
		if !ok {
			verr.Add("priority", "must be one of low, medium, high")
		}
		priority = p
	}

	if input.DueDate != nil {
		validateDueDate(*input.DueDate, now, verr)
	}

	categoryID, err := s.categoryByID(ctx, user, input.CategoryID, verr)
	if err != nil {
		return nil, err
	}
	var categoryName string
	if categoryID == nil && strings.TrimSpace(input.Category) != "" {
		categoryName = validateCategoryName(input.Category, "category", verr)
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:      user.ID,
		CategoryID:  categoryID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IsCompleted {
		setCompleted(&task, true, now)
	}

	// A category named by the caller is created together with the task.
	err = s.taskRepo.CreateWith(ctx, &task, func(tx *gorm.DB, task *model.Task) error {
		if categoryName == "" {
			return nil
		}
		category, err := s.categoryRepo.WithTx(tx).GetOrCreate(ctx, user.ID, categoryName)
		if err != nil {
			return err
		}
		task.CategoryID = &category.ID
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	return s.GetTask(ctx, user, task.ID)
}

// categoryByID checks that the referenced category belongs to the user.
func (s *TaskService) categoryByID(ctx context.Context, user *model.User, id *uint, verr *ValidationError) (*uint, error) {
	if id == nil {
		return nil, nil
	}
	category, err := s.categoryRepo.GetByID(ctx, user.ID, *id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		verr.Add("category", "does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category.ID, nil
}

// ListTasks returns the user's tasks matching filter.
func (s *TaskService) ListTasks(ctx context.Context, user *model.User, filter model.TaskFilter) ([]model.Task, error) {
	return s.taskRepo.List(ctx, user.ID, filter)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// UpdateTask applies a partial update. The whole read-validate-write cycle
// runs in one transaction. Fields sent together with is_completed=false on
// a completed task are applied in the same update.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID uint, patch TaskPatch) (*model.Task, error) {
	now := s.now()
	task, err := s.taskRepo.Modify(ctx, user.ID, taskID, func(tx *gorm.DB, task *model.Task) error {
		if err := checkTransition(task, patch); err != nil {
			return err
		}

		verr := &ValidationError{}
		validatePatch(patch, now, verr)
		if patch.CategoryID != nil && !patch.ClearCategory {
			_, err := s.categoryRepo.WithTx(tx).GetByID(ctx, user.ID, *patch.CategoryID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				verr.Add("category", "does not exist")
			case err != nil:
				return err
			}
		}
		if err := verr.Err(); err != nil {
			return err
		}

		applyPatch(task, patch, now)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// ToggleTask flips the completion flag. It ignores edit lockout because it
// changes nothing but the flag and its timestamp.
func (s *TaskService) ToggleTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.Toggle(ctx, user.ID, taskID, s.now())
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	return translate(s.taskRepo.Delete(ctx, user.ID, taskID))
}
