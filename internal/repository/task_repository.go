package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-tracker/internal/model"
)

// maxToggleAttempts bounds the compare-and-swap loop in Toggle.
const maxToggleAttempts = 10

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CreateWith runs fn and inserts the task in one transaction. fn may fill
// in fields of task using tx; nothing is written when it returns an error.
func (r *TaskRepository) CreateWith(ctx context.Context, task *model.Task, fn func(tx *gorm.DB, task *model.Task) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx, task); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
}

// List returns the user's tasks matching filter, in the filter's order.
func (r *TaskRepository) List(ctx context.Context, userID uint, filter model.TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	q := taskQuery{userID: userID, filter: filter}
	if err := q.build(r.db.WithContext(ctx)).Preload("Category").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	return findTask(r.db.WithContext(ctx), userID, taskID)
}

// Modify loads the user's task inside a transaction, passes it to fn and
// saves every column fn may have changed. fn receives the transaction so
// that any lookups it makes see the same snapshot. Nothing is written when
// fn returns an error.
func (r *TaskRepository) Modify(ctx context.Context, userID, taskID uint, fn func(tx *gorm.DB, task *model.Task) error) (*model.Task, error) {
	var result *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		if err := fn(tx, task); err != nil {
			return err
		}
		task.Category = nil
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		result, err = findTask(tx, userID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Toggle flips the completion flag of the user's task. The flag and
// completed_at are written by one conditional UPDATE that only applies if
// the flag still holds the value that was read; on a lost race the task is
// re-read and the swap retried.
func (r *TaskRepository) Toggle(ctx context.Context, userID, taskID uint, now time.Time) (*model.Task, error) {
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		task, err := findTask(db, userID, taskID)
		if err != nil {
			return nil, err
		}

		completed := !task.IsCompleted
		var completedAt *time.Time
		if completed {
			completedAt = &now
		}

		res := db.Model(&model.Task{}).
			Where("id = ? AND user_id = ? AND is_completed = ?", taskID, userID, task.IsCompleted).
			Updates(map[string]interface{}{
				"is_completed": completed,
				"completed_at": completedAt,
				"updated_at":   now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("toggle task: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return findTask(db, userID, taskID)
		}
	}
	return nil, fmt.Errorf("toggle task %d: too many concurrent updates", taskID)
}

// Delete removes a task owned by the user. It returns gorm.ErrRecordNotFound
// when no such task exists.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func findTask(db *gorm.DB, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := db.Preload("Category").Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}
