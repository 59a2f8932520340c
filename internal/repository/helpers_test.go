package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"task-tracker/internal/model"
)

var baseTime = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, categories ...string) *model.User {
	t.Helper()
	user := &model.User{Username: username}
	if err := NewUserRepository(db).CreateWithCategories(context.Background(), user, categories); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func categoryID(t *testing.T, db *gorm.DB, userID uint, name string) uint {
	t.Helper()
	var category model.Category
	if err := db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error; err != nil {
		t.Fatalf("find category %s: %v", name, err)
	}
	return category.ID
}

func createTask(t *testing.T, db *gorm.DB, task model.Task) *model.Task {
	t.Helper()
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if err := NewTaskRepository(db).Create(context.Background(), &task); err != nil {
		t.Fatalf("create task %q: %v", task.Title, err)
	}
	return &task
}

func at(hours int) time.Time {
	return baseTime.Add(time.Duration(hours) * time.Hour)
}

func ptr[T any](v T) *T {
	return &v
}

func taskTitles(tasks []model.Task) []string {
	titles := make([]string, 0, len(tasks))
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	return titles
}
