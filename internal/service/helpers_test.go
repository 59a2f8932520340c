package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

var defaultCategories = []string{"Work", "Personal", "Health", "Learning", "Shopping"}

type fixture struct {
	db         *gorm.DB
	tasks      *TaskService
	categories *CategoryService
	users      *repository.UserRepository
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", "silent")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	categoryRepo := repository.NewCategoryRepository(db)
	fx := &fixture{
		db:         db,
		tasks:      NewTaskService(repository.NewTaskRepository(db), categoryRepo),
		categories: NewCategoryService(categoryRepo),
		users:      repository.NewUserRepository(db),
		clock:      testNow,
	}
	fx.tasks.now = func() time.Time { return fx.clock }
	return fx
}

// advance moves the fixture clock forward.
func (fx *fixture) advance(d time.Duration) {
	fx.clock = fx.clock.Add(d)
}

func (fx *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username}
	if err := fx.users.CreateWithCategories(context.Background(), user, defaultCategories); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (fx *fixture) category(t *testing.T, user *model.User, name string) uint {
	t.Helper()
	stats, err := fx.categories.List(context.Background(), user)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, stat := range stats {
		if stat.Name == name {
			return stat.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return 0
}

func (fx *fixture) task(t *testing.T, user *model.User, input TaskInput) *model.Task {
	t.Helper()
	task, err := fx.tasks.CreateTask(context.Background(), user, input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Title, err)
	}
	fx.advance(time.Second)
	return task
}

func ptr[T any](v T) *T {
	return &v
}
