package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = model.Category{UserID: userID, Name: name}
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// ListWithCounts returns the user's categories ordered by name, each with
// the number of tasks currently referencing it.
func (r *CategoryRepository) ListWithCounts(ctx context.Context, userID uint) ([]model.CategoryStat, error) {
	var stats []model.CategoryStat
	if err := statsQuery(r.db.WithContext(ctx), userID).Order("categories.name ASC").Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return stats, nil
}

// FindWithCount returns one of the user's categories with its task count.
func (r *CategoryRepository) FindWithCount(ctx context.Context, userID, categoryID uint) (*model.CategoryStat, error) {
	var stats []model.CategoryStat
	if err := statsQuery(r.db.WithContext(ctx), userID).Where("categories.id = ?", categoryID).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if len(stats) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &stats[0], nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, categoryID uint) (*model.Category, error) {
	return findCategory(r.db.WithContext(ctx), userID, categoryID)
}

// Rename changes the name of one of the user's categories.
func (r *CategoryRepository) Rename(ctx context.Context, userID, categoryID uint, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if err := tx.Model(category).Update("name", name).Error; err != nil {
			return fmt.Errorf("rename category: %w", err)
		}
		return nil
	})
}

// Delete removes one of the user's categories. Its tasks are kept and lose
// their category reference.
func (r *CategoryRepository) Delete(ctx context.Context, userID, categoryID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.Task{}).
			Where("user_id = ? AND category_id = ?", userID, category.ID).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach tasks: %w", err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// createDefaultCategories seeds one category per name for a new user. It is
// meant to run inside the transaction that creates the user.
func createDefaultCategories(tx *gorm.DB, userID uint, names []string) error {
	if len(names) == 0 {
		return nil
	}
	categories := make([]model.Category, 0, len(names))
	for _, name := range names {
		categories = append(categories, model.Category{UserID: userID, Name: name})
	}
	if err := tx.Create(&categories).Error; err != nil {
		return fmt.Errorf("create default categories: %w", err)
	}
	return nil
}

func statsQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&model.Category{}).
		Select("categories.id, categories.user_id, categories.name, categories.created_at, COUNT(tasks.id) AS task_count").
		Joins("LEFT JOIN tasks ON tasks.category_id = categories.id").
		Where("categories.user_id = ?", userID).
		Group("categories.id, categories.user_id, categories.name, categories.created_at")
}

func findCategory(db *gorm.DB, userID, categoryID uint) (*model.Category, error) {
	var category model.Category
	err := db.Where("user_id = ? AND id = ?", userID, categoryID).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

// WithTx returns a repository bound to tx.
func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: tx}
}
