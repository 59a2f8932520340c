package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

const maxCategoryNameLength = 100

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns the user's categories by name, with live task counts.
func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.CategoryStat, error) {
	return s.repo.ListWithCounts(ctx, user.ID)
}

func (s *CategoryService) Get(ctx context.Context, user *model.User, categoryID uint) (*model.CategoryStat, error) {
	stat, err := s.repo.FindWithCount(ctx, user.ID, categoryID)
	if err != nil {
		return nil, translate(err)
	}
	return stat, nil
}

func (s *CategoryService) Create(ctx context.Context, user *model.User, name string) (*model.CategoryStat, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	category := model.Category{UserID: user.ID, Name: name}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, translate(err)
	}
	return &model.CategoryStat{Category: category}, nil
}

func (s *CategoryService) Rename(ctx context.Context, user *model.User, categoryID uint, name string) (*model.CategoryStat, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, user.ID, categoryID, name); err != nil {
		return nil, translate(err)
	}
	return s.Get(ctx, user, categoryID)
}

// Delete removes the category. Its tasks remain, uncategorized.
func (s *CategoryService) Delete(ctx context.Context, user *model.User, categoryID uint) error {
	return translate(s.repo.Delete(ctx, user.ID, categoryID))
}

func normalizeCategoryName(name string) (string, error) {
	verr := &ValidationError{}
	name = validateCategoryName(name, "name", verr)
	return name, verr.Err()
}

// validateCategoryName trims name and reports problems under field.
func validateCategoryName(name, field string, verr *ValidationError) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		verr.Add(field, "is required")
	case utf8.RuneCountInString(name) > maxCategoryNameLength:
		verr.Add(field, "must be at most 100 characters")
	}
	return name
}
