package service

import (
	"context"
	"errors"
	"strings"

	"quill/internal/audit"
	"quill/internal/models"
	"quill/internal/repository"

	"gorm.io/gorm"
)

// CategoryService manages post categories. All writes are admin only.
type CategoryService struct {
	categories repository.CategoryRepository
	audit      audit.Sink
}

// NewCategoryService creates a new category service
func NewCategoryService(categories repository.CategoryRepository, sink audit.Sink) *CategoryService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &CategoryService{categories: categories, audit: sink}
}

// CreateCategory adds a category.
func (s *CategoryService) CreateCategory(ctx context.Context, actor models.Actor, name, description string) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can manage categories")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}

	category := &models.Category{Name: name, Description: description}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.audit.Record(ctx, "categories.create", auditJSON(category), "", &actor.ID)
	return category, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor models.Actor, id uint, name, description string) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can manage categories")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Category", id)
	}

	category.Name = name
	category.Description = description
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, models.NewInternalError(err)
	}
	return category, nil
}

// DeleteCategory removes a category. Deletion is rejected with a conflict
// while any post still references it.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor models.Actor, id uint) error {
	if !actor.IsAdmin() {
		return models.NewForbiddenError("Only admins can manage categories")
	}

	err := s.categories.Delete(ctx, id)
	switch {
	case err == nil:
		s.audit.Record(ctx, "categories.delete", auditJSON(map[string]uint{"id": id}), "", &actor.ID)
		return nil
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return models.NewConflictError("Category is still referenced by posts")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError("Category", id)
	default:
		return models.NewInternalError(err)
	}
}

// GetCategory fetches one category.
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Category", id)
	}
	return category, nil
}

// ListCategories returns all categories.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}
