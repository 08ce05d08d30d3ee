package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"spendwise/internal/errors"
	"spendwise/internal/model"
	"spendwise/internal/repository"
)

// maxSuggestionDistance bounds the edit distance of "did you mean" hints.
const maxSuggestionDistance = 2

const (
	msgCategoryNotFound = "Category not found"
	msgCategoryExists   = "Category already exists"
	msgCategoryRequired = "Category name is required"
	msgCategoryReadOnly = "Default categories cannot be modified"
)

// CategoryService manages the shared default categories and each user's own.
type CategoryService interface {
	SeedDefaults(ctx context.Context) (int, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Category, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Category, error)
	Create(ctx context.Context, userID uuid.UUID, name string) (*model.Category, error)
	Update(ctx context.Context, userID, id uuid.UUID, name string) (*model.Category, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// Resolve checks that name is a category visible to the user.
	Resolve(ctx context.Context, userID uuid.UUID, name string) (string, error)
}

type categoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

// SeedDefaults inserts the default set unless shared categories already exist.
func (s *categoryService) SeedDefaults(ctx context.Context) (int, error) {
	inserted, err := s.repo.SeedShared(ctx, model.DefaultCategoryNames)
	if err != nil {
		return 0, fmt.Errorf("seed categories: %w", err)
	}
	return inserted, nil
}

func (s *categoryService) List(ctx context.Context, userID uuid.UUID) ([]model.Category, error) {
	categories, err := s.repo.ListVisible(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Category, error) {
	category, err := s.repo.FindVisibleByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound(msgCategoryNotFound)
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, userID uuid.UUID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation(msgCategoryRequired)
	}
	if err := s.ensureUnique(ctx, userID, name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, UserID: &userID}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// owned returns the user's own category. Shared defaults are visible but read-only.
func (s *categoryService) owned(ctx context.Context, userID, id uuid.UUID) (*model.Category, error) {
	category, err := s.repo.FindOwnedByID(ctx, userID, id)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find category: %w", err)
	}

	if _, err := s.repo.FindVisibleByID(ctx, userID, id); err == nil {
		return nil, errors.Forbidden(msgCategoryReadOnly)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return nil, errors.NotFound(msgCategoryNotFound)
}

func (s *categoryService) Update(ctx context.Context, userID, id uuid.UUID, name string) (*model.Category, error) {
	category, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation(msgCategoryRequired)
	}
	if name == category.Name {
		return category, nil
	}
	if err := s.ensureUnique(ctx, userID, name, id); err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, category, name); err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}
	category.Name = name
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	category, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound(msgCategoryNotFound)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *categoryService) ensureUnique(ctx context.Context, userID uuid.UUID, name string, excludeID uuid.UUID) error {
	_, err := s.repo.FindVisibleByName(ctx, userID, name, excludeID)
	if err == nil {
		return errors.Duplicate(msgCategoryExists)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check category name: %w", err)
	}
	return nil
}

func (s *categoryService) Resolve(ctx context.Context, userID uuid.UUID, name string) (string, error) {
	name = strings.TrimSpace(name)
	category, err := s.repo.FindVisibleByName(ctx, userID, name, uuid.Nil)
	if err == nil {
		return category.Name, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("find category: %w", err)
	}

	categories, err := s.repo.ListVisible(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	if suggestion := closestName(name, categories); suggestion != "" {
		return "", errors.Validation(fmt.Sprintf("Invalid category. Did you mean %q?", suggestion))
	}
	return "", errors.Validation("Invalid category")
}

// closestName returns the visible name nearest to name, if within maxSuggestionDistance.
func closestName(name string, categories []model.Category) string {
	target := strings.ToLower(name)
	best, bestDist := "", maxSuggestionDistance+1
	for _, c := range categories {
		d := levenshtein.ComputeDistance(target, strings.ToLower(c.Name))
		if d < bestDist {
			best, bestDist = c.Name, d
		}
	}
	return best
}
