package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"spendwise/internal/model"
)

// CategoryRepository defines category persistence operations. "Visible" means
// the shared default set plus the categories owned by the given user.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	// SeedShared inserts categories as shared defaults unless at least one shared category exists.
	SeedShared(ctx context.Context, names []string) (int, error)
	CountShared(ctx context.Context) (int64, error)
	ListVisible(ctx context.Context, userID uuid.UUID) ([]model.Category, error)
	FindVisibleByID(ctx context.Context, userID, id uuid.UUID) (*model.Category, error)
	FindOwnedByID(ctx context.Context, userID, id uuid.UUID) (*model.Category, error)
	// FindVisibleByName returns the visible category with the given name, ignoring excludeID.
	FindVisibleByName(ctx context.Context, userID uuid.UUID, name string, excludeID uuid.UUID) (*model.Category, error)
	// Rename renames an owned category and the owner's expenses that reference the old name.
	Rename(ctx context.Context, category *model.Category, newName string) error
	// Delete removes an owned category and nulls the category of the owner's dependent expenses.
	Delete(ctx context.Context, category *model.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) SeedShared(ctx context.Context, names []string) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Category{}).Where("user_id IS NULL").Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		categories := make([]model.Category, 0, len(names))
		for _, name := range names {
			categories = append(categories, model.Category{Name: name})
		}
		if err := tx.Create(&categories).Error; err != nil {
			return err
		}
		inserted = len(categories)
		return nil
	})
	return inserted, err
}

func (r *categoryRepository) CountShared(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Where("user_id IS NULL").Count(&count).Error
	return count, err
}

func (r *categoryRepository) visible(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Where("(user_id IS NULL OR user_id = ?)", userID)
}

func (r *categoryRepository) ListVisible(ctx context.Context, userID uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	if err := r.visible(ctx, userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindVisibleByID(ctx context.Context, userID, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.visible(ctx, userID).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindOwnedByID(ctx context.Context, userID, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindVisibleByName(ctx context.Context, userID uuid.UUID, name string, excludeID uuid.UUID) (*model.Category, error) {
	var category model.Category
	q := r.visible(ctx, userID).Where("name = ?", name)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Rename(ctx context.Context, category *model.Category, newName string) error {
	if category.UserID == nil {
		return gorm.ErrRecordNotFound
	}
	oldName := category.Name
	owner := *category.UserID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(category).Update("name", newName).Error; err != nil {
			return err
		}
		return tx.Model(&model.Expense{}).
			Where("user_id = ? AND category = ?", owner, oldName).
			Update("category", newName).Error
	})
}

func (r *categoryRepository) Delete(ctx context.Context, category *model.Category) error {
	if category.UserID == nil {
		return gorm.ErrRecordNotFound
	}
	owner := *category.UserID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", category.ID, owner).Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Expense{}).
			Where("user_id = ? AND category = ?", owner, category.Name).
			Update("category", nil).Error
	})
}
