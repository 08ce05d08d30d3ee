package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendwise/internal/model"
)

// Sort keys accepted by ExpenseRepository.List.
const (
	SortDateAsc   = "date-asc"
	SortDateDesc  = "date-desc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

var sortClauses = map[string]string{
	SortDateAsc:   "date ASC",
	SortDateDesc:  "date DESC",
	SortPriceAsc:  "amount ASC",
	SortPriceDesc: "amount DESC",
}

// ExpenseFilter narrows a user's expenses. Zero values mean "no constraint".
type ExpenseFilter struct {
	Category string
	Type     model.ExpenseType
	Since    time.Time
	// Search matches description or category as a case-insensitive substring.
	Search string
	// SearchAmount, when set, also matches records with exactly this amount.
	SearchAmount *decimal.Decimal
	Sort         string
	Offset       int
	Limit        int
}

// CategoryAggregate is a raw per-category group; Category is nil for uncategorized records.
type CategoryAggregate struct {
	Category *string
	Total    decimal.Decimal
	Count    int64
}

// ExpenseRepository defines expense persistence operations. Every method is scoped to one owner.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Expense, error)
	// List returns one page of matches and the number of matches ignoring pagination.
	List(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]model.Expense, error)
	Update(ctx context.Context, expense *model.Expense) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SummarizeByCategory(ctx context.Context, userID uuid.UUID, expenseType model.ExpenseType) ([]CategoryAggregate, error)
}

type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository.
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) List(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]model.Expense, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Expense{}).Where("user_id = ?", userID)

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if !filter.Since.IsZero() {
		q = q.Where("date >= ?", filter.Since.UTC())
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		if filter.SearchAmount != nil {
			q = q.Where("(LOWER(description) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!' OR amount = ?)",
				pattern, pattern, *filter.SearchAmount)
		} else {
			q = q.Where("(LOWER(description) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!')",
				pattern, pattern)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := sortClauses[filter.Sort]
	if !ok {
		order = sortClauses[SortDateDesc]
	}
	q = q.Order(order)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var expenses []model.Expense
	if err := q.Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *expenseRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date ASC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// Update writes every mutable column, including a null category.
func (r *expenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	res := r.db.WithContext(ctx).Model(expense).
		Where("user_id = ?", expense.UserID).
		Select("description", "amount", "date", "category", "type", "updated_at").
		Updates(expense)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) SummarizeByCategory(ctx context.Context, userID uuid.UUID, expenseType model.ExpenseType) ([]CategoryAggregate, error) {
	var rows []CategoryAggregate
	err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("category, SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ? AND type = ?", userID, expenseType).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
