package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendwise/internal/errors"
	"spendwise/internal/model"
	"spendwise/internal/notify"
	"spendwise/internal/repository"
)

// Pagination and period defaults of the expense list.
const (
	DefaultPage     = 1
	DefaultPageSize = 5
	MaxPageSize     = 100

	PeriodWeekly  = "Weekly"
	PeriodMonthly = "Monthly"
	categoryAll   = "All"
)

const msgExpenseNotFound = "Expense not found"

// ExpenseQuery carries the raw list parameters. Invalid values fall back to defaults.
type ExpenseQuery struct {
	Category string
	Type     string
	Period   string
	Search   string
	Sort     string
	Page     string
	PageSize string
}

// ExpensePage is one page of a user's expenses.
type ExpensePage struct {
	Expenses []model.Expense
	Total    int64
	Page     int
	PageSize int
}

// ExpenseInput is the writable part of an expense.
type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Category    string
	Type        string
}

// ExpenseService handles expense operations for the authenticated user.
type ExpenseService interface {
	List(ctx context.Context, userID uuid.UUID, query ExpenseQuery) (*ExpensePage, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Expense, error)
	Create(ctx context.Context, userID uuid.UUID, input ExpenseInput) (*model.Expense, NotificationResult, error)
	Update(ctx context.Context, userID, id uuid.UUID, input ExpenseInput) (*model.Expense, NotificationResult, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID) (*model.Summary, error)
	Insights(ctx context.Context, userID uuid.UUID) (*Insights, error)
}

type expenseService struct {
	repo       repository.ExpenseRepository
	userRepo   repository.UserRepository
	categories CategoryService
	notifier   NotificationService
	now        func() time.Time
}

// NewExpenseService creates a new expense service.
func NewExpenseService(repo repository.ExpenseRepository, userRepo repository.UserRepository, categories CategoryService, notifier NotificationService) ExpenseService {
	return &expenseService{
		repo:       repo,
		userRepo:   userRepo,
		categories: categories,
		notifier:   notifier,
		now:        time.Now,
	}
}

// normalizeDate stores dates in UTC at millisecond precision.
func normalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// buildFilter turns raw query parameters into a repository filter.
func (s *expenseService) buildFilter(q ExpenseQuery) (repository.ExpenseFilter, int, int) {
	var f repository.ExpenseFilter

	if c := strings.TrimSpace(q.Category); c != "" && c != categoryAll {
		f.Category = c
	}
	if t := model.ExpenseType(strings.TrimSpace(q.Type)); t.Valid() {
		f.Type = t
	}
	switch strings.TrimSpace(q.Period) {
	case PeriodWeekly:
		f.Since = s.now().UTC().AddDate(0, 0, -7)
	case PeriodMonthly:
		f.Since = s.now().UTC().AddDate(0, 0, -30)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		f.Search = search
		if amount, err := decimal.NewFromString(search); err == nil {
			f.SearchAmount = &amount
		}
	}
	switch q.Sort {
	case repository.SortDateAsc, repository.SortDateDesc, repository.SortPriceAsc, repository.SortPriceDesc:
		f.Sort = q.Sort
	default:
		f.Sort = repository.SortDateDesc
	}

	page := parsePositive(q.Page, DefaultPage)
	pageSize := parsePositive(q.PageSize, DefaultPageSize)
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
	return f, page, pageSize
}

func parsePositive(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func (s *expenseService) List(ctx context.Context, userID uuid.UUID, query ExpenseQuery) (*ExpensePage, error) {
	filter, page, pageSize := s.buildFilter(query)
	expenses, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	return &ExpensePage{Expenses: expenses, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *expenseService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Expense, error) {
	expense, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound(msgExpenseNotFound)
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	return expense, nil
}

func parseType(raw string) (model.ExpenseType, error) {
	t := model.ExpenseType(strings.TrimSpace(raw))
	if t == "" {
		return model.ExpenseTypeExpense, nil
	}
	if !t.Valid() {
		return "", errors.Validation("Type must be Expense or Income")
	}
	return t, nil
}

// resolveCategory returns the stored category for a record of type t.
func (s *expenseService) resolveCategory(ctx context.Context, userID uuid.UUID, t model.ExpenseType, raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if t == model.ExpenseTypeIncome || raw == "" {
		return nil, nil
	}
	name, err := s.categories.Resolve(ctx, userID, raw)
	if err != nil {
		return nil, err
	}
	return &name, nil
}

func (s *expenseService) Create(ctx context.Context, userID uuid.UUID, input ExpenseInput) (*model.Expense, NotificationResult, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, NotificationResult{}, errors.Validation("Description is required")
	}
	if !input.Amount.IsPositive() {
		return nil, NotificationResult{}, errors.Validation("Amount must be greater than 0")
	}
	expenseType, err := parseType(input.Type)
	if err != nil {
		return nil, NotificationResult{}, err
	}
	category, err := s.resolveCategory(ctx, userID, expenseType, input.Category)
	if err != nil {
		return nil, NotificationResult{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	expense := &model.Expense{
		UserID:      userID,
		Description: description,
		Amount:      input.Amount.Round(2),
		Date:        normalizeDate(date),
		Category:    category,
		Type:        expenseType,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, NotificationResult{}, fmt.Errorf("create expense: %w", err)
	}

	result := s.notifyExpense(ctx, userID, notify.KindExpenseCreated, expense)
	return expense, result, nil
}

// Update applies a partial update. Empty description, non-positive amount, zero date and
// empty type keep the stored value. An empty category keeps the stored one unless the
// record becomes Income, which never carries a category.
func (s *expenseService) Update(ctx context.Context, userID, id uuid.UUID, input ExpenseInput) (*model.Expense, NotificationResult, error) {
	expense, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, NotificationResult{}, err
	}

	if d := strings.TrimSpace(input.Description); d != "" {
		expense.Description = d
	}
	if input.Amount.IsPositive() {
		expense.Amount = input.Amount.Round(2)
	}
	if !input.Date.IsZero() {
		expense.Date = normalizeDate(input.Date)
	}
	if strings.TrimSpace(input.Type) != "" {
		t, err := parseType(input.Type)
		if err != nil {
			return nil, NotificationResult{}, err
		}
		expense.Type = t
	}
	switch {
	case expense.Type == model.ExpenseTypeIncome:
		expense.Category = nil
	case strings.TrimSpace(input.Category) != "":
		category, err := s.resolveCategory(ctx, userID, expense.Type, input.Category)
		if err != nil {
			return nil, NotificationResult{}, err
		}
		expense.Category = category
	}

	if err := s.repo.Update(ctx, expense); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotificationResult{}, errors.NotFound(msgExpenseNotFound)
		}
		return nil, NotificationResult{}, fmt.Errorf("update expense: %w", err)
	}

	result := s.notifyExpense(ctx, userID, notify.KindExpenseUpdated, expense)
	return expense, result, nil
}

func (s *expenseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound(msgExpenseNotFound)
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *expenseService) notifyExpense(ctx context.Context, userID uuid.UUID, kind notify.Kind, expense *model.Expense) NotificationResult {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		user = nil
	}
	payload := &notify.Expense{
		Description: expense.Description,
		Amount:      expense.Amount.StringFixed(2),
		Category:    expense.CategoryName(),
		Date:        expense.Date,
	}
	if kind == notify.KindExpenseUpdated {
		payload.Type = string(expense.Type)
	}
	return s.notifier.Notify(ctx, user, notify.Message{Kind: kind, Expense: payload})
}

// Summary totals the user's Expense-typed records per category.
func (s *expenseService) Summary(ctx context.Context, userID uuid.UUID) (*model.Summary, error) {
	rows, err := s.repo.SummarizeByCategory(ctx, userID, model.ExpenseTypeExpense)
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}

	groups := make(map[string]*model.CategoryTotal, len(rows))
	for _, row := range rows {
		name := model.UncategorizedLabel
		if row.Category != nil && *row.Category != "" {
			name = *row.Category
		}
		g, ok := groups[name]
		if !ok {
			g = &model.CategoryTotal{Category: name, Type: model.ExpenseTypeExpense}
			groups[name] = g
		}
		g.Total = g.Total.Add(row.Total)
		g.Count += row.Count
	}

	summary := &model.Summary{Total: decimal.Zero, ByCategory: make([]model.CategoryTotal, 0, len(groups))}
	for _, g := range groups {
		g.Total = g.Total.Round(2)
		summary.ByCategory = append(summary.ByCategory, *g)
		summary.Total = summary.Total.Add(g.Total)
		summary.Count += g.Count
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Category < summary.ByCategory[j].Category
	})
	return summary, nil
}
