package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "spendwise/internal/errors"
	applog "spendwise/internal/log"
	"spendwise/internal/model"
	"spendwise/internal/notify"
	"spendwise/internal/repository"
	"spendwise/internal/testutil"
)

type expenseFixture struct {
	svc        ExpenseService
	categories CategoryService
	sender     *MockSender
	user       *model.User
	now        time.Time
}

func newExpenseFixture(t *testing.T) *expenseFixture {
	t.Helper()
	ctx := context.Background()
	gormDB := testutil.NewDB(t)

	users := repository.NewUserRepository(gormDB)
	user := &model.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x", EmailNotifications: true}
	require.NoError(t, users.Create(ctx, user))

	categories := NewCategoryService(repository.NewCategoryRepository(gormDB))
	_, err := categories.SeedDefaults(ctx)
	require.NoError(t, err)

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := NewExpenseService(repository.NewExpenseRepository(gormDB), users, categories, NewNotificationService(sender, applog.Discard()))
	svc.(*expenseService).now = func() time.Time { return now }

	return &expenseFixture{svc: svc, categories: categories, sender: sender, user: user, now: now}
}

func (f *expenseFixture) create(t *testing.T, desc string, amount int64, category, typ string, date time.Time) *model.Expense {
	t.Helper()
	e, _, err := f.svc.Create(context.Background(), f.user.ID, ExpenseInput{
		Description: desc,
		Amount:      decimal.NewFromInt(amount),
		Category:    category,
		Type:        typ,
		Date:        date,
	})
	require.NoError(t, err)
	return e
}

func TestExpenseService_SummaryScenario(t *testing.T) {
	f := newExpenseFixture(t)
	for _, amount := range []int64{100, 200, 300} {
		f.create(t, "meal", amount, "Food", "Expense", f.now)
	}
	f.create(t, "salary", 5000, "", "Income", f.now)

	summary, err := f.svc.Summary(context.Background(), f.user.ID)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(600).Equal(summary.Total))
	assert.Equal(t, int64(3), summary.Count)
	require.Len(t, summary.ByCategory, 1)
	assert.Equal(t, "Food", summary.ByCategory[0].Category)
	assert.True(t, decimal.NewFromInt(600).Equal(summary.ByCategory[0].Total))
	assert.Equal(t, int64(3), summary.ByCategory[0].Count)
	assert.Equal(t, model.ExpenseTypeExpense, summary.ByCategory[0].Type)
}

func TestExpenseService_SummaryTotalsMatchGroups(t *testing.T) {
	f := newExpenseFixture(t)
	f.create(t, "bus", 12, "Transportation", "", f.now)
	f.create(t, "misc", 7, "", "", f.now)
	f.create(t, "movie", 15, "Entertainment", "", f.now)
	f.create(t, "lunch", 9, "Food", "", f.now)

	summary, err := f.svc.Summary(context.Background(), f.user.ID)
	require.NoError(t, err)

	total := decimal.Zero
	var count int64
	names := []string{}
	for _, g := range summary.ByCategory {
		total = total.Add(g.Total)
		count += g.Count
		names = append(names, g.Category)
	}
	assert.True(t, total.Equal(summary.Total))
	assert.Equal(t, count, summary.Count)
	assert.Equal(t, []string{"Entertainment", "Food", "Transportation", "Uncategorized"}, names)
}

func TestExpenseService_EmptySummary(t *testing.T) {
	f := newExpenseFixture(t)
	summary, err := f.svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, summary.Total.IsZero())
	assert.Zero(t, summary.Count)
	assert.NotNil(t, summary.ByCategory)
	assert.Empty(t, summary.ByCategory)
}

func TestExpenseService_ListPriceDescScenario(t *testing.T) {
	f := newExpenseFixture(t)
	for i, amount := range []int64{10, 50, 30, 20, 40} {
		f.create(t, "item", amount, "Food", "", f.now.Add(-time.Duration(i)*time.Hour))
	}

	page, err := f.svc.List(context.Background(), f.user.ID, ExpenseQuery{Sort: "price-desc", Page: "1", PageSize: "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Expenses, 2)
	assert.True(t, decimal.NewFromInt(50).Equal(page.Expenses[0].Amount))
	assert.True(t, decimal.NewFromInt(40).Equal(page.Expenses[1].Amount))
}

func TestExpenseService_PageLength(t *testing.T) {
	f := newExpenseFixture(t)
	const total = 7
	for i := 0; i < total; i++ {
		f.create(t, fmt.Sprintf("item %d", i), int64(i+1), "Food", "", f.now.Add(-time.Duration(i)*time.Minute))
	}

	for pageSize := 1; pageSize <= 8; pageSize++ {
		for page := 1; page <= 9; page++ {
			got, err := f.svc.List(context.Background(), f.user.ID, ExpenseQuery{
				Page:     fmt.Sprint(page),
				PageSize: fmt.Sprint(pageSize),
			})
			require.NoError(t, err)
			want := total - (page-1)*pageSize
			if want > pageSize {
				want = pageSize
			}
			if want < 0 {
				want = 0
			}
			assert.Len(t, got.Expenses, want, "page=%d pageSize=%d", page, pageSize)
			assert.Equal(t, int64(total), got.Total)
		}
	}
}

func TestExpenseService_PageSizeAboveCap(t *testing.T) {
	f := newExpenseFixture(t)
	const total = MaxPageSize + 2
	for i := 0; i < total; i++ {
		f.create(t, fmt.Sprintf("item %d", i), int64(i+1), "Food", "", f.now.Add(-time.Duration(i)*time.Minute))
	}

	first, err := f.svc.List(context.Background(), f.user.ID, ExpenseQuery{Page: "1", PageSize: "150"})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, first.PageSize)
	assert.Len(t, first.Expenses, MaxPageSize)
	assert.Equal(t, int64(total), first.Total)

	second, err := f.svc.List(context.Background(), f.user.ID, ExpenseQuery{Page: "2", PageSize: "150"})
	require.NoError(t, err)
	assert.Len(t, second.Expenses, total-MaxPageSize)
}

func TestExpenseService_ListQueryNormalization(t *testing.T) {
	f := newExpenseFixture(t)
	f.create(t, "coffee", 4, "Food", "", f.now.AddDate(0, 0, -1))
	f.create(t, "train", 25, "Travel", "", f.now.AddDate(0, 0, -10))
	f.create(t, "hotel", 120, "Travel", "", f.now.AddDate(0, 0, -45))
	f.create(t, "salary", 3000, "", "Income", f.now.AddDate(0, 0, -3))

	tests := []struct {
		name         string
		query        ExpenseQuery
		wantTotal    int64
		wantPage     int
		wantPageSize int
	}{
		{"defaults", ExpenseQuery{}, 4, 1, 5},
		{"category All is no filter", ExpenseQuery{Category: "All"}, 4, 1, 5},
		{"category", ExpenseQuery{Category: "Travel"}, 2, 1, 5},
		{"type", ExpenseQuery{Type: "Income"}, 1, 1, 5},
		{"unknown type ignored", ExpenseQuery{Type: "Refund"}, 4, 1, 5},
		{"weekly", ExpenseQuery{Period: "Weekly"}, 2, 1, 5},
		{"monthly", ExpenseQuery{Period: "Monthly"}, 3, 1, 5},
		{"unknown period is unbounded", ExpenseQuery{Period: "Yearly"}, 4, 1, 5},
		{"search text", ExpenseQuery{Search: "TRAIN"}, 1, 1, 5},
		{"search amount", ExpenseQuery{Search: "120"}, 1, 1, 5},
		{"bad page", ExpenseQuery{Page: "abc", PageSize: "-3"}, 4, 1, 5},
		{"zero page", ExpenseQuery{Page: "0", PageSize: "0"}, 4, 1, 5},
		{"page size capped", ExpenseQuery{PageSize: "1000"}, 4, 1, 100},
		{"unknown sort", ExpenseQuery{Sort: "random"}, 4, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.List(context.Background(), f.user.ID, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantPageSize, page.PageSize)
		})
	}
}

func TestExpenseService_CreateValidation(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ExpenseInput
		want  string
	}{
		{"zero amount", ExpenseInput{Description: "x", Amount: decimal.Zero, Category: "Food"}, "Amount must be greater than 0"},
		{"negative amount", ExpenseInput{Description: "x", Amount: decimal.NewFromInt(-5), Category: "Food"}, "Amount must be greater than 0"},
		{"missing description", ExpenseInput{Description: "  ", Amount: decimal.NewFromInt(5)}, "Description is required"},
		{"bad type", ExpenseInput{Description: "x", Amount: decimal.NewFromInt(5), Type: "Refund"}, "Type must be Expense or Income"},
		{"unknown category", ExpenseInput{Description: "x", Amount: decimal.NewFromInt(5), Category: "Fod"}, `Invalid category. Did you mean "Food"?`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Create(ctx, f.user.ID, tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}

	page, err := f.svc.List(ctx, f.user.ID, ExpenseQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestExpenseService_CreateGetRoundTrip(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 1, 9, 15, 30, 123_456_789, time.FixedZone("IST", 5*3600+1800))

	created, result, err := f.svc.Create(ctx, f.user.ID, ExpenseInput{
		Description: " Groceries ",
		Amount:      decimal.RequireFromString("19.99"),
		Category:    "Food",
		Date:        date,
	})
	require.NoError(t, err)
	assert.Equal(t, NotificationResult{Sent: true, Message: "Email notification sent"}, result)

	got, err := f.svc.Get(ctx, f.user.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Description)
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Amount))
	assert.True(t, date.Truncate(time.Millisecond).Equal(got.Date))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Food", *got.Category)
	assert.Equal(t, model.ExpenseTypeExpense, got.Type)

	_, err = f.svc.Get(ctx, uuid.New(), created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	f.sender.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(m *notify.Message) bool {
		return m.Kind == notify.KindExpenseCreated && m.Expense.Amount == "19.99" && m.Expense.Category == "Food"
	}))
}

func TestExpenseService_DefaultsAndIncomeCategory(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()

	income, _, err := f.svc.Create(ctx, f.user.ID, ExpenseInput{Description: "salary", Amount: decimal.NewFromInt(10), Type: "Income", Category: "Food"})
	require.NoError(t, err)
	assert.Nil(t, income.Category)
	assert.True(t, f.now.Equal(income.Date))

	plain, _, err := f.svc.Create(ctx, f.user.ID, ExpenseInput{Description: "gift", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Nil(t, plain.Category)
	assert.Equal(t, model.ExpenseTypeExpense, plain.Type)
}

func TestExpenseService_PartialUpdate(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()
	original := f.create(t, "dinner", 40, "Food", "", f.now)

	updated, result, err := f.svc.Update(ctx, f.user.ID, original.ID, ExpenseInput{Amount: decimal.NewFromInt(55), Category: "Entertainment"})
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Equal(t, "dinner", updated.Description)
	assert.True(t, decimal.NewFromInt(55).Equal(updated.Amount))
	assert.Equal(t, "Entertainment", *updated.Category)
	assert.True(t, original.Date.Equal(updated.Date))

	updated, _, err = f.svc.Update(ctx, f.user.ID, original.ID, ExpenseInput{Description: "late dinner"})
	require.NoError(t, err)
	assert.Equal(t, "late dinner", updated.Description)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Entertainment", *updated.Category)

	updated, _, err = f.svc.Update(ctx, f.user.ID, original.ID, ExpenseInput{Amount: decimal.NewFromInt(-1), Type: "Income", Category: "Food"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(55).Equal(updated.Amount))
	assert.Equal(t, model.ExpenseTypeIncome, updated.Type)
	assert.Nil(t, updated.Category)

	_, _, err = f.svc.Update(ctx, f.user.ID, uuid.New(), ExpenseInput{Description: "x"})
	assert.True(t, apperrors.IsNotFound(err))

	_, _, err = f.svc.Update(ctx, f.user.ID, original.ID, ExpenseInput{Type: "Bogus"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestExpenseService_NotificationSkippedWhenDisabled(t *testing.T) {
	ctx := context.Background()
	gormDB := testutil.NewDB(t)
	users := repository.NewUserRepository(gormDB)
	user := &model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.UpdateFields(ctx, user.ID, map[string]interface{}{"email_notifications": false}))

	sender := new(MockSender)
	categories := NewCategoryService(repository.NewCategoryRepository(gormDB))
	svc := NewExpenseService(repository.NewExpenseRepository(gormDB), users, categories, NewNotificationService(sender, applog.Discard()))

	_, result, err := svc.Create(ctx, user.ID, ExpenseInput{Description: "tea", Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, NotificationResult{Skipped: true, Message: "Email notifications are disabled"}, result)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestExpenseService_DeleteCategoryUncategorizesExpenses(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()

	books, err := f.categories.Create(ctx, f.user.ID, "Books")
	require.NoError(t, err)
	e := f.create(t, "novel", 12, "Books", "", f.now)

	require.NoError(t, f.categories.Delete(ctx, f.user.ID, books.ID))

	got, err := f.svc.Get(ctx, f.user.ID, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)

	summary, err := f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, summary.ByCategory, 1)
	assert.Equal(t, model.UncategorizedLabel, summary.ByCategory[0].Category)

	list, err := f.categories.List(ctx, f.user.ID)
	require.NoError(t, err)
	for _, c := range list {
		assert.NotEqual(t, "Books", c.Name)
	}
}

func TestExpenseService_Delete(t *testing.T) {
	f := newExpenseFixture(t)
	ctx := context.Background()
	e := f.create(t, "snack", 2, "Food", "", f.now)

	assert.True(t, apperrors.IsNotFound(f.svc.Delete(ctx, uuid.New(), e.ID)))
	require.NoError(t, f.svc.Delete(ctx, f.user.ID, e.ID))
	assert.True(t, apperrors.IsNotFound(f.svc.Delete(ctx, f.user.ID, e.ID)))
}
