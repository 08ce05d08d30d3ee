package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendwise/internal/model"
	"spendwise/internal/notify"
)

// overspendThreshold is the ratio to the monthly average that triggers a warning.
var overspendThreshold = decimal.RequireFromString("1.2")

var hundred = decimal.NewFromInt(100)

// Insights is the heuristic report on a user's spending.
type Insights struct {
	Insights     []string           `json:"insights"`
	Notification NotificationResult `json:"notification"`
}

func (s *expenseService) Insights(ctx context.Context, userID uuid.UUID) (*Insights, error) {
	records, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	lines := buildInsights(records, s.now().UTC())
	if len(lines) == 0 {
		return &Insights{
			Insights:     []string{},
			Notification: NotificationResult{Skipped: true, Message: "No insights to send"},
		}, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		user = nil
	}
	result := s.notifier.Notify(ctx, user, notify.Message{Kind: notify.KindInsights, Insights: lines})
	return &Insights{Insights: lines, Notification: result}, nil
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// buildInsights derives plain-language observations from all of a user's records.
func buildInsights(records []model.Expense, now time.Time) []string {
	var (
		spent, income decimal.Decimal
		count         int64
		byCategory    = map[string]decimal.Decimal{}
		order         []string
		byMonth       = map[string]decimal.Decimal{}
	)
	currentMonth := monthKey(now)

	for _, r := range records {
		if r.Type == model.ExpenseTypeIncome {
			income = income.Add(r.Amount)
			continue
		}
		spent = spent.Add(r.Amount)
		count++
		name := r.CategoryName()
		if _, ok := byCategory[name]; !ok {
			order = append(order, name)
		}
		byCategory[name] = byCategory[name].Add(r.Amount)
		byMonth[monthKey(r.Date.UTC())] = byMonth[monthKey(r.Date.UTC())].Add(r.Amount)
	}
	if count == 0 || !spent.IsPositive() {
		return nil
	}

	var out []string

	top := order[0]
	for _, name := range order[1:] {
		if byCategory[name].GreaterThan(byCategory[top]) {
			top = name
		}
	}
	share := byCategory[top].Div(spent).Mul(hundred)
	out = append(out, fmt.Sprintf("Your highest spending category is %s: %s (%s%% of your total spending).",
		top, byCategory[top].StringFixed(2), share.StringFixed(0)))

	current := byMonth[currentMonth]
	var previousTotal decimal.Decimal
	previousMonths := 0
	for key, total := range byMonth {
		if key < currentMonth {
			previousTotal = previousTotal.Add(total)
			previousMonths++
		}
	}
	if previousMonths > 0 {
		average := previousTotal.Div(decimal.NewFromInt(int64(previousMonths)))
		if current.GreaterThan(average.Mul(overspendThreshold)) {
			above := current.Sub(average).Div(average).Mul(hundred)
			out = append(out, fmt.Sprintf("Warning: you have spent %s this month, %s%% above your monthly average of %s.",
				current.StringFixed(2), above.StringFixed(0), average.StringFixed(2)))
		} else {
			out = append(out, fmt.Sprintf("This month's spending of %s is within your monthly average of %s.",
				current.StringFixed(2), average.StringFixed(2)))
		}
	}

	if current.IsPositive() {
		daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		projected := current.Div(decimal.NewFromInt(int64(now.Day()))).Mul(decimal.NewFromInt(int64(daysInMonth)))
		out = append(out, fmt.Sprintf("At this pace you will spend about %s by the end of the month.", projected.StringFixed(2)))
	}

	average := spent.Div(decimal.NewFromInt(count))
	out = append(out, fmt.Sprintf("Your average expense is %s across %d transactions.", average.StringFixed(2), count))

	if income.IsPositive() {
		ratio := spent.Div(income).Mul(hundred)
		out = append(out, fmt.Sprintf("You have spent %s%% of your income of %s.", ratio.StringFixed(0), income.StringFixed(2)))
	}
	return out
}
