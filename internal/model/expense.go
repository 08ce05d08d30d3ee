package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseType distinguishes spending from income records.
type ExpenseType string

const (
	ExpenseTypeExpense ExpenseType = "Expense"
	ExpenseTypeIncome  ExpenseType = "Income"
)

// Valid reports whether t is a known record type.
func (t ExpenseType) Valid() bool {
	return t == ExpenseTypeExpense || t == ExpenseTypeIncome
}

func init() {
	// Amounts travel as JSON numbers for client compatibility.
	decimal.MarshalJSONWithoutQuotes = true
}

// UncategorizedLabel is reported for expenses whose category is null.
const UncategorizedLabel = "Uncategorized"

// Expense is a financial transaction owned by exactly one user.
type Expense struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID       `json:"userId" gorm:"type:char(36);not null;index"`
	Description string          `json:"description" gorm:"size:500;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Date        time.Time       `json:"date" gorm:"not null;index"`
	Category    *string         `json:"category" gorm:"size:100;index"`
	Type        ExpenseType     `json:"type" gorm:"type:varchar(20);not null;default:'Expense';index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CategoryName returns the category or the uncategorized label when it is null.
func (e *Expense) CategoryName() string {
	if e.Category == nil || *e.Category == "" {
		return UncategorizedLabel
	}
	return *e.Category
}

// BeforeCreate sets UUID before creating the record.
func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CategoryTotal is one row of the per-category summary.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
	Type     ExpenseType     `json:"type"`
}

// Summary aggregates a user's expense-typed records.
type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Count      int64           `json:"count"`
	ByCategory []CategoryTotal `json:"byCategory"`
}
