package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCategoryNames is the shared set inserted by the seeder, in insertion order.
var DefaultCategoryNames = []string{
	"Food",
	"Transportation",
	"Entertainment",
	"Shopping",
	"Utilities",
	"Health",
	"Education",
	"Travel",
	"Housing",
	"Other",
}

// Category is a named bucket for expenses. A nil UserID marks a shared default
// category visible to every user; otherwise the category is private to its owner.
type Category struct {
	ID        uuid.UUID  `json:"_id" gorm:"type:char(36);primaryKey"`
	Name      string     `json:"name" gorm:"size:100;not null;index"`
	UserID    *uuid.UUID `json:"userId,omitempty" gorm:"type:char(36);index"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Shared reports whether the category belongs to the default set.
func (c *Category) Shared() bool {
	return c.UserID == nil
}

// BeforeCreate sets UUID before creating the record.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
