package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an authenticated user in the system.
type User struct {
	ID                 uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Username           string    `json:"username" gorm:"size:255;not null"`
	Email              string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash       string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	ProfilePicture     string    `json:"profilePicture" gorm:"size:512;not null;default:''"`
	EmailNotifications bool      `json:"emailNotifications" gorm:"not null;default:true"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
