package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns meals. Password is empty for accounts created through Google sign-in.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password      string    `gorm:"not null;default:''" json:"-"`
	GoogleSubject *string   `gorm:"size:255;uniqueIndex" json:"-"`
	AuthProvider  string    `gorm:"size:50;default:'email'" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
