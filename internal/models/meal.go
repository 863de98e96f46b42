package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meal groups the food items a user eats together (breakfast, lunch...).
type Meal struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string     `gorm:"size:100;not null" json:"name"`
	Position  int        `gorm:"default:0" json:"position"`
	Items     []FoodItem `gorm:"foreignKey:MealID" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
