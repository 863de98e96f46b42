package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FoodItem belongs to exactly one meal. Nutrition values are per portion.
type FoodItem struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	MealID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"meal_id"`
	Name      string             `gorm:"size:200;not null" json:"name"`
	Portion   string             `gorm:"size:100" json:"portion"`
	Calories  int                `gorm:"not null;default:0" json:"calories"`
	Proteins  float64            `gorm:"not null;default:0" json:"proteins"`
	Carbs     float64            `gorm:"not null;default:0" json:"carbs"`
	Fat       float64            `gorm:"not null;default:0" json:"fat"`
	Done      []CompletionRecord `gorm:"foreignKey:FoodItemID" json:"done"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (i *FoodItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
