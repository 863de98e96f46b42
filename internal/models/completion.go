package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionRecord states that a food item was eaten on a calendar day.
// At most one row exists per (food_item_id, day).
type CompletionRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FoodItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completion_item_day,priority:1" json:"food_item_id"`
	Day        day.Key   `gorm:"not null;uniqueIndex:idx_completion_item_day,priority:2;index" json:"day"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *CompletionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (CompletionRecord) TableName() string {
	return "completion_records"
}
