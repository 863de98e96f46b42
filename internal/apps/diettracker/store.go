package diettracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/completion"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/identity"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMealNotFound = errors.New("meal not found")
	ErrItemNotFound = errors.New("food item not found")
)

// MealStore is the persistence side of the tracker: meals, items and the
// completion records attached to them.
type MealStore struct {
	db *gorm.DB
}

func NewMealStore(db *gorm.DB) *MealStore {
	return &MealStore{db: db}
}

// ListMealsForUser returns the user's meals with items and completion records
// loaded. An absent user owns nothing.
func (s *MealStore) ListMealsForUser(ctx context.Context, userID uuid.UUID) ([]models.Meal, error) {
	meals := []models.Meal{}
	if userID == uuid.Nil {
		return meals, nil
	}

	err := s.db.WithContext(ctx).
		Scopes(identity.OwnedBy(userID)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Items.Done").
		Order("position ASC, created_at ASC").
		Find(&meals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return meals, nil
}

func (s *MealStore) FindMeal(ctx context.Context, userID, mealID uuid.UUID) (*models.Meal, error) {
	var meal models.Meal
	err := s.db.WithContext(ctx).Scopes(identity.OwnedBy(userID)).First(&meal, "id = ?", mealID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meal: %w", err)
	}
	return &meal, nil
}

// FindItem loads an item with its completion records, provided the item
// belongs to one of userID's meals.
func (s *MealStore) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.FoodItem, error) {
	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Meal{}).Select("id").Where("user_id = ?", userID)

	var item models.FoodItem
	err := db.Preload("Done").
		Where("id = ? AND meal_id IN (?)", itemID, owned).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find food item: %w", err)
	}
	return &item, nil
}

// CreateCompletion records itemID as done on d. created is false when the
// record already existed; the unique index turns a duplicate into a no-op.
func (s *MealStore) CreateCompletion(ctx context.Context, itemID uuid.UUID, d day.Key) (created bool, err error) {
	record := models.CompletionRecord{FoodItemID: itemID, Day: d}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create completion: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteCompletions removes every record of itemID on d.
func (s *MealStore) DeleteCompletions(ctx context.Context, itemID uuid.UUID, d day.Key) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("food_item_id = ? AND day = ?", itemID, d).
		Delete(&models.CompletionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete completions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Apply executes an engine command. changed reports whether any row moved.
func (s *MealStore) Apply(ctx context.Context, cmd completion.Command) (changed bool, err error) {
	switch cmd.Action {
	case completion.ActionCreate:
		return s.CreateCompletion(ctx, cmd.FoodItemID, cmd.Day)
	case completion.ActionDelete:
		n, err := s.DeleteCompletions(ctx, cmd.FoodItemID, cmd.Day)
		return n > 0, err
	default:
		return false, fmt.Errorf("unknown completion action %d", cmd.Action)
	}
}

func (s *MealStore) CreateItem(ctx context.Context, mealID uuid.UUID, fields ItemFields) (*models.FoodItem, error) {
	item := models.FoodItem{
		MealID:   mealID,
		Name:     fields.Name,
		Portion:  fields.Portion,
		Calories: fields.Calories,
		Proteins: fields.Proteins,
		Carbs:    fields.Carbs,
		Fat:      fields.Fat,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create food item: %w", err)
	}
	return &item, nil
}

// UpdateItem overwrites every editable field, zero values included.
func (s *MealStore) UpdateItem(ctx context.Context, itemID uuid.UUID, fields ItemFields) error {
	result := s.db.WithContext(ctx).
		Model(&models.FoodItem{ID: itemID}).
		Select("name", "portion", "calories", "proteins", "carbs", "fat").
		Updates(models.FoodItem{
			Name:     fields.Name,
			Portion:  fields.Portion,
			Calories: fields.Calories,
			Proteins: fields.Proteins,
			Carbs:    fields.Carbs,
			Fat:      fields.Fat,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update food item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *MealStore) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("food_item_id = ?", itemID).Delete(&models.CompletionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete completions: %w", err)
		}
		result := tx.Delete(&models.FoodItem{}, "id = ?", itemID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete food item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

// CreateMeal appends a meal after the user's existing ones.
func (s *MealStore) CreateMeal(ctx context.Context, userID uuid.UUID, name string) (*models.Meal, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Meal{}).Scopes(identity.OwnedBy(userID)).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count meals: %w", err)
	}

	meal := models.Meal{UserID: userID, Name: name, Position: int(count)}
	if err := db.Create(&meal).Error; err != nil {
		return nil, fmt.Errorf("failed to create meal: %w", err)
	}
	return &meal, nil
}

func (s *MealStore) RenameMeal(ctx context.Context, userID, mealID uuid.UUID, name string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Meal{}).
		Scopes(identity.OwnedBy(userID)).
		Where("id = ?", mealID).
		Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename meal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMealNotFound
	}
	return nil
}

// DeleteMeal removes a meal with its items and their completion records.
func (s *MealStore) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal models.Meal
		if err := tx.Scopes(identity.OwnedBy(userID)).First(&meal, "id = ?", mealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMealNotFound
			}
			return fmt.Errorf("failed to find meal: %w", err)
		}

		items := tx.Model(&models.FoodItem{}).Select("id").Where("meal_id = ?", meal.ID)
		if err := tx.Where("food_item_id IN (?)", items).Delete(&models.CompletionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete completions: %w", err)
		}
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&models.FoodItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete food items: %w", err)
		}
		return tx.Delete(&meal).Error
	})
}
