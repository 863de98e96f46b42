package completion

import (
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/google/uuid"
)

type ItemSummary struct {
	ID       uuid.UUID `json:"id"`
	MealID   uuid.UUID `json:"meal_id"`
	Name     string    `json:"name"`
	Portion  string    `json:"portion"`
	Calories int       `json:"calories"`
	Proteins float64   `json:"proteins"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
	Done     bool      `json:"done"`
}

type MealSummary struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Progress      Progress      `json:"progress"`
	CaloriesDone  int           `json:"calories_done"`
	CaloriesTotal int           `json:"calories_total"`
	Items         []ItemSummary `json:"items"`
}

// Summary is the read-only view of one day handed to presentation.
type Summary struct {
	Day       day.Key       `json:"day"`
	Progress  int           `json:"progress"`
	Nutrition Nutrition     `json:"nutrition"`
	Meals     []MealSummary `json:"meals"`
}

// Summarize evaluates every aggregate for d in a single pass.
func Summarize(meals []models.Meal, d day.Key) Summary {
	s := Summary{Day: d, Meals: make([]MealSummary, 0, len(meals))}
	var total Progress

	for i := range meals {
		meal := &meals[i]
		ms := MealSummary{
			ID:    meal.ID,
			Name:  meal.Name,
			Items: make([]ItemSummary, 0, len(meal.Items)),
		}
		for j := range meal.Items {
			item := &meal.Items[j]
			done := IsCompleted(item, d)
			ms.Progress.Total++
			ms.CaloriesTotal += item.Calories
			if done {
				ms.Progress.Completed++
				ms.CaloriesDone += item.Calories
				s.Nutrition.add(item)
			}
			ms.Items = append(ms.Items, ItemSummary{
				ID:       item.ID,
				MealID:   item.MealID,
				Name:     item.Name,
				Portion:  item.Portion,
				Calories: item.Calories,
				Proteins: item.Proteins,
				Carbs:    item.Carbs,
				Fat:      item.Fat,
				Done:     done,
			})
		}
		total.Completed += ms.Progress.Completed
		total.Total += ms.Progress.Total
		s.Meals = append(s.Meals, ms)
	}

	s.Progress = percent(total)
	return s
}
