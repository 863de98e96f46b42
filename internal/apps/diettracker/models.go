package diettracker

import (
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/completion"
)

const (
	maxMealNameLength = 100
	maxItemNameLength = 200
	maxPortionLength  = 100
)

// ItemFields are the editable attributes of a food item.
type ItemFields struct {
	Name     string
	Portion  string
	Calories int
	Proteins float64
	Carbs    float64
	Fat      float64
}

// --- DTOs ---

type ItemRequest struct {
	Name     string  `json:"name"`
	Portion  string  `json:"portion"`
	Calories int     `json:"calories"`
	Proteins float64 `json:"proteins"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Fields trims and validates the request.
func (r ItemRequest) Fields() (ItemFields, error) {
	f := ItemFields{
		Name:     strings.TrimSpace(r.Name),
		Portion:  strings.TrimSpace(r.Portion),
		Calories: r.Calories,
		Proteins: r.Proteins,
		Carbs:    r.Carbs,
		Fat:      r.Fat,
	}
	if f.Name == "" || len(f.Name) > maxItemNameLength || len(f.Portion) > maxPortionLength {
		return ItemFields{}, ErrInvalidItem
	}
	if f.Calories < 0 || !validMacro(f.Proteins) || !validMacro(f.Carbs) || !validMacro(f.Fat) {
		return ItemFields{}, ErrInvalidItem
	}
	return f, nil
}

func validMacro(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

type MealRequest struct {
	Name string `json:"name"`
}

func (r MealRequest) CleanName() (string, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" || len(name) > maxMealNameLength {
		return "", ErrInvalidMeal
	}
	return name, nil
}

type DoneRequest struct {
	Done *bool `json:"done"`
}

// SnapshotResponse is returned by every tracker endpoint: reads and, after a
// successful write, the state re-read from storage.
type SnapshotResponse struct {
	Authenticated bool `json:"authenticated"`
	Today         bool `json:"today"`
	completion.Summary
}
