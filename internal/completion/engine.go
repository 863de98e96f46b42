// Package completion computes per-day completion state and aggregates over a
// snapshot of meals. It never reads or writes storage: callers pass the viewed
// day explicitly and execute the commands it returns.
package completion

import (
	"math"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/google/uuid"
)

// State of one food item on one day.
type State int

const (
	Pending State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "pending"
}

// Action is what a Command asks the store to do.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Command is an intent for the completion store. ActionDelete removes every
// record matching (FoodItemID, Day), not just one.
type Command struct {
	Action     Action
	FoodItemID uuid.UUID
	Day        day.Key
}

type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type Nutrition struct {
	Calories int     `json:"calories"`
	Proteins float64 `json:"proteins"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (n *Nutrition) add(item *models.FoodItem) {
	n.Calories += item.Calories
	n.Proteins += item.Proteins
	n.Carbs += item.Carbs
	n.Fat += item.Fat
}

// IsCompleted reports whether item has a record for d.
func IsCompleted(item *models.FoodItem, d day.Key) bool {
	for i := range item.Done {
		if item.Done[i].Day == d {
			return true
		}
	}
	return false
}

func StateOf(item *models.FoodItem, d day.Key) State {
	if IsCompleted(item, d) {
		return Done
	}
	return Pending
}

// Toggle flips the item's state for d.
func Toggle(item *models.FoodItem, d day.Key) Command {
	if IsCompleted(item, d) {
		return Command{Action: ActionDelete, FoodItemID: item.ID, Day: d}
	}
	return Command{Action: ActionCreate, FoodItemID: item.ID, Day: d}
}

// Set returns the command moving item to the requested state on d.
// ok is false when the item is already there.
func Set(item *models.FoodItem, d day.Key, done bool) (cmd Command, ok bool) {
	if IsCompleted(item, d) == done {
		return Command{}, false
	}
	return Toggle(item, d), true
}

func MealProgress(meal *models.Meal, d day.Key) Progress {
	p := Progress{Total: len(meal.Items)}
	for i := range meal.Items {
		if IsCompleted(&meal.Items[i], d) {
			p.Completed++
		}
	}
	return p
}

// DayProgress is the rounded percentage of completed items across meals,
// 0 when there are no items at all.
func DayProgress(meals []models.Meal, d day.Key) int {
	var total Progress
	for i := range meals {
		p := MealProgress(&meals[i], d)
		total.Completed += p.Completed
		total.Total += p.Total
	}
	return percent(total)
}

func percent(p Progress) int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
}

// MealCalories sums item calories, restricted to items completed on d when
// onlyCompleted is set.
func MealCalories(meal *models.Meal, d day.Key, onlyCompleted bool) int {
	sum := 0
	for i := range meal.Items {
		item := &meal.Items[i]
		if onlyCompleted && !IsCompleted(item, d) {
			continue
		}
		sum += item.Calories
	}
	return sum
}

// DayNutrition totals the nutrition of every item completed on d.
func DayNutrition(meals []models.Meal, d day.Key) Nutrition {
	var n Nutrition
	for i := range meals {
		for j := range meals[i].Items {
			item := &meals[i].Items[j]
			if IsCompleted(item, d) {
				n.add(item)
			}
		}
	}
	return n
}
