package diettracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/completion"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidItem = errors.New("food item needs a name and non-negative nutrition values")
	ErrInvalidMeal = errors.New("meal name is required")
)

// TrackerService coordinates the completion engine with the store. Write
// operations report false when the caller is anonymous or the target does not
// belong to them; only storage faults come back as errors.
type TrackerService struct {
	store *MealStore
	loc   *time.Location
	now   func() time.Time

	// Identical concurrent writes to one (item, day) share a read-decide-write.
	inflight singleflight.Group
}

func NewTrackerService(store *MealStore, loc *time.Location) *TrackerService {
	if loc == nil {
		loc = time.Local
	}
	return &TrackerService{store: store, loc: loc, now: time.Now}
}

// Today is the calendar day of the service clock in its configured zone.
func (s *TrackerService) Today() day.Key {
	return day.Today(s.now, s.loc)
}

// Snapshot reads the user's meals and evaluates them for d.
func (s *TrackerService) Snapshot(ctx context.Context, userID uuid.UUID, d day.Key) (completion.Summary, error) {
	meals, err := s.store.ListMealsForUser(ctx, userID)
	if err != nil {
		return completion.Summary{}, err
	}
	return completion.Summarize(meals, d), nil
}

// Toggle flips the completion state of an item on d.
func (s *TrackerService) Toggle(ctx context.Context, userID, itemID uuid.UUID, d day.Key) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return s.decide(ctx, "toggle", userID, itemID, d, func(item *models.FoodItem) (completion.Command, bool) {
		return completion.Toggle(item, d), true
	})
}

// SetDone moves an item to the requested state on d. Asking for the state the
// item is already in succeeds without touching storage.
func (s *TrackerService) SetDone(ctx context.Context, userID, itemID uuid.UUID, d day.Key, done bool) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	op := "undo"
	if done {
		op = "done"
	}
	return s.decide(ctx, op, userID, itemID, d, func(item *models.FoodItem) (completion.Command, bool) {
		return completion.Set(item, d, done)
	})
}

func (s *TrackerService) decide(
	ctx context.Context,
	op string,
	userID, itemID uuid.UUID,
	d day.Key,
	command func(*models.FoodItem) (completion.Command, bool),
) (bool, error) {
	key := fmt.Sprintf("%s/%s/%s/%d", op, userID, itemID, d)
	// The shared write outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		item, err := s.store.FindItem(shared, userID, itemID)
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		cmd, ok := command(item)
		if !ok {
			return true, nil
		}
		changed, err := s.store.Apply(shared, cmd)
		if err != nil {
			return false, err
		}
		slog.Info("completion updated",
			"user_id", userID.String(),
			"item_id", itemID.String(),
			"day", d.String(),
			"action", cmd.Action.String(),
			"changed", changed,
		)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *TrackerService) AddItem(ctx context.Context, userID, mealID uuid.UUID, fields ItemFields) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if _, err := s.store.FindMeal(ctx, userID, mealID); err != nil {
		if errors.Is(err, ErrMealNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.store.CreateItem(ctx, mealID, fields); err != nil {
		return false, err
	}
	return true, nil
}

// EditItem replaces an item's attributes. Completion history is kept.
func (s *TrackerService) EditItem(ctx context.Context, userID, itemID uuid.UUID, fields ItemFields) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if _, err := s.store.FindItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		return false, err
	}
	return found(s.store.UpdateItem(ctx, itemID, fields))
}

func (s *TrackerService) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if _, err := s.store.FindItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		return false, err
	}
	return found(s.store.DeleteItem(ctx, itemID))
}

func (s *TrackerService) CreateMeal(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if _, err := s.store.CreateMeal(ctx, userID, name); err != nil {
		return false, err
	}
	return true, nil
}

func (s *TrackerService) RenameMeal(ctx context.Context, userID, mealID uuid.UUID, name string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return found(s.store.RenameMeal(ctx, userID, mealID, name))
}

// DeleteMeal removes the meal, its items and their whole completion history.
func (s *TrackerService) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return found(s.store.DeleteMeal(ctx, userID, mealID))
}

func found(err error) (bool, error) {
	if errors.Is(err, ErrMealNotFound) || errors.Is(err, ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
