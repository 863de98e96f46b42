package diettracker

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxShift = 3650

var errBadDay = errors.New("day must be YYYY-MM-DD and shift a small integer")

type TrackerHandler struct {
	service *TrackerService
}

func NewTrackerHandler(service *TrackerService) *TrackerHandler {
	return &TrackerHandler{service: service}
}

// Get returns the day view. Anonymous callers get an empty one.
func (h *TrackerHandler) Get(c *fiber.Ctx) error {
	d, err := h.selectedDay(c)
	if err != nil {
		return badRequest(c, err)
	}
	userID, _ := identity.CurrentUserID(c)
	return h.respond(c, fiber.StatusOK, userID, d)
}

func (h *TrackerHandler) Toggle(c *fiber.Ctx) error {
	userID, itemID, d, err := h.target(c)
	if err != nil {
		return err
	}
	ok, err := h.service.Toggle(c.UserContext(), userID, itemID, d)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

func (h *TrackerHandler) SetDone(c *fiber.Ctx) error {
	userID, itemID, d, err := h.target(c)
	if err != nil {
		return err
	}
	var req DoneRequest
	if err := c.BodyParser(&req); err != nil || req.Done == nil {
		return badRequest(c, errors.New("body must be {\"done\": true|false}"))
	}
	ok, err := h.service.SetDone(c.UserContext(), userID, itemID, d, *req.Done)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

func (h *TrackerHandler) AddItem(c *fiber.Ctx) error {
	userID, mealID, d, err := h.target(c)
	if err != nil {
		return err
	}

	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}
	fields, err := req.Fields()
	if err != nil {
		return badRequest(c, err)
	}

	added, err := h.service.AddItem(c.UserContext(), userID, mealID, fields)
	return h.finish(c, fiber.StatusCreated, userID, d, added, err)
}

func (h *TrackerHandler) EditItem(c *fiber.Ctx) error {
	userID, itemID, d, err := h.target(c)
	if err != nil {
		return err
	}

	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}
	fields, err := req.Fields()
	if err != nil {
		return badRequest(c, err)
	}

	ok, err := h.service.EditItem(c.UserContext(), userID, itemID, fields)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

func (h *TrackerHandler) DeleteItem(c *fiber.Ctx) error {
	userID, itemID, d, err := h.target(c)
	if err != nil {
		return err
	}
	ok, err := h.service.DeleteItem(c.UserContext(), userID, itemID)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

func (h *TrackerHandler) CreateMeal(c *fiber.Ctx) error {
	userID, ok := identity.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	d, err := h.selectedDay(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req MealRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}
	name, err := req.CleanName()
	if err != nil {
		return badRequest(c, err)
	}

	created, err := h.service.CreateMeal(c.UserContext(), userID, name)
	return h.finish(c, fiber.StatusCreated, userID, d, created, err)
}

func (h *TrackerHandler) RenameMeal(c *fiber.Ctx) error {
	userID, mealID, d, err := h.target(c)
	if err != nil {
		return err
	}

	var req MealRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}
	name, err := req.CleanName()
	if err != nil {
		return badRequest(c, err)
	}

	ok, err := h.service.RenameMeal(c.UserContext(), userID, mealID, name)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

func (h *TrackerHandler) DeleteMeal(c *fiber.Ctx) error {
	userID, mealID, d, err := h.target(c)
	if err != nil {
		return err
	}
	ok, err := h.service.DeleteMeal(c.UserContext(), userID, mealID)
	return h.finish(c, fiber.StatusOK, userID, d, ok, err)
}

// selectedDay resolves ?day=YYYY-MM-DD (default today) shifted by ?shift=N days.
func (h *TrackerHandler) selectedDay(c *fiber.Ctx) (day.Key, error) {
	base := h.service.Today()
	if raw := c.Query("day"); raw != "" {
		parsed, err := day.Parse(raw)
		if err != nil {
			return 0, errBadDay
		}
		base = parsed
	}

	shift := 0
	if raw := c.Query("shift"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < -maxShift || n > maxShift {
			return 0, errBadDay
		}
		shift = n
	}
	return base.Add(shift), nil
}

// target extracts the caller, the :id path parameter and the selected day.
// Failures come back as *fiber.Error for the app error handler to render.
func (h *TrackerHandler) target(c *fiber.Ctx) (uuid.UUID, uuid.UUID, day.Key, error) {
	userID, ok := identity.CurrentUserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, 0, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, 0, fiber.NewError(fiber.StatusNotFound, "Not found")
	}
	d, err := h.selectedDay(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return userID, id, d, nil
}

// finish maps a service outcome to a response: the fresh snapshot on success,
// 404 when nothing matched. Storage faults go to the app error handler, which
// logs them, reports them to Sentry and answers 500.
func (h *TrackerHandler) finish(c *fiber.Ctx, status int, userID uuid.UUID, d day.Key, ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("tracker write %s %s for user %s: %w", c.Method(), c.Route().Path, userID, err)
	}
	if !ok {
		return notFound(c)
	}
	return h.respond(c, status, userID, d)
}

func (h *TrackerHandler) respond(c *fiber.Ctx, status int, userID uuid.UUID, d day.Key) error {
	summary, err := h.service.Snapshot(c.UserContext(), userID, d)
	if err != nil {
		return fmt.Errorf("tracker read for user %s: %w", userID, err)
	}
	return c.Status(status).JSON(SnapshotResponse{
		Authenticated: userID != uuid.Nil,
		Today:         d == h.service.Today(),
		Summary:       summary,
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: err.Error(),
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Message: "Not found",
	})
}
