package diettracker

import (
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DietTrackerPlugin struct{}

func New() *DietTrackerPlugin {
	return &DietTrackerPlugin{}
}

func (p *DietTrackerPlugin) ID() string { return "diettracker" }

func (p *DietTrackerPlugin) Models() []interface{} {
	return []interface{}{
		&models.Meal{},
		&models.FoodItem{},
		&models.CompletionRecord{},
	}
}

func (p *DietTrackerPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewTrackerService(NewMealStore(db), cfg.Timezone)
	handler := NewTrackerHandler(svc)

	optional := middleware.JWTOptional(cfg)
	protected := middleware.JWTProtected(cfg)

	// Day view, empty for anonymous callers
	router.Get("/tracker", optional, handler.Get)

	// Completion
	router.Post("/items/:id/toggle", protected, handler.Toggle)
	router.Put("/items/:id/done", protected, handler.SetDone)

	// Item and meal editing
	router.Post("/meals/:id/items", protected, handler.AddItem)
	router.Put("/items/:id", protected, handler.EditItem)
	router.Delete("/items/:id", protected, handler.DeleteItem)
	router.Post("/meals", protected, handler.CreateMeal)
	router.Put("/meals/:id", protected, handler.RenameMeal)
	router.Delete("/meals/:id", protected, handler.DeleteMeal)
}
