package apps

import (
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin defines the interface every feature module must implement.
type Plugin interface {
	// ID returns the unique module identifier, used in logs.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts module routes on the given Fiber group.
	// The group is prefixed with /api and carries no auth middleware: each
	// route picks middleware.JWTProtected or middleware.JWTOptional itself.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
