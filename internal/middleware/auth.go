package middleware

import (
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg))
}

// JWTOptional lets requests without an Authorization header through as
// anonymous. A header that is present must still carry a valid token.
func JWTOptional(cfg *config.Config) fiber.Handler {
	protected := jwtware.New(jwtConfig(cfg))
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return protected(c)
	}
}

func jwtConfig(cfg *config.Config) jwtware.Config {
	return jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Name, Key: []byte(cfg.JWTSecret)},
		ContextKey: identity.UserLocal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
}
