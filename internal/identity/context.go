package identity

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserLocal is the Fiber locals key the JWT middleware stores the token under.
const UserLocal = "user"

// CurrentUserID extracts the caller from the verified JWT in context.
// ok is false for anonymous requests or tokens without a usable subject.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	token, ok := c.Locals(UserLocal).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(sub)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
