package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// TokenVerifier resolves a bearer token to a user id. Satisfied by *services.TokenService.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// AuthRequired is a Fiber middleware that rejects requests without a valid token.
// The Authorization header may carry the token bare or with a "Bearer " prefix.
func AuthRequired(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Access denied. No token provided.",
			})
		}

		userID, err := tokens.Verify(authHeader)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token.",
			})
		}

		c.SetUserContext(WithIdentity(c.UserContext(), Identity{UserID: userID}))
		return c.Next()
	}
}
