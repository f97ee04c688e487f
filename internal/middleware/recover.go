package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Recover turns a panic in a later handler into a 500 response. The error detail is
// included only when the panic value is an error.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			body := fiber.Map{"message": "Server error"}
			if panicErr, ok := r.(error); ok {
				body["error"] = panicErr.Error()
				log.Error().Err(panicErr).Str("path", c.Path()).Msg("recovered from panic")
			} else {
				log.Error().Str("panic", fmt.Sprint(r)).Str("path", c.Path()).Msg("recovered from panic")
			}
			err = c.Status(fiber.StatusInternalServerError).JSON(body)
		}()
		return c.Next()
	}
}
