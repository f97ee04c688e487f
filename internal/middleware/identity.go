package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Identity is the authenticated caller attached to a request by AuthRequired.
type Identity struct {
	UserID string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IdentityFrom returns the identity of the request behind c, if it passed AuthRequired.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	return IdentityFromContext(c.UserContext())
}
