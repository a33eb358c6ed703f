package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opx-exchange/auth-service/internal/domain"
	apperrors "github.com/opx-exchange/auth-service/pkg/util"
)

// RequireRole ensures the authenticated principal meets or exceeds the
// required role. Must run after AuthMiddleware.Handle.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(msgMissingToken)
		}
		if !principal.Role.AtLeast(required) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present without any role
// constraint.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized(msgMissingToken)
		}
		return c.Next()
	}
}
