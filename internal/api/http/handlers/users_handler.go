package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opx-exchange/auth-service/internal/api/dto"
	"github.com/opx-exchange/auth-service/internal/service"
)

// UsersHandler exposes admin account listings.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// List handles GET /users. Admin role is enforced by the route guard.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, dto.NewUserResponse(user))
	}
	return c.JSON(out)
}
