package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/estates-web/internal/auth"
)

// HomeHandler renders the authenticated landing page.
type HomeHandler struct{}

// NewHomeHandler returns a new handler instance.
func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Index handles GET /.
func (h *HomeHandler) Index(c *fiber.Ctx) error {
	data := fiber.Map{"Title": "Inicio"}
	if user, ok := auth.CurrentUser(c); ok {
		data["UserName"] = user.Name
	}
	return c.Render("index", data)
}
