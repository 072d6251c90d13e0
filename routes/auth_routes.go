package routes

import (
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/me", protected, h.Me)
	auth.Put("/profile", protected, h.UpdateProfile)
	auth.Get("/search", protected, h.SearchUsers)
}
