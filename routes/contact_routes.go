package routes

import (
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/gofiber/fiber/v2"
)

func ContactRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	contacts := api.Group("/contacts", protected)
	contacts.Get("/search", h.SearchUsers)
	contacts.Get("/online", h.OnlineContacts)
	contacts.Get("", h.GetContacts)
	contacts.Post("", h.AddContact)
	contacts.Delete("/:contactId", h.RemoveContact)
}
