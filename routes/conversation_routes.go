package routes

import (
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/gofiber/fiber/v2"
)

func ConversationRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	conversations := api.Group("/conversations", protected)
	conversations.Get("", h.GetConversations)
	conversations.Post("", h.CreateConversation)
	conversations.Post("/group", h.CreateGroup)
	conversations.Get("/:id", h.GetConversation)
	conversations.Delete("/:id", h.DeleteConversation)
}

func MessageRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	messages := api.Group("/messages", protected)
	messages.Post("", h.SendMessage)
	messages.Get("/:conversationId", h.GetMessages)
	messages.Put("/:messageId/read", h.MarkRead)
	messages.Put("/:messageId/delivered", h.MarkDelivered)
	messages.Delete("/:messageId", h.DeleteMessage)
}
