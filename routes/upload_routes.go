package routes

import (
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	uploads := api.Group("/uploads", protected)
	uploads.Get("/signature", h.GenerateUploadSignature)
}

func CallRoutes(api fiber.Router, h *handlers.Handler, protected fiber.Handler) {
	calls := api.Group("/calls", protected)
	calls.Get("/ice-servers", h.ICEServers)
}
