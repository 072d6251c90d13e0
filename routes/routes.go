package routes

import (
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/anjiri1684/chat_app/middleware"
	"github.com/anjiri1684/chat_app/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts the REST API under /api, the socket endpoint at /ws and
// the health and metrics endpoints.
func Register(app *fiber.App, h *handlers.Handler, hub *websocket.Hub) {
	protected := middleware.Protected(h.JWTSecret)

	api := app.Group("/api")
	AuthRoutes(api, h, protected)
	ConversationRoutes(api, h, protected)
	MessageRoutes(api, h, protected)
	ContactRoutes(api, h, protected)
	UploadRoutes(api, h, protected)
	CallRoutes(api, h, protected)

	app.Use("/ws", handlers.RequireUpgrade)
	app.Get("/ws", h.ServeWs(hub))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
