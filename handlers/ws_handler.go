package handlers

import (
	"context"
	"time"

	"github.com/anjiri1684/chat_app/middleware"
	"github.com/anjiri1684/chat_app/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const authWait = 10 * time.Second

type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// RequireUpgrade rejects plain HTTP requests to the socket endpoint.
func RequireUpgrade(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// ServeWs authenticates a socket and hands it to hub. The token comes from
// the token query parameter or, failing that, a first {"type":"auth"} frame.
func (h *Handler) ServeWs(hub *websocket.Hub) fiber.Handler {
	return websocketcontrib.New(func(conn *websocketcontrib.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.SetReadDeadline(time.Now().Add(authWait))
			var auth authFrame
			if err := conn.ReadJSON(&auth); err != nil || auth.Type != "auth" {
				h.Logger.Warn("WebSocket auth failed: invalid or missing auth message", "error", err)
				h.closeWithError(conn, "Invalid or missing auth message")
				return
			}
			token = auth.Token
		}

		userID, err := middleware.ParseToken(h.JWTSecret, token)
		if err != nil {
			h.Logger.Warn("WebSocket auth failed: invalid token", "error", err)
			h.closeWithError(conn, "Invalid token")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		user, err := h.Store.UserByID(ctx, userID)
		cancel()
		if err != nil {
			if !isNotFound(err) {
				h.Logger.Error("WebSocket auth failed: user lookup", "user_id", userID, "error", err)
			}
			h.closeWithError(conn, "User not found")
			return
		}

		h.Logger.Info("WebSocket client authenticated", "user_id", userID)
		hub.Serve(conn, *user)
	})
}

func (h *Handler) closeWithError(conn *websocketcontrib.Conn, message string) {
	_ = conn.WriteJSON(fiber.Map{
		"event": websocket.EventError,
		"data":  fiber.Map{"message": message},
	})
	_ = conn.Close()
}
