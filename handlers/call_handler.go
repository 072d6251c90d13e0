package handlers

import "github.com/gofiber/fiber/v2"

// ICEServers returns the STUN/TURN servers a client should use for calls.
func (h *Handler) ICEServers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	servers, err := h.ICE.Servers(userID)
	if err != nil {
		return h.internal(c, err, "Failed to generate ICE servers")
	}
	return c.JSON(fiber.Map{"iceServers": servers})
}
