package handlers

import (
	"errors"

	"github.com/anjiri1684/chat_app/services"
	"github.com/gofiber/fiber/v2"
)

// GenerateUploadSignature signs a direct upload to the media store. kind
// selects the target folder and is either avatar or attachment.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	kind := c.Query("kind", "attachment")
	if kind != "avatar" && kind != "attachment" {
		return fiber.NewError(fiber.StatusBadRequest, "kind must be avatar or attachment")
	}

	sig, err := h.Media.Sign(kind)
	if err != nil {
		if errors.Is(err, services.ErrMediaNotConfigured) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Media uploads are not configured")
		}
		return h.internal(c, err, "Failed to sign upload params")
	}
	return c.JSON(sig)
}
