package handlers

import (
	"strings"

	"github.com/anjiri1684/chat_app/models"
	"github.com/anjiri1684/chat_app/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type SendMessageRequest struct {
	ConversationID string `json:"conversationId" form:"conversationId" validate:"required,uuid"`
	Content        string `json:"content" form:"content" validate:"max=10000"`
	MessageType    string `json:"messageType" form:"messageType" validate:"omitempty,oneof=text image file audio video"`
	ReplyTo        string `json:"replyTo" form:"replyTo" validate:"omitempty,uuid"`
	FileURL        string `json:"fileUrl" form:"fileUrl" validate:"omitempty,url"`
	FileName       string `json:"fileName" form:"fileName" validate:"max=255"`
	FileSize       int64  `json:"fileSize" form:"fileSize" validate:"gte=0"`
	FilePublicID   string `json:"filePublicId" form:"filePublicId" validate:"max=255"`
}

// MessagePage is one page of a conversation's history.
type MessagePage struct {
	Messages    []models.Message `json:"messages"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int64            `json:"total"`
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req SendMessageRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	convID := uuid.MustParse(req.ConversationID)

	ctx := c.UserContext()
	if err := h.requireParticipant(c, convID, userID); err != nil {
		return err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.FileURL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message content or file is required")
	}

	msg := models.Message{
		ConversationID: convID,
		SenderID:       userID,
		Content:        content,
		MessageType:    req.MessageType,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
		FilePublicID:   req.FilePublicID,
		CreatedAt:      h.now(),
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageText
		if msg.FileURL != "" {
			msg.MessageType = models.MessageFile
		}
	}

	if req.ReplyTo != "" {
		replyID := uuid.MustParse(req.ReplyTo)
		target, err := h.Store.MessageByID(ctx, replyID)
		if err != nil && !isNotFound(err) {
			return h.internal(c, err, "Failed to fetch reply target")
		}
		if err != nil || target.ConversationID != convID {
			return fiber.NewError(fiber.StatusBadRequest, "Reply target must be a message in this conversation")
		}
		msg.ReplyToID = &replyID
	}

	if err := h.Store.CreateMessage(ctx, &msg); err != nil {
		return h.internal(c, err, "Failed to send message")
	}

	created, err := h.Store.MessageByID(ctx, msg.ID)
	if err != nil {
		return h.internal(c, err, "Failed to load message")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetMessages pages back from the newest message; each page is returned
// oldest first.
func (h *Handler) GetMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	convID, err := paramID(c, "conversationId", "conversation")
	if err != nil {
		return err
	}
	if err := h.requireParticipant(c, convID, userID); err != nil {
		return err
	}

	page, limit := utils.Page(c, defaultPageSize, maxPageSize)
	msgs, total, err := h.Store.Messages(c.UserContext(), convID, limit, (page-1)*limit)
	if err != nil {
		return h.internal(c, err, "Failed to fetch messages")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return c.JSON(MessagePage{
		Messages:    msgs,
		TotalPages:  utils.TotalPages(total, limit),
		CurrentPage: page,
		Total:       total,
	})
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	return h.addReceipt(c, models.ReceiptRead)
}

func (h *Handler) MarkDelivered(c *fiber.Ctx) error {
	return h.addReceipt(c, models.ReceiptDelivered)
}

func (h *Handler) addReceipt(c *fiber.Ctx, kind string) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	msgID, err := paramID(c, "messageId", "message")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	msg, err := h.Store.MessageByID(ctx, msgID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Message not found")
		}
		return h.internal(c, err, "Failed to fetch message")
	}
	if err := h.requireParticipant(c, msg.ConversationID, userID); err != nil {
		return err
	}

	if err := h.Store.AddReceipt(ctx, msg.ConversationID, msgID, userID, kind, h.now()); err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Message not found")
		}
		return h.internal(c, err, "Failed to update message")
	}
	updated, err := h.Store.MessageByID(ctx, msgID)
	if err != nil {
		return h.internal(c, err, "Failed to load message")
	}
	return c.JSON(updated)
}

// DeleteMessage lets the sender delete a message and its attachment.
func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	msgID, err := paramID(c, "messageId", "message")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	msg, err := h.Store.MessageByID(ctx, msgID)
	if err != nil && !isNotFound(err) {
		return h.internal(c, err, "Failed to fetch message")
	}
	if err != nil || msg.SenderID != userID {
		return fiber.NewError(fiber.StatusNotFound, "Message not found or unauthorized")
	}

	if err := h.Store.DeleteMessage(ctx, msg); err != nil {
		return h.internal(c, err, "Failed to delete message")
	}
	if msg.FilePublicID != "" {
		h.destroyMedia(c, msg.FilePublicID)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

func (h *Handler) requireParticipant(c *fiber.Ctx, convID, userID uuid.UUID) error {
	ok, err := h.Store.IsParticipant(c.UserContext(), convID, userID)
	if err != nil {
		return h.internal(c, err, "Failed to check conversation access")
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
	}
	return nil
}
