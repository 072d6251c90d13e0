package handlers

import (
	"strings"

	"github.com/anjiri1684/chat_app/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	ParticipantID string   `json:"participantId" validate:"omitempty,uuid"`
	IsGroup       bool     `json:"isGroup"`
	GroupName     string   `json:"groupName" validate:"max=255"`
	Participants  []string `json:"participants" validate:"dive,uuid"`
}

type CreateGroupRequest struct {
	GroupName    string   `json:"groupName" validate:"required,max=255"`
	Participants []string `json:"participants" validate:"required,min=2,dive,uuid"`
}

func (h *Handler) GetConversations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	convs, err := h.Store.Conversations(c.UserContext(), userID)
	if err != nil {
		return h.internal(c, err, "Failed to fetch conversations")
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return c.JSON(convs)
}

func (h *Handler) GetConversation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	convID, err := paramID(c, "id", "conversation")
	if err != nil {
		return err
	}
	conv, err := h.Store.ConversationForParticipant(c.UserContext(), convID, userID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
		}
		return h.internal(c, err, "Failed to fetch conversation")
	}
	return c.JSON(conv)
}

// CreateConversation returns the existing one-on-one conversation with the
// participant or creates it. Group bodies are handed to CreateGroup.
func (h *Handler) CreateConversation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateConversationRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.IsGroup {
		return h.createGroup(c, userID, CreateGroupRequest{GroupName: req.GroupName, Participants: req.Participants})
	}
	if req.ParticipantID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "participantId is required")
	}
	otherID := uuid.MustParse(req.ParticipantID)
	if otherID == userID {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot start a conversation with yourself")
	}

	ctx := c.UserContext()
	existing, err := h.Store.DirectConversation(ctx, userID, otherID)
	if err == nil {
		return c.JSON(existing)
	}
	if !isNotFound(err) {
		return h.internal(c, err, "Failed to look up conversation")
	}

	users, err := h.Store.UsersByIDs(ctx, []uuid.UUID{userID, otherID})
	if err != nil {
		return h.internal(c, err, "Failed to fetch participants")
	}
	if len(users) != 2 {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}

	conv := models.Conversation{LastMessageTime: h.now()}
	for i := range users {
		conv.Participants = append(conv.Participants, &users[i])
	}
	if err := h.Store.CreateConversation(ctx, &conv); err != nil {
		return h.internal(c, err, "Failed to create conversation")
	}
	conv.Present()
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateGroupRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	return h.createGroup(c, userID, req)
}

func (h *Handler) createGroup(c *fiber.Ctx, adminID uuid.UUID, req CreateGroupRequest) error {
	name := strings.TrimSpace(req.GroupName)
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "groupName is required")
	}

	seen := map[uuid.UUID]struct{}{adminID: {}}
	ids := []uuid.UUID{adminID}
	for _, raw := range req.Participants {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "participants must be valid ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) < 3 {
		return fiber.NewError(fiber.StatusBadRequest, "A group needs at least two other participants")
	}

	ctx := c.UserContext()
	users, err := h.Store.UsersByIDs(ctx, ids)
	if err != nil {
		return h.internal(c, err, "Failed to fetch participants")
	}
	if len(users) != len(ids) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}

	conv := models.Conversation{
		IsGroup:         true,
		GroupName:       name,
		GroupAdminID:    &adminID,
		LastMessageTime: h.now(),
	}
	for i := range users {
		conv.Participants = append(conv.Participants, &users[i])
	}
	if err := h.Store.CreateConversation(ctx, &conv); err != nil {
		return h.internal(c, err, "Failed to create group")
	}
	conv.Present()
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// DeleteConversation removes the conversation, its messages and their media.
// Groups can only be deleted by their admin.
func (h *Handler) DeleteConversation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	convID, err := paramID(c, "id", "conversation")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	conv, err := h.Store.ConversationForParticipant(ctx, convID, userID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
		}
		return h.internal(c, err, "Failed to fetch conversation")
	}
	if conv.IsGroup && !conv.IsAdmin(userID) {
		return fiber.NewError(fiber.StatusForbidden, "Only the group admin can delete this group")
	}

	publicIDs, err := h.Store.DeleteConversation(ctx, convID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Conversation not found")
		}
		return h.internal(c, err, "Failed to delete conversation")
	}
	for _, id := range publicIDs {
		h.destroyMedia(c, id)
	}
	return c.JSON(fiber.Map{"message": "Conversation deleted"})
}

// destroyMedia deletes an asset, logging instead of failing the request.
func (h *Handler) destroyMedia(c *fiber.Ctx, publicID string) {
	if err := h.Media.Destroy(c.UserContext(), publicID); err != nil {
		h.Logger.Warn("Could not delete media asset", "public_id", publicID, "error", err)
	}
}
