package handlers

import (
	"strings"

	"github.com/anjiri1684/chat_app/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const searchLimit = 20

type AddContactRequest struct {
	ContactID string `json:"contactId" form:"contactId" validate:"required,uuid"`
}

// SearchUsers finds other users by username, full name or email.
func (h *Handler) SearchUsers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.JSON([]models.PublicUser{})
	}

	users, err := h.Store.SearchUsers(c.UserContext(), userID, query, searchLimit)
	if err != nil {
		return h.internal(c, err, "Failed to search users")
	}
	return c.JSON(publicUsers(users))
}

func (h *Handler) GetContacts(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	contacts, err := h.contacts(c, userID)
	if err != nil {
		return err
	}
	return c.JSON(contacts)
}

// contacts loads the caller's contacts with their live status.
func (h *Handler) contacts(c *fiber.Ctx, userID uuid.UUID) ([]models.PublicUser, error) {
	users, err := h.Store.Contacts(c.UserContext(), userID)
	if err != nil {
		return nil, h.internal(c, err, "Failed to fetch contacts")
	}
	contacts := publicUsers(users)

	online, err := h.onlineAmong(c, users)
	if err != nil {
		h.Logger.Warn("Could not read presence, using stored status", "user_id", userID, "error", err)
		return contacts, nil
	}
	for i := range contacts {
		if _, ok := online[contacts[i].ID]; ok {
			contacts[i].Status = models.StatusOnline
		} else {
			contacts[i].Status = models.StatusOffline
		}
	}
	return contacts, nil
}

func (h *Handler) onlineAmong(c *fiber.Ctx, users []models.User) (map[uuid.UUID]struct{}, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	online, err := h.Presence.Filter(c.UserContext(), ids)
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(online))
	for _, id := range online {
		set[id] = struct{}{}
	}
	return set, nil
}

func (h *Handler) AddContact(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req AddContactRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	contactID := uuid.MustParse(req.ContactID)
	if contactID == userID {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot add yourself as a contact")
	}

	ctx := c.UserContext()
	if _, err := h.Store.UserByID(ctx, contactID); err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return h.internal(c, err, "Failed to fetch user")
	}
	exists, err := h.Store.HasContact(ctx, userID, contactID)
	if err != nil {
		return h.internal(c, err, "Failed to check contacts")
	}
	if exists {
		return fiber.NewError(fiber.StatusBadRequest, "User is already a contact")
	}
	if err := h.Store.AddContact(ctx, userID, contactID); err != nil {
		return h.internal(c, err, "Failed to add contact")
	}

	contacts, err := h.contacts(c, userID)
	if err != nil {
		return err
	}
	return c.JSON(contacts)
}

func (h *Handler) RemoveContact(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	contactID, err := paramID(c, "contactId", "contact")
	if err != nil {
		return err
	}

	removed, err := h.Store.RemoveContact(c.UserContext(), userID, contactID)
	if err != nil {
		return h.internal(c, err, "Failed to remove contact")
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "Contact not found")
	}
	return c.JSON(fiber.Map{"message": "Contact removed"})
}

// OnlineContacts lists the ids of the caller's contacts that are online.
func (h *Handler) OnlineContacts(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.Store.Contacts(c.UserContext(), userID)
	if err != nil {
		return h.internal(c, err, "Failed to fetch contacts")
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	online, err := h.Presence.Filter(c.UserContext(), ids)
	if err != nil {
		return h.internal(c, err, "Failed to read presence")
	}
	if online == nil {
		online = []uuid.UUID{}
	}
	return c.JSON(online)
}
