package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/chat_app/database"
	"github.com/anjiri1684/chat_app/middleware"
	"github.com/anjiri1684/chat_app/models"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=50"`
	FullName string `json:"fullName" form:"fullName" validate:"required,max=255"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	FullName *string `json:"fullName" validate:"omitnil,required,max=255"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
}

func (r *RegisterRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *UpdateProfileRequest) normalize() {
	if r.Username != nil {
		*r.Username = strings.TrimSpace(*r.Username)
	}
	if r.FullName != nil {
		*r.FullName = strings.TrimSpace(*r.FullName)
	}
}

// AuthResponse is the user together with a freshly issued token.
type AuthResponse struct {
	models.User
	Token string `json:"token"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return h.internal(c, err, "Failed to hash password")
	}

	user := models.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashedPassword),
		Status:   models.StatusOffline,
		LastSeen: h.now(),
	}
	if err := h.Store.CreateUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fiber.NewError(fiber.StatusConflict, "User already exists")
		}
		return h.internal(c, err, "Failed to create user")
	}

	if h.Mailer != nil {
		go h.sendWelcome(user)
	}

	token, err := middleware.IssueToken(h.JWTSecret, h.JWTTTL, &user)
	if err != nil {
		return h.internal(c, err, "Failed to create token")
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{User: user, Token: token})
}

func (h *Handler) sendWelcome(user models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.Mailer.SendWelcome(ctx, user.FullName, user.Email); err != nil {
		h.Logger.Warn("Could not send welcome email", "user_id", user.ID, "error", err)
	}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	user, err := h.Store.UserByEmail(c.UserContext(), req.Email)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		return h.internal(c, err, "Failed to look up user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
	}

	token, err := middleware.IssueToken(h.JWTSecret, h.JWTTTL, user)
	if err != nil {
		return h.internal(c, err, "Failed to create token")
	}
	return c.JSON(AuthResponse{User: *user, Token: token})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.Store.UserByID(c.UserContext(), userID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return h.internal(c, err, "Failed to fetch user")
	}
	return c.JSON(user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	user, err := h.Store.UserByID(c.UserContext(), userID)
	if err != nil {
		if isNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return h.internal(c, err, "Failed to fetch user")
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}

	if err := h.Store.UpdateUser(c.UserContext(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fiber.NewError(fiber.StatusConflict, "Username already taken")
		}
		return h.internal(c, err, "Failed to update profile")
	}
	return c.JSON(user)
}
