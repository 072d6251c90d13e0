package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/anjiri1684/chat_app/database"
	"github.com/anjiri1684/chat_app/middleware"
	"github.com/anjiri1684/chat_app/models"
	"github.com/anjiri1684/chat_app/presence"
	"github.com/anjiri1684/chat_app/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Store is the persistence the HTTP handlers need.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	SearchUsers(ctx context.Context, exclude uuid.UUID, query string, limit int) ([]models.User, error)

	Contacts(ctx context.Context, userID uuid.UUID) ([]models.User, error)
	HasContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
	AddContact(ctx context.Context, userID, contactID uuid.UUID) error
	RemoveContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error)

	Conversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	ConversationForParticipant(ctx context.Context, convID, userID uuid.UUID) (*models.Conversation, error)
	IsParticipant(ctx context.Context, convID, userID uuid.UUID) (bool, error)
	DirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	DeleteConversation(ctx context.Context, convID uuid.UUID) ([]string, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	Messages(ctx context.Context, convID uuid.UUID, limit, offset int) ([]models.Message, int64, error)
	AddReceipt(ctx context.Context, convID, msgID, userID uuid.UUID, kind string, at time.Time) error
	DeleteMessage(ctx context.Context, msg *models.Message) error
}

// MediaStore signs client uploads and deletes stored assets.
type MediaStore interface {
	Sign(kind string) (services.UploadSignature, error)
	Destroy(ctx context.Context, publicID string) error
}

type Mailer interface {
	SendWelcome(ctx context.Context, fullName, email string) error
}

// Handler serves the REST API. Mailer may be nil.
type Handler struct {
	Store    Store
	Media    MediaStore
	Mailer   Mailer
	Presence presence.Tracker
	ICE      services.ICEConfig

	JWTSecret string
	JWTTTL    time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ErrorHandler renders every handler error as {"message": ...}. Errors that
// are not *fiber.Error are logged and answered with 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			logger.Error("Unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}

// internal logs err and answers 500 with message.
func (h *Handler) internal(c *fiber.Ctx, err error, message string) error {
	h.Logger.Error(message, "method", c.Method(), "path", c.Path(), "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, message)
}

// A normalizer tidies user input (trimming, case folding) so validation sees
// the values that will be stored.
type normalizer interface {
	normalize()
}

// parse decodes, normalizes and validates the request body into req.
func parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse request body")
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// currentUser resolves the caller's id from the verified token.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := middleware.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	return id, nil
}

// paramID parses the named route parameter as a uuid.
func paramID(c *fiber.Ctx, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s ID", what))
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
