package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/chat_app/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const secret = "test-secret"

func TestParseToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		want    uuid.UUID
		wantErr bool
	}{
		{
			name: "Valid",
			token: func(t *testing.T) string {
				return issue(t, secret, time.Hour, user)
			},
			want: user.ID,
		},
		{
			name: "WrongSecret",
			token: func(t *testing.T) string {
				return issue(t, "other-secret", time.Hour, user)
			},
			wantErr: true,
		},
		{
			name: "Expired",
			token: func(t *testing.T) string {
				return issue(t, secret, -time.Minute, user)
			},
			wantErr: true,
		},
		{
			name: "Garbage",
			token: func(t *testing.T) string {
				return "not-a-token"
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(secret, tt.token(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseToken() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProtected(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}

	app := fiber.New()
	app.Get("/me", Protected(secret), func(c *fiber.Ctx) error {
		id, err := CurrentUserID(c)
		if err != nil {
			return err
		}
		return c.SendString(id.String())
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "Missing", wantStatus: 400},
		{name: "Invalid", header: "Bearer nope", wantStatus: 401},
		{name: "Valid", header: "Bearer " + issue(t, secret, time.Hour, user), wantStatus: 200, wantBody: user.ID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				b, _ := io.ReadAll(resp.Body)
				if string(b) != tt.wantBody {
					t.Errorf("body = %q, want %q", b, tt.wantBody)
				}
			}
		})
	}
}

func TestCurrentUserID_NoToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, err := CurrentUserID(c)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("CurrentUserID() error = %v, want ErrInvalidToken", err)
		}
		return nil
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/", nil)); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
}

func issue(t *testing.T, secret string, ttl time.Duration, user *models.User) string {
	t.Helper()
	token, err := IssueToken(secret, ttl, user)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}
