package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestPage(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 50},
		{"?page=3&limit=10", 3, 10},
		{"?page=0&limit=0", 1, 50},
		{"?page=-2&limit=-1", 1, 50},
		{"?page=abc&limit=xyz", 1, 50},
		{"?limit=500", 1, 100},
		{"?page=9223372036854775807&limit=100", MaxPage, 100},
		{"?page=99999999999999999999", 1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app := fiber.New()
			var page, limit int
			app.Get("/", func(c *fiber.Ctx) error {
				page, limit = Page(c, 50, 100)
				return nil
			})
			if _, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil)); err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("Page() = (%d, %d), want (%d, %d)", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
