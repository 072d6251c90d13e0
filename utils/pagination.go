package utils

import "github.com/gofiber/fiber/v2"

// MaxPage bounds the page number so (page-1)*limit stays a valid offset.
const MaxPage = 100_000

// Page reads the page and limit query parameters. page starts at 1 and is
// capped at MaxPage, limit falls back to def when missing or invalid and is
// capped at maxLimit.
func Page(c *fiber.Ctx, def, maxLimit int) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit = c.QueryInt("limit", def)
	if limit < 1 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// TotalPages is the number of pages of size limit needed for total items.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
