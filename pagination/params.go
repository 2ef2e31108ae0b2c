package pagination

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/errs"
)

// Limits bounds page sizes.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock limits: 20 per page, at most 100.
func DefaultLimits() Limits {
	return Limits{Default: 20, Max: 100}
}

// EnsureLimitWithinBounds rejects limits outside [1, max].
func EnsureLimitWithinBounds(limit, max int) error {
	if limit < 1 || limit > max {
		return errs.LimitExceeded(limit, max)
	}
	return nil
}

// Resolve substitutes the default for an unset (zero) limit and validates
// the result.
func (l Limits) Resolve(limit int) (int, error) {
	if limit == 0 {
		limit = l.Default
	}
	if err := EnsureLimitWithinBounds(limit, l.Max); err != nil {
		return 0, err
	}
	return limit, nil
}

// ComputeOffset returns the normalized page and its offset. A zero page
// means the first page; negative pages are rejected.
func ComputeOffset(page, limit int) (normalizedPage, offset int, err error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, errs.InvalidPage(page)
	}
	return page, (page - 1) * limit, nil
}

// ParsePage parses a raw page parameter. An empty value is the first page.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.InvalidPageValue(raw)
	}
	if page < 1 {
		return 0, errs.InvalidPage(page)
	}
	return page, nil
}

// CursorValidator reports whether a cursor is a well-formed identifier and
// returns it in the form the store sorts IDs by.
type CursorValidator func(cursor string) (canonical string, ok bool)

// UUIDCursor accepts hyphenated UUIDs in either case and returns them
// lowercased, the form IDs are stored and compared in.
func UUIDCursor(cursor string) (string, bool) {
	if len(cursor) != 36 {
		return "", false
	}
	id, err := uuid.Parse(cursor)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// ParseCursor validates a non-empty cursor and returns its canonical form.
// An empty cursor means the first page and is always accepted.
func ParseCursor(cursor string, valid CursorValidator) (string, error) {
	if cursor == "" {
		return "", nil
	}
	if valid == nil {
		valid = UUIDCursor
	}
	canonical, ok := valid(cursor)
	if !ok {
		return "", errs.InvalidCursor(cursor)
	}
	return canonical, nil
}

// ClampPage bounds page to [1, totalPages] where totalPages is derived from
// totalItems and limit.
func ClampPage(page, totalItems, limit int) int {
	totalPages := TotalPages(totalItems, limit)
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// TotalPages is max(1, ceil(totalItems/limit)) with limit floored at 1.
func TotalPages(totalItems, limit int) int {
	if limit < 1 {
		limit = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}
	pages := (totalItems + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}
