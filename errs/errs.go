// Package errs defines the typed errors surfaced by the catalog services.
//
// Every error is a *goerrors.Error carrying a category (used for transport
// mapping) and a stable text code. Callers test for a kind with the Is*
// predicates, which see through wrapping.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every error built by this package.
const (
	CodeInvalidCursor     = "INVALID_CURSOR"
	CodeInvalidPage       = "INVALID_PAGE"
	CodeLimitExceeded     = "LIMIT_EXCEEDED"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeConflict          = "CONFLICT"
	CodeValidation        = "VALIDATION"
)

// InvalidCursor reports a cursor that is not a well-formed identifier.
func InvalidCursor(cursor string) error {
	return goerrors.New(fmt.Sprintf("invalid cursor %q", cursor), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeInvalidCursor).
		WithMetadata(map[string]any{"cursor": cursor})
}

// InvalidPage reports a page number below 1.
func InvalidPage(page int) error {
	return goerrors.New(fmt.Sprintf("invalid page %d: must be at least 1", page), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeInvalidPage).
		WithMetadata(map[string]any{"page": page})
}

// InvalidPageValue reports a page parameter that is not a number.
func InvalidPageValue(raw string) error {
	return goerrors.New(fmt.Sprintf("invalid page %q: must be a number", raw), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeInvalidPage).
		WithMetadata(map[string]any{"page": raw})
}

// LimitExceeded reports a limit outside [1, max].
func LimitExceeded(limit, max int) error {
	return goerrors.New(fmt.Sprintf("limit %d out of bounds: must be between 1 and %d", limit, max), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeLimitExceeded).
		WithMetadata(map[string]any{"limit": limit, "max": max})
}

// NotFound reports a missing entity.
func NotFound(entity, id string) error {
	return goerrors.New(fmt.Sprintf("%s %s not found", entity, id), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(CodeNotFound).
		WithMetadata(map[string]any{"entity": entity, "id": id})
}

// InsufficientStock reports a decrement that would take stock below zero.
func InsufficientStock(id string, requested, available int) error {
	return goerrors.New(fmt.Sprintf("insufficient stock for %s: requested %d, available %d", id, requested, available), goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(CodeInsufficientStock).
		WithMetadata(map[string]any{"id": id, "requested": requested, "available": available})
}

// Conflict reports a uniqueness violation.
func Conflict(entity, detail string) error {
	return goerrors.New(fmt.Sprintf("%s already exists: %s", entity, detail), goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(CodeConflict).
		WithMetadata(map[string]any{"entity": entity})
}

// Validation reports invalid input. The cause is kept as the source.
func Validation(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "validation failed").
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeValidation)
}

// Internal wraps an unexpected store or backend failure.
func Internal(err error, op string) error {
	if err == nil {
		return nil
	}
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, op)
}

// Code returns the text code of err, or "" for foreign errors.
func Code(err error) string {
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		return typed.TextCode
	}
	return ""
}

func IsInvalidCursor(err error) bool     { return Code(err) == CodeInvalidCursor }
func IsInvalidPage(err error) bool       { return Code(err) == CodeInvalidPage }
func IsLimitExceeded(err error) bool     { return Code(err) == CodeLimitExceeded }
func IsNotFound(err error) bool          { return Code(err) == CodeNotFound }
func IsInsufficientStock(err error) bool { return Code(err) == CodeInsufficientStock }
func IsConflict(err error) bool          { return Code(err) == CodeConflict }
func IsValidation(err error) bool        { return Code(err) == CodeValidation }

// IsBadRequest reports the input errors raised before any I/O.
func IsBadRequest(err error) bool {
	switch Code(err) {
	case CodeInvalidCursor, CodeInvalidPage, CodeLimitExceeded, CodeValidation:
		return true
	}
	return false
}

// StockShortfall returns the requested and available quantities carried by
// an insufficient stock error.
func StockShortfall(err error) (requested, available int, ok bool) {
	var typed *goerrors.Error
	if !errors.As(err, &typed) || typed.TextCode != CodeInsufficientStock {
		return 0, 0, false
	}
	requested, rok := typed.Metadata["requested"].(int)
	available, aok := typed.Metadata["available"].(int)
	return requested, available, rok && aok
}
