// Package pagination validates pagination parameters and assembles cursor
// and offset page responses.
//
// Validation runs before any cache or store access: EnsureLimitWithinBounds,
// ComputeOffset, ParsePage and ParseCursor return the typed errors of the
// errs package. The builders are pure and operate on the fetched slice:
//
//	page := pagination.BuildCursorPage(cursor, fetched, limit)
//	page := pagination.BuildOffsetPage(items, total, page, limit)
//
// Cursor pages are forward-only. A cursor is the ID of the last returned
// item, and previousCursor/hasPreviousPage only mirror the incoming cursor.
package pagination
