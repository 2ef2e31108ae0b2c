package pagination

// Identifiable items expose the ID used as a cursor.
type Identifiable interface {
	EntityID() string
}

// CursorPage is the forward-only page returned by cursor searches.
type CursorPage[T any] struct {
	Data            []T     `json:"data"`
	Limit           int     `json:"limit"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
	NextCursor      *string `json:"nextCursor"`
	PreviousCursor  *string `json:"previousCursor"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// OffsetPage is the numbered page returned by offset searches.
type OffsetPage[T any] struct {
	Data            []T  `json:"data"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	PageSize        int  `json:"pageSize"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	StartIndex      int  `json:"startIndex"`
	EndIndex        int  `json:"endIndex"`
	ResultsOnPage   int  `json:"resultsOnPage"`
	IsFirstPage     bool `json:"isFirstPage"`
	IsLastPage      bool `json:"isLastPage"`
	NextPage        *int `json:"nextPage"`
	PreviousPage    *int `json:"previousPage"`
}

// BuildCursorPage assembles a cursor page from up to limit+1 fetched items.
// The extra item only signals that a next page exists and is not returned.
func BuildCursorPage[T Identifiable](cursor string, fetched []T, limit int) CursorPage[T] {
	items := fetched
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}

	page := CursorPage[T]{Data: items, Limit: limit}

	if len(items) > 0 {
		first := items[0].EntityID()
		last := items[len(items)-1].EntityID()
		page.StartCursor = &first
		page.EndCursor = &last

		if len(fetched) > limit {
			next := last
			page.NextCursor = &next
			page.HasNextPage = true
		}
	}

	if cursor != "" {
		previous := cursor
		page.PreviousCursor = &previous
		page.HasPreviousPage = true
	}

	return page
}

// BuildOffsetPage assembles an offset page. page is clamped to
// [1, totalPages] and limit is floored at 1.
func BuildOffsetPage[T any](items []T, totalItems, page, limit int) OffsetPage[T] {
	if totalItems < 0 {
		totalItems = 0
	}
	if limit < 1 {
		limit = 1
	}
	if items == nil {
		items = []T{}
	}

	totalPages := TotalPages(totalItems, limit)
	page = ClampPage(page, totalItems, limit)

	startIndex := (page - 1) * limit
	endIndex := startIndex + len(items) - 1
	if endIndex > totalItems-1 {
		endIndex = totalItems - 1
	}

	out := OffsetPage[T]{
		Data:            items,
		Page:            page,
		Limit:           limit,
		PageSize:        limit,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
		StartIndex:      startIndex,
		EndIndex:        endIndex,
		ResultsOnPage:   len(items),
		IsFirstPage:     page == 1,
		IsLastPage:      page == totalPages,
	}

	if out.HasNextPage {
		next := page + 1
		out.NextPage = &next
	}
	if out.HasPreviousPage {
		previous := page - 1
		out.PreviousPage = &previous
	}

	return out
}
