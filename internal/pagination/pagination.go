// Package pagination implements the fetch-until-full-page contract
// (spec.md §4.6): a listing backed by a store that can return more rows
// than the caller is authorized to see must keep re-fetching past the
// filtered-out rows until it has a full page or exhausts the source,
// rather than returning a short page whenever authorization happens to
// filter out part of a batch.
//
// Grounded on the teacher's cursor style
// (internal/adapters/database/postgres/organization.postgresql.go:
// id > $lastID ordering, countPages/currentPage) generalized into a
// store-agnostic driver loop, since the teacher's own pagination never
// had to compose with a post-fetch authorization filter.
package pagination

import "context"

// Page is one fetched batch from the underlying store, before filtering.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// Fetcher retrieves the next page of raw items starting after cursor.
// cursor == "" means "from the start".
type Fetcher[T any] func(ctx context.Context, cursor string, limit int) (Page[T], error)

// Filter reports whether item should be included in the result, e.g. the
// authorization gate's CanIncludeInList check. It may be called many times
// per returned page, once per candidate row fetched along the way.
type Filter[T any] func(ctx context.Context, item T) (bool, error)

// Cursor extracts the resume cursor for an individual raw item, so that a
// page the caller stops in the middle of (because pageSize was reached
// before the raw page was exhausted) still resumes from the right row
// instead of skipping or repeating the untouched remainder.
type Cursor[T any] func(item T) string

// Result is what FetchUntilFullPage returns to the caller: a full page (or
// as full as the source allowed) plus the cursor to resume from.
type Result[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// FetchUntilFullPage drives fetch in a loop, applying filter to each raw
// item, and keeps pulling additional raw pages until either pageSize
// filtered items have been accumulated or the source is exhausted. This is
// the only way a filtered listing can honor a caller's requested page size
// without leaking "why is this page short" to the client.
//
// cursorOf must return a resume cursor for any raw item, used to compute an
// exact resume point when pageSize is reached partway through a raw page;
// relying on the raw page's own NextCursor in that case would silently
// drop the unprocessed remainder of the page.
func FetchUntilFullPage[T any](ctx context.Context, fetch Fetcher[T], filter Filter[T], cursorOf Cursor[T], startCursor string, pageSize int) (Result[T], error) {
	var out []T

	cursor := startCursor
	hasMore := true

	for len(out) < pageSize && hasMore {
		page, err := fetch(ctx, cursor, pageSize)
		if err != nil {
			return Result[T]{}, err
		}

		if len(page.Items) == 0 {
			hasMore = false
			break
		}

		stoppedEarly := false

		for _, item := range page.Items {
			ok, err := filter(ctx, item)
			if err != nil {
				return Result[T]{}, err
			}

			if ok {
				out = append(out, item)
			}

			if len(out) == pageSize {
				cursor = cursorOf(item)
				stoppedEarly = true

				break
			}
		}

		if stoppedEarly {
			hasMore = true
			break
		}

		cursor = page.NextCursor
		hasMore = page.HasMore
	}

	return Result[T]{Items: out, NextCursor: cursor, HasMore: hasMore}, nil
}
