package pagination_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/pagination"
)

// intSource simulates a raw store that always returns fixed-size batches of
// 4 items regardless of the caller's requested page size, the way a real
// SQL LIMIT/OFFSET-free keyset query would when the filter shrinks a raw
// batch well below what the caller asked for.
func intSource(items []int) pagination.Fetcher[int] {
	return func(_ context.Context, cursor string, _ int) (pagination.Page[int], error) {
		start := 0

		if cursor != "" {
			c, err := strconv.Atoi(cursor)
			if err != nil {
				return pagination.Page[int]{}, err
			}

			for i, v := range items {
				if v == c {
					start = i + 1
					break
				}
			}
		}

		end := start + 4
		hasMore := true

		if end >= len(items) {
			end = len(items)
			hasMore = false
		}

		if start >= len(items) {
			return pagination.Page[int]{}, nil
		}

		return pagination.Page[int]{
			Items:      append([]int{}, items[start:end]...),
			NextCursor: strconv.Itoa(items[end-1]),
			HasMore:    hasMore,
		}, nil
	}
}

func evenOnly(_ context.Context, item int) (bool, error) {
	return item%2 == 0, nil
}

func cursorOf(item int) string { return strconv.Itoa(item) }

func TestFetchUntilFullPage_StopsPartwayThroughRawPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	result, err := pagination.FetchUntilFullPage(context.Background(), intSource(items), evenOnly, cursorOf, "", 1)
	require.NoError(t, err)

	// The raw page is [1,2,3,4]; pageSize=1 is satisfied by item 2, so the
	// loop must stop there. The resume cursor must reflect item 2, not the
	// raw page's own NextCursor ("4") — using "4" would silently skip item
	// 3 (correctly rejected) and item 4 (an even number that should still
	// surface on the next call) was never evaluated.
	assert.Equal(t, []int{2}, result.Items)
	assert.Equal(t, "2", result.NextCursor)
	assert.True(t, result.HasMore)
}

func TestFetchUntilFullPage_ResumesWithoutLosingItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	first, err := pagination.FetchUntilFullPage(context.Background(), intSource(items), evenOnly, cursorOf, "", 1)
	require.NoError(t, err)

	second, err := pagination.FetchUntilFullPage(context.Background(), intSource(items), evenOnly, cursorOf, first.NextCursor, 1)
	require.NoError(t, err)

	// item 4 must surface on the very next call, proving the fix does not
	// drop the unconsumed remainder of the first raw page.
	assert.Equal(t, []int{4}, second.Items)
}

func TestFetchUntilFullPage_ExhaustsSource(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	result, err := pagination.FetchUntilFullPage(context.Background(), intSource(items), evenOnly, cursorOf, "", 100)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 6, 8}, result.Items)
	assert.False(t, result.HasMore)
}

func TestFetchUntilFullPage_EmptySource(t *testing.T) {
	result, err := pagination.FetchUntilFullPage(context.Background(), intSource(nil), evenOnly, cursorOf, "", 10)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.False(t, result.HasMore)
}

func TestPaginatedMapping_ReinsertionMovesKeyToTail(t *testing.T) {
	m := pagination.NewPaginatedMapping[string, int](0)

	m.Put("b", 2)
	m.Put("a", 1)
	m.Put("b", 22) // re-insertion: last-write-wins on both value and position

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, []int{1, 22}, m.Values())
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestTakeNAuthzApproved(t *testing.T) {
	approved := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2, 3}, pagination.TakeNAuthzApproved(approved, 3))
	assert.Equal(t, approved, pagination.TakeNAuthzApproved(approved, 10))
	assert.Equal(t, approved, pagination.TakeNAuthzApproved(approved, -1))
}
