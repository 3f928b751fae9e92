package authz

import (
	"context"
	"fmt"

	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// VersionSource resolves the current version of the resource an earlier
// Check's ancestry context was built from.
type VersionSource func(ctx context.Context) (int64, error)

// GuardAgainstStaleAncestry protects against the window between building a
// Request's Ancestry (spec.md §4.3) and actually applying the mutation it
// was authorized for: if the parent namespace has moved to a new version
// in between (a concurrent rename or reparent), the authorization decision
// may no longer be valid and the operation must be retried from the top
// rather than applied against a stale ancestry chain.
func GuardAgainstStaleAncestry(ctx context.Context, observedVersion int64, current VersionSource) error {
	latest, err := current(ctx)
	if err != nil {
		return err
	}

	if latest != observedVersion {
		return perr.EntityConflictError{
			Code:    "stale_parent_version",
			Title:   "Stale Parent Version",
			Message: fmt.Sprintf("parent namespace changed from version %d to %d during authorization", observedVersion, latest),
		}
	}

	return nil
}
