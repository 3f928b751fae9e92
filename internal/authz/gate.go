// Package authz implements the authorization gate (spec.md §4.3): a
// two-phase check (can the actor see this resource at all, then can they
// perform the specific action), a no-existence-leak contract (a denied
// "can see" and a genuinely missing resource both surface as the same
// 404-shaped error), parent-namespace ancestry context for hierarchical
// permission checks, and batched N-way evaluation for list filtering.
//
// Like internal/cache, the teacher has no direct analogue for a pluggable
// authorization gate (components/ledger enforces access at the HTTP
// middleware layer, out of scope here per spec.md's Non-goals); this
// package is an original design against the spec's contract, using the
// teacher's error-taxonomy and span conventions throughout. See DESIGN.md.
package authz

import (
	"context"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mtelemetry"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// Action is a specific operation an actor may attempt on a resource.
type Action string

const (
	ActionCanSee          Action = "can_see"
	ActionCreateWarehouse Action = "create_warehouse"
	ActionCreateNamespace Action = "create_namespace"
	ActionCreateTable     Action = "create_table"
	ActionCreateView      Action = "create_view"
	ActionReadData        Action = "read_data"
	ActionWriteData       Action = "write_data"
	ActionCommit          Action = "commit"
	ActionDrop            Action = "drop"
	ActionRename          Action = "rename"
	ActionUpdateProperties Action = "update_properties"
	ActionListContents    Action = "list_contents"
	ActionManageGrants    Action = "manage_grants"
)

// ResourceKind identifies what Action applies to, used to render
// perr.ForbiddenError's "<Resource>ActionForbidden" type on the wire.
type ResourceKind string

const (
	ResourceWarehouse ResourceKind = "Warehouse"
	ResourceNamespace ResourceKind = "Namespace"
	ResourceTable     ResourceKind = "Table"
	ResourceView      ResourceKind = "View"
)

// Request is one authorization question: can principal perform action on
// the resource identified by resourceID, with ancestry giving the
// authorizer the parent-namespace chain for hierarchical grants (root
// first). ancestry is empty for a warehouse-level check.
type Request struct {
	Principal  string
	Kind       ResourceKind
	ResourceID string
	Action     Action
	Ancestry   []domain.NamespaceID
}

// Decision is one yes/no answer to a Request, returned in lockstep with the
// Requests slice passed to Authorizer.Evaluate.
type Decision struct {
	Allowed bool
}

// Authorizer is the pluggable decision backend. A concrete implementation
// (OpenFGA, Postgres-native role table, etc.) is out of scope per spec.md's
// Non-goals; the gate only requires this shape.
type Authorizer interface {
	// Evaluate returns exactly one Decision per Request, in the same order.
	// Returning a different number of decisions than requests is a
	// contract violation the gate turns into
	// perr.AuthorizationCountMismatchError, always a hard 500.
	Evaluate(ctx context.Context, requests []Request) ([]Decision, error)
}

// Gate wraps an Authorizer with the two-phase check and no-existence-leak
// contract every catalog operation must apply before touching a resource.
type Gate struct {
	authorizer Authorizer
}

// New builds a Gate over the given Authorizer.
func New(authorizer Authorizer) *Gate {
	return &Gate{authorizer: authorizer}
}

// Check runs the two-phase authorization contract for a single resource:
// first ActionCanSee, then (if that passes) the requested action. A can-see
// denial returns perr.EntityNotFoundError with Reason set to
// ReasonCannotSeeResource so the caller's audit log can distinguish it from
// a genuine absence, while the error presented to the client is identical
// either way — the no-existence-leak rule of spec.md §4.3/§7. A denial of
// the requested action after can-see passed returns perr.ForbiddenError.
//
// When the requested action is ActionCanSee itself, only the single phase
// runs.
func (g *Gate) Check(ctx context.Context, req Request) error {
	ctx, span := mtelemetry.Start(ctx, "authz.Check")
	defer span.End()

	canSeeReq := req
	canSeeReq.Action = ActionCanSee

	decisions, err := g.evaluate(ctx, []Request{canSeeReq})
	if err != nil {
		mtelemetry.HandleSpanError(span, "authz evaluate failed", err)
		return err
	}

	if !decisions[0].Allowed {
		return notFound(req)
	}

	if req.Action == ActionCanSee {
		return nil
	}

	decisions, err = g.evaluate(ctx, []Request{req})
	if err != nil {
		mtelemetry.HandleSpanError(span, "authz evaluate failed", err)
		return err
	}

	if !decisions[0].Allowed {
		return perr.ForbiddenError{
			EntityType:   string(req.Kind),
			ResourceKind: string(req.Kind),
			Action:       string(req.Action),
			Code:         "forbidden",
			Title:        "Forbidden",
			Message:      "The principal is not authorized to perform this action.",
		}
	}

	return nil
}

// CanIncludeInList runs only the can-see phase, returning a plain bool
// instead of an error, for use as a pagination.Filter in list endpoints:
// an item the actor cannot see is silently omitted, never surfaced as a
// per-item error.
func (g *Gate) CanIncludeInList(ctx context.Context, req Request) (bool, error) {
	req.Action = ActionCanSee

	decisions, err := g.evaluate(ctx, []Request{req})
	if err != nil {
		return false, err
	}

	return decisions[0].Allowed, nil
}

// EvaluateBatch runs can-see across many requests in one authorizer call,
// for building a list page's filter set with a single round trip instead
// of one per candidate row.
func (g *Gate) EvaluateBatch(ctx context.Context, reqs []Request) ([]Decision, error) {
	for i := range reqs {
		reqs[i].Action = ActionCanSee
	}

	return g.evaluate(ctx, reqs)
}

func (g *Gate) evaluate(ctx context.Context, reqs []Request) ([]Decision, error) {
	decisions, err := g.authorizer.Evaluate(ctx, reqs)
	if err != nil {
		return nil, err
	}

	if len(decisions) != len(reqs) {
		return nil, perr.AuthorizationCountMismatchError{Requested: len(reqs), Returned: len(decisions)}
	}

	return decisions, nil
}

func notFound(req Request) error {
	return perr.EntityNotFoundError{
		EntityType: string(req.Kind),
		Code:       "entity_not_found",
		Title:      "Entity Not Found",
		Message:    "No resource was found for the given identifier.",
		Reason:     perr.ReasonCannotSeeResource,
	}
}
