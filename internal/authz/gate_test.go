package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/authz"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// fakeAuthorizer lets tests control exactly which requests are allowed, and
// optionally lie about the number of decisions it returns.
type fakeAuthorizer struct {
	allow      map[authz.Action]bool
	wrongCount bool
	err        error
}

func (f fakeAuthorizer) Evaluate(_ context.Context, reqs []authz.Request) ([]authz.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}

	decisions := make([]authz.Decision, len(reqs))
	for i, r := range reqs {
		decisions[i] = authz.Decision{Allowed: f.allow[r.Action]}
	}

	if f.wrongCount && len(decisions) > 0 {
		decisions = decisions[:len(decisions)-1]
	}

	return decisions, nil
}

func TestGate_Check_AllowsWhenBothPhasesPass(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{
		authz.ActionCanSee: true,
		authz.ActionDrop:   true,
	}})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceTable, Action: authz.ActionDrop})
	assert.NoError(t, err)
}

func TestGate_Check_CannotSee_LooksLikeNotFound(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{}})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceTable, Action: authz.ActionDrop})

	var notFound perr.EntityNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, perr.ReasonCannotSeeResource, notFound.Reason)
}

func TestGate_Check_CanSeeButForbidden(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{
		authz.ActionCanSee: true,
		// ActionDrop intentionally absent: can see, cannot drop.
	}})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceTable, Action: authz.ActionDrop})

	var forbidden perr.ForbiddenError
	require.True(t, errors.As(err, &forbidden))
}

func TestGate_Check_NoExistenceLeak_SameShapeEitherWay(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{}})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceNamespace, Action: authz.ActionDrop})

	status := perr.ToHTTPStatus(err)
	assert.Equal(t, 404, status)

	missing := perr.EntityNotFoundError{EntityType: "namespace", Reason: perr.ReasonResourceNotFound}
	_, deniedBody := perr.ToResponse(err)
	_, missingBody := perr.ToResponse(missing)
	assert.Equal(t, perr.ToHTTPStatus(missing), status)
	assert.Equal(t, missingBody.Error.Type, deniedBody.Error.Type)
}

func TestGate_CanIncludeInList(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{authz.ActionCanSee: true}})

	ok, err := gate.CanIncludeInList(context.Background(), authz.Request{Kind: authz.ResourceTable, Action: authz.ActionReadData})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGate_AuthorizerCountMismatch_IsHardFailure(t *testing.T) {
	gate := authz.New(fakeAuthorizer{allow: map[authz.Action]bool{authz.ActionCanSee: true}, wrongCount: true})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceTable, Action: authz.ActionDrop})

	var mismatch perr.AuthorizationCountMismatchError
	require.True(t, errors.As(err, &mismatch))
}

func TestAllowAllAuthorizer_AllowsEverything(t *testing.T) {
	gate := authz.New(authz.AllowAllAuthorizer{})

	err := gate.Check(context.Background(), authz.Request{Kind: authz.ResourceWarehouse, Action: authz.ActionManageGrants})
	assert.NoError(t, err)
}
