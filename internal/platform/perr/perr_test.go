package perr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/platform/perr"
)

func TestTranslate_EntityNotFound(t *testing.T) {
	err := perr.Translate(perr.ErrEntityNotFound, "tabular")

	var notFound perr.EntityNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "tabular", notFound.EntityType)
	assert.Equal(t, perr.ReasonResourceNotFound, notFound.Reason)
}

func TestTranslate_ConcurrentUpdate(t *testing.T) {
	err := perr.Translate(perr.ErrConcurrentUpdate, "tabular")

	var conflict perr.ConcurrentUpdateError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "tabular", conflict.EntityType)
}

func TestTranslate_Unrecognized_PassesThrough(t *testing.T) {
	original := errors.New("some unrelated error")

	assert.Same(t, original, perr.Translate(original, "tabular"))
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", perr.EntityNotFoundError{Message: "x"}, http.StatusNotFound},
		{"conflict", perr.EntityConflictError{Message: "x"}, http.StatusConflict},
		{"concurrent update", perr.ConcurrentUpdateError{Err: errors.New("x")}, http.StatusConflict},
		{"validation", perr.ValidationError{Message: "x"}, http.StatusBadRequest},
		{"forbidden", perr.ForbiddenError{Message: "x"}, http.StatusForbidden},
		{"unauthorized", perr.UnauthorizedError{Message: "x"}, http.StatusUnauthorized},
		{"failed precondition", perr.FailedPreconditionError{Message: "x"}, http.StatusPreconditionFailed},
		{"authz count mismatch", perr.AuthorizationCountMismatchError{Requested: 2, Returned: 1}, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, perr.ToHTTPStatus(tc.err))
		})
	}
}

func TestToResponse_ServerErrorStripsStack(t *testing.T) {
	err := perr.WithStack(perr.InternalServerError{Message: "db exploded"}, "loading warehouse")
	err = perr.WithStack(err, "handling request")

	status, body := perr.ToResponse(err)

	assert.Equal(t, http.StatusInternalServerError, status)
	require.Len(t, body.Error.Stack, 1)
	assert.Contains(t, body.Error.Stack[0], "Error ID:")
}

func TestToResponse_ClientErrorKeepsStack(t *testing.T) {
	err := perr.WithStack(perr.ValidationError{Message: "bad input"}, "validating namespace depth")

	status, body := perr.ToResponse(err)

	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Error.Stack, 2)
	assert.Equal(t, "validating namespace depth", body.Error.Stack[0])
	assert.Contains(t, body.Error.Stack[1], "Error ID:")
}

func TestStacked_PushStackAccumulates(t *testing.T) {
	err := perr.WithStack(errors.New("root cause"), "first")
	err = perr.WithStack(err, "second")

	var stacked *perr.Stacked
	require.True(t, errors.As(err, &stacked))
	assert.Equal(t, []string{"first", "second"}, stacked.Stack)
}
