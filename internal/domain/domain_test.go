package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

func TestParseRoleIdentifier_RoundTrips(t *testing.T) {
	ri, err := domain.ParseRoleIdentifier("okta~abc-123")
	require.NoError(t, err)
	assert.Equal(t, "okta", ri.Provider)
	assert.Equal(t, "abc-123", ri.SourceID)
	assert.Equal(t, "okta~abc-123", ri.String())
}

func TestParseRoleIdentifier_AllowsTildeInSourceID(t *testing.T) {
	ri, err := domain.ParseRoleIdentifier("ldap~cn=alice~ou=eng")
	require.NoError(t, err)
	assert.Equal(t, "ldap", ri.Provider)
	assert.Equal(t, "cn=alice~ou=eng", ri.SourceID)
}

func TestParseRoleIdentifier_RejectsMissingSeparator(t *testing.T) {
	_, err := domain.ParseRoleIdentifier("not-a-role-identifier")

	assert.True(t, errors.Is(err, perr.ErrInvalidRoleIdentifier))
}

func TestParseRoleIdentifier_RejectsUppercaseProvider(t *testing.T) {
	_, err := domain.ParseRoleIdentifier("Okta~abc")

	assert.True(t, errors.Is(err, perr.ErrInvalidRoleIdentifier))
}

func TestNamespace_Depth(t *testing.T) {
	ns := domain.Namespace{Levels: []string{"a", "b", "c"}}
	assert.Equal(t, 3, ns.Depth())
}

func TestNamespace_IsRootOf(t *testing.T) {
	root := domain.Namespace{Levels: []string{"a"}}
	child := domain.Namespace{Levels: []string{"a", "b"}}
	sibling := domain.Namespace{Levels: []string{"x", "b"}}

	assert.True(t, root.IsRootOf(child))
	assert.True(t, root.IsRootOf(root))
	assert.False(t, child.IsRootOf(root))
	assert.False(t, root.IsRootOf(sibling))
}

func TestTabular_IsVisible(t *testing.T) {
	active := domain.Tabular{Status: domain.TabularStatusActive}
	staged := domain.Tabular{Status: domain.TabularStatusStagedForDeletion}

	assert.True(t, active.IsVisible())
	assert.False(t, staged.IsVisible())
}

func TestTaskInstance_IsStale(t *testing.T) {
	now := time.Now()
	pickedUp := now.Add(-10 * time.Minute)

	running := domain.TaskInstance{Status: domain.TaskInstanceStatusRunning, PickedUpAt: &pickedUp}
	assert.True(t, running.IsStale(now, 5*time.Minute))
	assert.False(t, running.IsStale(now, 20*time.Minute))

	scheduled := domain.TaskInstance{Status: domain.TaskInstanceStatusScheduled, PickedUpAt: &pickedUp}
	assert.False(t, scheduled.IsStale(now, time.Second))
}
