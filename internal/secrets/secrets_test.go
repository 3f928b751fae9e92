package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/platform/perr"
	"github.com/lakekeeper/catalog/internal/secrets"
)

func TestInMemoryStore_PersistThenGet(t *testing.T) {
	store := secrets.NewInMemoryStore()

	id, err := store.PersistSecret(context.Background(), []byte("super-secret"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := store.GetSecretByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("super-secret"), got)
}

func TestInMemoryStore_GetMissing_IsEntityNotFound(t *testing.T) {
	store := secrets.NewInMemoryStore()

	_, err := store.GetSecretByID(context.Background(), "missing")

	var notFound perr.EntityNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestInMemoryStore_DeleteMissing_IsNotAnError(t *testing.T) {
	store := secrets.NewInMemoryStore()

	err := store.DeleteSecret(context.Background(), "missing")
	assert.NoError(t, err)
}

func TestInMemoryStore_DeleteThenGet_NotFound(t *testing.T) {
	store := secrets.NewInMemoryStore()

	id, err := store.PersistSecret(context.Background(), []byte("x"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteSecret(context.Background(), id))

	_, err = store.GetSecretByID(context.Background(), id)
	assert.Error(t, err)
}

func TestInMemoryStore_PersistCopiesInput_MutationAfterwardDoesNotLeak(t *testing.T) {
	store := secrets.NewInMemoryStore()

	original := []byte("abc")
	id, err := store.PersistSecret(context.Background(), original)
	require.NoError(t, err)

	original[0] = 'z'

	got, err := store.GetSecretByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
