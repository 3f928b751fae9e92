package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/storage"
)

func TestLocalProfile_ValidateLocation_AllowsUnderRoot(t *testing.T) {
	root := t.TempDir()
	profile := storage.LocalProfile{Root: root}

	err := profile.ValidateLocation(context.Background(), filepath.Join(root, "ns", "table"))
	assert.NoError(t, err)
}

func TestLocalProfile_ValidateLocation_RejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	profile := storage.LocalProfile{Root: root}

	err := profile.ValidateLocation(context.Background(), filepath.Join(os.TempDir(), "elsewhere"))
	assert.Error(t, err)
}

func TestLocalProfile_DefaultMetadataLocation(t *testing.T) {
	profile := storage.LocalProfile{Root: "/data"}

	loc := profile.DefaultMetadataLocation("/data/ns/table", 3)
	assert.Equal(t, filepath.Join("/data/ns/table", "metadata", "v3.metadata.json"), loc)
}

func TestLocalProfile_FileIO_WriteReadDeleteExists(t *testing.T) {
	root := t.TempDir()
	profile := storage.LocalProfile{Root: root}

	fileIO, err := profile.BuildFileIO(context.Background(), nil)
	require.NoError(t, err)

	path := filepath.Join(root, "ns", "table", "metadata", "v1.metadata.json")

	ok, err := fileIO.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fileIO.Write(context.Background(), path, []byte("{}")))

	ok, err = fileIO.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := fileIO.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)

	require.NoError(t, fileIO.Delete(context.Background(), path))

	ok, err = fileIO.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalProfile_RemoveAll(t *testing.T) {
	root := t.TempDir()
	profile := storage.LocalProfile{Root: root}

	nested := filepath.Join(root, "ns", "table")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "data.parquet"), []byte("x"), 0o644))

	require.NoError(t, profile.RemoveAll(context.Background(), nested))

	_, err := os.Stat(nested)
	assert.True(t, os.IsNotExist(err))
}
