package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalProfile is a filesystem-backed Profile for tests and single-node
// deployments: location strings are paths under Root.
type LocalProfile struct {
	Root string
}

func (p LocalProfile) ValidateLocation(_ context.Context, location string) error {
	abs, err := filepath.Abs(location)
	if err != nil {
		return err
	}

	rootAbs, err := filepath.Abs(p.Root)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(abs, rootAbs) {
		return fmt.Errorf("storage: location %q is outside profile root %q", location, p.Root)
	}

	return nil
}

func (p LocalProfile) BuildFileIO(_ context.Context, _ []byte) (FileIO, error) {
	return localFileIO{}, nil
}

func (p LocalProfile) GenerateTableConfig(_ context.Context, _ string, _ []byte) (TableConfig, error) {
	return TableConfig{Properties: map[string]string{}}, nil
}

func (p LocalProfile) DefaultMetadataLocation(tableLocation string, version int64) string {
	return filepath.Join(tableLocation, "metadata", fmt.Sprintf("v%d.metadata.json", version))
}

func (p LocalProfile) RemoveAll(_ context.Context, location string) error {
	return os.RemoveAll(location)
}

type localFileIO struct{}

func (localFileIO) Read(_ context.Context, location string) ([]byte, error) {
	return os.ReadFile(location)
}

func (localFileIO) Write(_ context.Context, location string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return err
	}

	return os.WriteFile(location, data, 0o644)
}

func (localFileIO) Delete(_ context.Context, location string) error {
	return os.Remove(location)
}

func (localFileIO) Exists(_ context.Context, location string) (bool, error) {
	_, err := os.Stat(location)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}
