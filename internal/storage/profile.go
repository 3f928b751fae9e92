// Package storage defines the storage profile contract spec.md leaves as
// an interface: the catalog core needs to validate locations, hand out
// client-facing access config, compute default metadata paths, and recurse
// a deletion, without knowing whether the backing store is S3, GCS, Azure,
// or a local filesystem. Concrete cloud backends are out of scope per
// spec.md's Non-goals; this package ships the contract plus a local-disk
// implementation for tests and single-node deployments.
package storage

import "context"

// FileIO is the minimal read/write/delete surface the commit pipeline and
// task queue need against table/view data and metadata files. Modeled
// after the io.ReadWriteCloser-shaped access pattern
// github.com/apache/iceberg-go's table package expects from its own FileIO
// abstraction (grounding is naming-only; this module does not import that
// library, see DESIGN.md).
type FileIO interface {
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, data []byte) error
	Delete(ctx context.Context, location string) error
	Exists(ctx context.Context, location string) (bool, error)
}

// TableConfig is the client-facing access configuration returned by
// load_table/load_view so a client library can read/write table data
// directly against the backing store, per the Iceberg REST spec's "config"
// response field.
type TableConfig struct {
	Properties map[string]string
}

// Profile is the storage profile contract. One Profile instance is
// associated with a warehouse at creation time and serialized into
// domain.Warehouse.StorageProfileJSON; a concrete implementation decodes
// that JSON back into itself.
type Profile interface {
	// ValidateLocation checks that location is consistent with this
	// profile's configured root (e.g. a bucket/prefix an S3 profile owns),
	// rejecting any table/namespace location outside it.
	ValidateLocation(ctx context.Context, location string) error

	// BuildFileIO constructs a FileIO scoped to this profile's
	// credentials/endpoint, using secret for any required access keys.
	BuildFileIO(ctx context.Context, secret []byte) (FileIO, error)

	// GenerateTableConfig returns the client-facing access config for a
	// location under this profile.
	GenerateTableConfig(ctx context.Context, location string, secret []byte) (TableConfig, error)

	// DefaultMetadataLocation computes the canonical metadata.json path for
	// a new commit version under this profile's layout conventions.
	DefaultMetadataLocation(tableLocation string, version int64) string

	// RemoveAll recursively deletes everything under location. Used by the
	// tabular_expiration task once a staged-for-deletion tabular's
	// DeleteAfter has elapsed.
	RemoveAll(ctx context.Context, location string) error
}
