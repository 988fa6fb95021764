// Package storage provides the object-store abstraction the metadata
// protocols are built on: immutable, write-once objects addressed by
// opaque locations.
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object already exists")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
	ErrWrongBucket    = errors.New("location outside store bucket")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Location     string
	SizeBytes    int64
	LastModified time.Time
}

// ObjectStore abstracts object storage operations.
// Implementations include S3 and the local filesystem for development
// and tests. Locations are opaque /-separated paths; metadata and
// manifest documents are small, so everything moves as byte slices.
type ObjectStore interface {
	// Put writes data at location. Every location is written at most
	// once: putting to an existing location fails with ErrObjectExists
	// and never overwrites. This is what keeps published metadata
	// versions immutable.
	Put(ctx context.Context, location string, data []byte) error

	// Get reads the object at location.
	// Returns ErrObjectNotFound if no object exists there.
	Get(ctx context.Context, location string) ([]byte, error)

	// Exists checks if an object exists at location.
	Exists(ctx context.Context, location string) (bool, error)

	// Stat returns size and modification time for the object at location.
	// Returns ErrObjectNotFound if no object exists there. Maintenance
	// uses the modification time to age orphaned objects before deleting.
	Stat(ctx context.Context, location string) (ObjectInfo, error)

	// List returns all object locations under the given prefix.
	// Used by reconciliation to detect orphaned objects.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at location. Deleting an absent object
	// is not an error.
	Delete(ctx context.Context, location string) error
}
