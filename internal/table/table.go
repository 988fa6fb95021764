// Package table implements table handles and the transactional commit
// protocol. A Table is a read-only view of one published metadata
// version; all changes go through a Transaction, which folds queued
// operations over a cloned metadata document, publishes the result as a
// brand-new version, and atomically swaps the catalog pointer. Nothing
// already published is ever modified.
package table

import (
	"context"
	"fmt"

	"github.com/firndb/firn/internal/catalog"
	"github.com/firndb/firn/internal/manifest"
	"github.com/firndb/firn/internal/observability"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/pkg/types"
)

// Table is a handle on one metadata version of a table. The handle is a
// plain value: reads are safe from any goroutine, but a successful
// Commit replaces the handle's contents wholesale, so a handle must not
// be shared with readers while a transaction on it is committing.
type Table struct {
	ident            catalog.Identifier
	metadata         *types.TableMetadata
	metadataLocation string
	catalog          catalog.Catalog
	store            storage.ObjectStore
	manifests        *manifest.Cache
	stats            *observability.CommitStats
}

// New constructs a table handle for a published metadata version. The
// handle starts with its own manifest cache; WithCache and WithStats let
// a catalog share one cache and one stats collector across every handle
// it hands out.
func New(ident catalog.Identifier, metadata *types.TableMetadata, metadataLocation string, cat catalog.Catalog, store storage.ObjectStore) *Table {
	return &Table{
		ident:            ident,
		metadata:         metadata,
		metadataLocation: metadataLocation,
		catalog:          cat,
		store:            store,
		manifests:        manifest.NewCache(manifest.DefaultCacheEntries),
	}
}

// WithCache replaces the handle's manifest cache and returns the handle.
func (t *Table) WithCache(c *manifest.Cache) *Table {
	if c != nil {
		t.manifests = c
	}
	return t
}

// WithStats attaches a commit-stats collector and returns the handle.
func (t *Table) WithStats(s *observability.CommitStats) *Table {
	t.stats = s
	return t
}

// Identifier returns the table's catalog identifier.
func (t *Table) Identifier() catalog.Identifier {
	return t.ident
}

// MetadataLocation returns the location of the metadata version this
// handle observes.
func (t *Table) MetadataLocation() string {
	return t.metadataLocation
}

// Metadata returns the observed metadata document. Callers must treat
// it as read-only.
func (t *Table) Metadata() *types.TableMetadata {
	return t.metadata
}

// Location returns the table's root path in the object store.
func (t *Table) Location() string {
	return t.metadata.Location
}

// SequenceNumber returns the observed metadata version's sequence.
func (t *Table) SequenceNumber() int64 {
	return t.metadata.LastSequenceNumber
}

// Schema returns the table's current schema.
func (t *Table) Schema() (types.Schema, error) {
	s, ok := t.metadata.CurrentSchema()
	if !ok {
		return types.Schema{}, fmt.Errorf("table %s: %w: current schema", t.ident, types.ErrInvalidMetadata)
	}
	return s, nil
}

// Spec returns the table's default partition spec.
func (t *Table) Spec() (types.PartitionSpec, error) {
	p, ok := t.metadata.DefaultSpec()
	if !ok {
		return types.PartitionSpec{}, fmt.Errorf("table %s: %w: default spec", t.ident, types.ErrInvalidMetadata)
	}
	return p, nil
}

// Properties returns the table's property map. Callers must treat it as
// read-only.
func (t *Table) Properties() map[string]string {
	return t.metadata.Properties
}

// CurrentSnapshot resolves the current snapshot of a branch, or nil.
// The empty branch means the main line.
func (t *Table) CurrentSnapshot(branch string) *types.Snapshot {
	return t.metadata.CurrentSnapshot(branch)
}

// SnapshotByID returns the snapshot with the given id, or nil.
func (t *Table) SnapshotByID(id int64) *types.Snapshot {
	return t.metadata.SnapshotByID(id)
}

// DataFiles returns the data files registered in the current snapshot of
// a branch, reading the snapshot's manifest through the handle's cache.
// A table with no snapshot on the requested line has no files.
func (t *Table) DataFiles(ctx context.Context, branch string) ([]types.DataFile, error) {
	snap := t.metadata.CurrentSnapshot(branch)
	if snap == nil || snap.ManifestList == "" {
		return nil, nil
	}
	m, err := t.manifests.ReadThrough(ctx, t.store, snap.ManifestList)
	if err != nil {
		return nil, err
	}
	files := make([]types.DataFile, len(m.DataFiles))
	for i, f := range m.DataFiles {
		files[i] = f.Clone()
	}
	return files, nil
}

// Close drops this table's manifests from the cache. Safe on a cache
// shared with other handles: only entries for this table's snapshots are
// removed. Refresh flows call it on the superseded handle.
func (t *Table) Close() {
	if t.manifests == nil {
		return
	}
	for i := range t.metadata.Snapshots {
		if loc := t.metadata.Snapshots[i].ManifestList; loc != "" {
			t.manifests.Remove(loc)
		}
	}
}
