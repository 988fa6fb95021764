package manifest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/firndb/firn/internal/catalog"
	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/pkg/types"
)

// Report contains the results of a metadata-storage reconciliation.
type Report struct {
	// Dangling are objects referenced by the current metadata version
	// that do not exist in storage.
	Dangling []DanglingEntry
	// Orphaned are objects under the metadata prefix that the current
	// version does not reference: leftovers of failed commits and
	// superseded metadata documents.
	Orphaned []string
	// LiveObjects is the number of referenced objects.
	LiveObjects int
	// ScannedObjects is the number of storage objects scanned.
	ScannedObjects int
	// RunAt is when the reconciliation was performed.
	RunAt time.Time
}

// DanglingEntry is a reference to a missing storage object.
type DanglingEntry struct {
	// SnapshotID is the snapshot holding the reference, 0 for the
	// document itself.
	SnapshotID int64
	// Location is the missing object.
	Location string
}

// HasIssues reports whether the reconciliation found dangling references
// or orphaned objects.
func (r *Report) HasIssues() bool {
	return len(r.Dangling) > 0 || len(r.Orphaned) > 0
}

// DefaultGraceAge is how long orphaned objects are retained before a
// sweep may delete them.
const DefaultGraceAge = 7 * 24 * time.Hour

// Maintenance reconciles a tabular's metadata prefix against object
// storage and sweeps aged orphans. Orphans younger than the grace age
// are kept so racing commits and in-flight readers are never pulled out
// from under.
type Maintenance struct {
	catalog  catalog.Catalog
	store    storage.ObjectStore
	graceAge time.Duration
}

// NewMaintenance creates a maintenance runner. A non-positive grace age
// falls back to DefaultGraceAge.
func NewMaintenance(cat catalog.Catalog, store storage.ObjectStore, graceAge time.Duration) *Maintenance {
	if graceAge <= 0 {
		graceAge = DefaultGraceAge
	}
	return &Maintenance{
		catalog:  cat,
		store:    store,
		graceAge: graceAge,
	}
}

// GraceAge returns the configured orphan retention age.
func (mt *Maintenance) GraceAge() time.Duration {
	return mt.graceAge
}

// Reconcile checks consistency between the catalog's current metadata
// version and object storage. It detects dangling references (the
// current version points at missing objects) and orphaned objects
// (present under the metadata prefix but unreferenced). Data files
// outside the metadata prefix are checked for existence, never listed.
func (mt *Maintenance) Reconcile(ctx context.Context, ident catalog.Identifier) (*Report, error) {
	report := &Report{RunAt: time.Now()}

	tab, err := mt.catalog.LoadTabular(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("manifest: load %s: %w", ident, err)
	}
	metaLocation := tab.MetadataLocation()

	raw, err := mt.store.Get(ctx, metaLocation)
	if err != nil {
		return nil, fmt.Errorf("manifest: fetch metadata %s: %w", metaLocation, err)
	}

	live := map[string]bool{metaLocation: true}
	var prefix string

	if meta, metaErr := types.ParseTableMetadata(raw); metaErr == nil {
		prefix = meta.MetadataDir()
		for _, snap := range meta.Snapshots {
			live[snap.ManifestList] = true
		}
		if err := mt.checkSnapshots(ctx, meta, report); err != nil {
			return nil, err
		}
	} else if view, viewErr := types.ParseViewMetadata(raw); viewErr == nil {
		// A view document references nothing beyond itself; its storage
		// table is a separate tabular with its own maintenance runs.
		prefix = view.MetadataDir()
	} else {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptMetadata,
			fmt.Sprintf("manifest: %s holds neither table nor view metadata", metaLocation), metaErr)
	}
	report.LiveObjects = len(live)

	objects, err := mt.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("manifest: list %s: %w", prefix, err)
	}
	report.ScannedObjects = len(objects)

	for _, obj := range objects {
		if !live[obj] {
			report.Orphaned = append(report.Orphaned, obj)
		}
	}

	return report, nil
}

// checkSnapshots verifies that every snapshot's manifest and every
// registered data file still exist.
func (mt *Maintenance) checkSnapshots(ctx context.Context, meta *types.TableMetadata, report *Report) error {
	for _, snap := range meta.Snapshots {
		if err := ctx.Err(); err != nil {
			return err
		}
		exists, err := mt.store.Exists(ctx, snap.ManifestList)
		if err != nil {
			return fmt.Errorf("manifest: check %s: %w", snap.ManifestList, err)
		}
		if !exists {
			report.Dangling = append(report.Dangling, DanglingEntry{
				SnapshotID: snap.SnapshotID,
				Location:   snap.ManifestList,
			})
			continue
		}

		m, err := Read(ctx, mt.store, snap.ManifestList)
		if err != nil {
			return err
		}
		for _, f := range m.DataFiles {
			exists, err := mt.store.Exists(ctx, f.FilePath)
			if err != nil {
				return fmt.Errorf("manifest: check %s: %w", f.FilePath, err)
			}
			if !exists {
				report.Dangling = append(report.Dangling, DanglingEntry{
					SnapshotID: snap.SnapshotID,
					Location:   f.FilePath,
				})
			}
		}
	}
	return nil
}

// SweepResult holds the outcome of a sweep run.
type SweepResult struct {
	Report  *Report
	Deleted []string
	Skipped []string
	Errors  []string
}

// Sweep reconciles and then deletes orphaned objects older than the
// grace age. Younger orphans are skipped; they may belong to a commit
// still in flight.
func (mt *Maintenance) Sweep(ctx context.Context, ident catalog.Identifier) (*SweepResult, error) {
	report, err := mt.Reconcile(ctx, ident)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Report: report}
	cutoff := time.Now().Add(-mt.graceAge)

	for _, obj := range report.Orphaned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := mt.store.Stat(ctx, obj)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue // already gone
			}
			result.Errors = append(result.Errors, fmt.Sprintf("stat %s: %v", obj, err))
			continue
		}
		if info.LastModified.After(cutoff) {
			result.Skipped = append(result.Skipped, obj)
			continue
		}
		if err := mt.store.Delete(ctx, obj); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", obj, err))
			continue
		}
		result.Deleted = append(result.Deleted, obj)
	}

	if len(result.Deleted) > 0 {
		log.Printf("manifest: swept %d orphaned objects for %s", len(result.Deleted), ident)
	}
	if len(result.Errors) > 0 {
		log.Printf("[WARN] manifest: %d errors during sweep for %s", len(result.Errors), ident)
	}

	return result, nil
}
