package view

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/firndb/firn/internal/catalog"
	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/sqlscan"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/internal/table"
	"github.com/firndb/firn/pkg/types"
)

// maxResolveConcurrency bounds the catalog fan-out while resolving base
// tables.
const maxResolveConcurrency = 4

// StateKind enumerates a base table's freshness classifications.
type StateKind string

const (
	StateFresh    StateKind = "fresh"
	StateOutdated StateKind = "outdated"
	StateInvalid  StateKind = "invalid"
)

// StorageTableState classifies one base table relative to the view's
// last recorded build. It is computed on every check and never stored;
// the durable record is the base-tables summary entry the check reads.
type StorageTableState struct {
	Kind StateKind

	// SnapshotID is the recorded base snapshot an incremental recompute
	// can start from. Set only for Outdated.
	SnapshotID int64
}

// Fresh means the base table has not advanced since the last refresh.
func Fresh() StorageTableState {
	return StorageTableState{Kind: StateFresh}
}

// Outdated means the base table advanced past the recorded snapshot.
func Outdated(snapshotID int64) StorageTableState {
	return StorageTableState{Kind: StateOutdated, SnapshotID: snapshotID}
}

// Invalid means no usable refresh record exists; only a full rebuild
// can establish one.
func Invalid() StorageTableState {
	return StorageTableState{Kind: StateInvalid}
}

// BaseTableState pairs one resolved upstream table with its freshness
// classification.
type BaseTableState struct {
	Table *table.Table
	State StorageTableState
}

// StorageTable is the table backing a materialized view. It embeds the
// plain table handle and adds the refresh and staleness protocol on
// top of it.
type StorageTable struct {
	*table.Table

	definition string
	catalog    catalog.Catalog
	store      storage.ObjectStore
}

// Definition returns the owning view's defining query text.
func (s *StorageTable) Definition() string {
	return s.definition
}

// VersionID returns the view's logical version id recorded on the
// current snapshot of a branch. A missing snapshot or a snapshot
// without the record yields nil, not an error; a record that does not
// parse as an integer is a corrupt summary.
func (s *StorageTable) VersionID(branch string) (*int64, error) {
	snap := s.CurrentSnapshot(branch)
	if snap == nil {
		return nil, nil
	}
	raw, ok := snap.Summary.Get(types.SummaryVersionKey)
	if !ok {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptSummary,
			fmt.Sprintf("storage table %s: version-id %q", s.Identifier(), raw), err)
	}
	return &id, nil
}

// BaseTables resolves every table the view depends on and classifies
// each against the last recorded build. The dependency list comes from
// the current snapshot's base-tables record when one exists; otherwise
// it is extracted from the defining query, with no recorded snapshot
// ids, so every dependency classifies as Invalid. Results preserve the
// dependency order. Any single resolution failure fails the whole call.
func (s *StorageTable) BaseTables(ctx context.Context, branch string) ([]BaseTableState, error) {
	recorded, err := s.recordedBaseTables(branch)
	if err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return nil, nil
	}

	out := make([]BaseTableState, len(recorded))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveConcurrency)
	for i, rec := range recorded {
		i, rec := i, rec
		g.Go(func() error {
			visited := map[string]struct{}{s.Identifier().String(): {}}
			tbl, err := resolveToTable(gctx, s.catalog, rec.Identifier, visited)
			if err != nil {
				return err
			}
			state, err := classify(rec, tbl, branch)
			if err != nil {
				return err
			}
			out[i] = BaseTableState{Table: tbl, State: state}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// recordedBaseTables returns the dependency list the last refresh
// recorded, or falls back to scanning the defining query.
func (s *StorageTable) recordedBaseTables(branch string) ([]types.BaseTable, error) {
	if snap := s.CurrentSnapshot(branch); snap != nil {
		if raw, ok := snap.Summary.Get(types.SummaryBaseTablesKey); ok {
			recorded, err := types.DecodeBaseTables(raw)
			if err != nil {
				return nil, ferrors.NewDecodeError(ferrors.CodeCorruptSummary,
					fmt.Sprintf("storage table %s: base-tables record", s.Identifier()), err)
			}
			return recorded, nil
		}
	}
	names, err := sqlscan.FindRelations(s.definition)
	if err != nil {
		return nil, err
	}
	recorded := make([]types.BaseTable, len(names))
	for i, name := range names {
		recorded[i] = types.BaseTable{Identifier: name, SnapshotID: types.SentinelSnapshotID}
	}
	return recorded, nil
}

// resolveToTable loads an identifier and follows view indirection until
// it reaches a concrete table. The visited set rejects circular view
// chains.
func resolveToTable(ctx context.Context, cat catalog.Catalog, name string, visited map[string]struct{}) (*table.Table, error) {
	if _, seen := visited[name]; seen {
		return nil, ferrors.NewValidationError(ferrors.CodeCyclicView,
			fmt.Sprintf("dependency cycle through %s", name))
	}
	visited[name] = struct{}{}

	ident, err := catalog.ParseIdentifier(name)
	if err != nil {
		return nil, err
	}
	tab, err := cat.LoadTabular(ctx, ident)
	if err != nil {
		return nil, err
	}
	switch entity := tab.(type) {
	case *table.Table:
		return entity, nil
	case *MaterializedView:
		return resolveToTable(ctx, cat, entity.metadata.StorageTable, visited)
	default:
		return nil, ferrors.NewValidationError(ferrors.CodeNotATable,
			fmt.Sprintf("%s resolved to %T, want a table or materialized view", name, tab))
	}
}

// classify compares a recorded base snapshot against the table's live
// snapshot on the requested branch.
func classify(rec types.BaseTable, tbl *table.Table, branch string) (StorageTableState, error) {
	if rec.SnapshotID == types.SentinelSnapshotID {
		return Invalid(), nil
	}
	live := tbl.CurrentSnapshot(branch)
	if live == nil {
		return StorageTableState{}, ferrors.NewCatalogError(ferrors.CodeBaseTableState,
			fmt.Sprintf("base table %s has no current snapshot but %d is recorded", tbl.Identifier(), rec.SnapshotID), nil)
	}
	if live.SnapshotID == rec.SnapshotID {
		return Fresh(), nil
	}
	return Outdated(rec.SnapshotID), nil
}

// FullRefresh replaces the storage table's contents wholesale:
//
//  1. Rebuild the metadata document keeping the table's identity and
//     shape but none of its snapshot history.
//  2. Publish it and swap the catalog pointer from the version this
//     handle observes, under the same conflict contract as a commit.
//  3. On the swapped-in table, commit one transaction appending files
//     and stamping the snapshot summary with the version id and the
//     serialized base-tables list. That record is what the next
//     staleness check reads.
//  4. Swap this handle to the refreshed table and release the old one.
//
// A conflict at either pointer swap leaves the handle on the version it
// started from.
func (s *StorageTable) FullRefresh(ctx context.Context, files []types.DataFile, versionID int64, baseTables []types.BaseTable, branch string) error {
	prevLocation := s.MetadataLocation()

	rebuilt, err := types.RebuildFrom(s.Metadata()).Build()
	if err != nil {
		return ferrors.NewInternalError(fmt.Sprintf("storage table %s: rebuild metadata", s.Identifier()), err)
	}
	payload, err := rebuilt.Encode()
	if err != nil {
		return ferrors.NewInternalError(fmt.Sprintf("storage table %s: encode metadata", s.Identifier()), err)
	}
	newLocation := rebuilt.NewMetadataLocation()
	if err := s.store.Put(ctx, newLocation, payload); err != nil {
		return fmt.Errorf("storage table %s: publish rebuilt metadata: %w", s.Identifier(), err)
	}

	updated, err := s.catalog.UpdateTable(ctx, s.Identifier(), newLocation, prevLocation)
	if err != nil {
		return err
	}
	next, ok := updated.(*table.Table)
	if !ok {
		return ferrors.NewValidationError(ferrors.CodeNotATable,
			fmt.Sprintf("%s: catalog returned %T for a refresh", s.Identifier(), updated))
	}

	encoded, err := types.EncodeBaseTables(baseTables)
	if err != nil {
		return ferrors.NewInternalError(fmt.Sprintf("storage table %s: encode base tables", s.Identifier()), err)
	}
	err = next.NewTransaction().
		OnBranch(branch).
		Append(files...).
		UpdateProperties(
			types.SummaryEntry{Key: types.SummaryVersionKey, Value: strconv.FormatInt(versionID, 10)},
			types.SummaryEntry{Key: types.SummaryBaseTablesKey, Value: encoded},
		).
		Commit(ctx)
	if err != nil {
		return err
	}

	old := s.Table
	s.Table = next
	old.Close()
	return nil
}
