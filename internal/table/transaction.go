package table

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/manifest"
	"github.com/firndb/firn/internal/observability"
	"github.com/firndb/firn/pkg/types"
)

// Summary keys stamped on every append snapshot.
const (
	summaryAddedFiles   = "added-data-files"
	summaryAddedRecords = "added-records"
	summaryAddedSize    = "added-files-size"
)

// commitState is the working state one commit folds its operations
// over: the cloned metadata builder plus the snapshot and manifest
// minted for this commit, if it appends files. Operations mutate the
// state and nothing else, so an aborted fold discards everything.
type commitState struct {
	b        *types.MetadataBuilder
	branch   string
	ident    string
	schemaID int
	specID   int
	snapshot *types.Snapshot
	manifest *manifest.Manifest
	entries  []types.SummaryEntry
}

// operation is one queued step of a transaction. Applying is a pure
// transformation of the commit state; no operation performs I/O.
type operation interface {
	kind() string
	apply(st *commitState) error
}

type updateSchema struct {
	schema types.Schema
}

func (o updateSchema) kind() string { return "update-schema" }

func (o updateSchema) apply(st *commitState) error {
	if err := st.b.AddSchema(o.schema); err != nil {
		return ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidSchema,
			fmt.Sprintf("table %s: add schema %d", st.ident, o.schema.SchemaID), err)
	}
	if err := st.b.SetCurrentSchema(o.schema.SchemaID); err != nil {
		return ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidSchema,
			fmt.Sprintf("table %s: set current schema %d", st.ident, o.schema.SchemaID), err)
	}
	st.schemaID = o.schema.SchemaID
	return nil
}

type updateSpec struct {
	specID int
}

func (o updateSpec) kind() string { return "update-spec" }

func (o updateSpec) apply(st *commitState) error {
	if err := st.b.SetDefaultSpec(o.specID); err != nil {
		return ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidSpec,
			fmt.Sprintf("table %s: set default spec %d", st.ident, o.specID), err)
	}
	st.specID = o.specID
	return nil
}

type appendFiles struct {
	files []types.DataFile
}

func (o appendFiles) kind() string { return "append" }

func (o appendFiles) apply(st *commitState) error {
	if err := st.manifest.Append(o.files...); err != nil {
		return ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeInvalidDataFile,
			fmt.Sprintf("table %s: append data files", st.ident), err)
	}
	return nil
}

type updateProperties struct {
	entries []types.SummaryEntry
}

func (o updateProperties) kind() string { return "update-properties" }

func (o updateProperties) apply(st *commitState) error {
	if st.snapshot != nil {
		st.entries = append(st.entries, o.entries...)
		return nil
	}
	cur := st.b.CurrentSnapshot(st.branch)
	if cur == nil {
		return ferrors.NewValidationError(ferrors.CodeNoSnapshot,
			fmt.Sprintf("table %s: no snapshot to carry properties", st.ident))
	}
	if err := st.b.MergeSnapshotSummary(cur.SnapshotID, o.entries); err != nil {
		return ferrors.Wrap(ferrors.ErrCategoryValidation, ferrors.CodeNoSnapshot,
			fmt.Sprintf("table %s: update properties", st.ident), err)
	}
	return nil
}

type expireSnapshots struct {
	olderThan time.Time
	keepLast  int
}

func (o expireSnapshots) kind() string { return "expire-snapshots" }

// apply drops snapshots older than the cutoff, always keeping the
// keepLast most recent and every snapshot a ref still points at. The
// dropped snapshots' manifests become unreferenced and are collected by
// the maintenance sweep, never here.
func (o expireSnapshots) apply(st *commitState) error {
	snaps := st.b.Snapshots()
	if len(snaps) <= o.keepLast {
		return nil
	}
	protected := make(map[int64]struct{}, 2)
	for _, ref := range st.b.Refs() {
		protected[ref.SnapshotID] = struct{}{}
	}
	if cur := st.b.CurrentSnapshot(""); cur != nil {
		protected[cur.SnapshotID] = struct{}{}
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].SequenceNumber != snaps[j].SequenceNumber {
			return snaps[i].SequenceNumber > snaps[j].SequenceNumber
		}
		return snaps[i].TimestampMs > snaps[j].TimestampMs
	})
	cutoff := o.olderThan.UnixMilli()
	var drop []int64
	for i, s := range snaps {
		if i < o.keepLast {
			continue
		}
		if _, keep := protected[s.SnapshotID]; keep {
			continue
		}
		if s.TimestampMs >= cutoff {
			continue
		}
		drop = append(drop, s.SnapshotID)
	}
	st.b.RemoveSnapshots(drop...)
	return nil
}

// Transaction collects operations against one table and publishes them
// as a single new metadata version. Enqueue methods never fail and
// perform no I/O; all validation and publishing happens in Commit. A
// transaction commits at most once.
type Transaction struct {
	tbl       *Table
	branch    string
	ops       []operation
	committed bool
}

// NewTransaction starts a transaction against the handle's observed
// metadata version.
func (t *Table) NewTransaction() *Transaction {
	return &Transaction{tbl: t}
}

// OnBranch targets the transaction at a named branch instead of the
// main line. Appends advance the branch ref; a branch with no prior
// snapshot starts its own history.
func (tx *Transaction) OnBranch(branch string) *Transaction {
	tx.branch = branch
	return tx
}

// UpdateSchema queues adding a schema and making it current. The
// schema's id must be unused in the table's schema history.
func (tx *Transaction) UpdateSchema(schema types.Schema) *Transaction {
	tx.ops = append(tx.ops, updateSchema{schema: schema.Clone()})
	return tx
}

// UpdateSpec queues repointing the default partition spec to an
// existing spec id.
func (tx *Transaction) UpdateSpec(specID int) *Transaction {
	tx.ops = append(tx.ops, updateSpec{specID: specID})
	return tx
}

// Append queues data files for the snapshot this commit will mint. All
// Append calls in one transaction share a single snapshot and manifest.
func (tx *Transaction) Append(files ...types.DataFile) *Transaction {
	cp := make([]types.DataFile, len(files))
	for i, f := range files {
		cp[i] = f.Clone()
	}
	tx.ops = append(tx.ops, appendFiles{files: cp})
	return tx
}

// UpdateProperties queues summary entries for the active snapshot: the
// snapshot this commit mints if it appends files, otherwise the current
// snapshot of the targeted branch. Entries apply in order and overwrite
// on duplicate keys.
func (tx *Transaction) UpdateProperties(entries ...types.SummaryEntry) *Transaction {
	cp := make([]types.SummaryEntry, len(entries))
	copy(cp, entries)
	tx.ops = append(tx.ops, updateProperties{entries: cp})
	return tx
}

// ExpireSnapshots queues dropping snapshots older than olderThan from
// the metadata, keeping at least the keepLast most recent.
func (tx *Transaction) ExpireSnapshots(olderThan time.Time, keepLast int) *Transaction {
	if keepLast < 1 {
		keepLast = 1
	}
	tx.ops = append(tx.ops, expireSnapshots{olderThan: olderThan, keepLast: keepLast})
	return tx
}

func (tx *Transaction) hasAppend() bool {
	for _, op := range tx.ops {
		if _, ok := op.(appendFiles); ok {
			return true
		}
	}
	return false
}

// kinds returns the queued operation kinds in first-seen order for the
// stats collector.
func (tx *Transaction) kinds() []string {
	seen := make(map[string]struct{}, len(tx.ops))
	var kinds []string
	for _, op := range tx.ops {
		k := op.kind()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	return kinds
}

// Commit publishes the queued operations:
//
//  1. Clone the observed metadata into a builder and bump the sequence
//     number by exactly one.
//  2. If any operation appends files, mint a snapshot with a fresh
//     random id and a manifest location under the table's metadata dir.
//  3. Fold the operations in enqueue order. The first failure aborts
//     the commit before any I/O; the handle is untouched.
//  4. Write the manifest, then the new metadata document, each to a
//     location that has never been written.
//  5. Swap the catalog pointer from the captured previous location. A
//     concurrent commit that moved the pointer first makes this fail
//     with a conflict; the objects written in step 4 stay behind as
//     inert orphans for the maintenance sweep.
//  6. Replace the handle's contents with the committed version.
//
// On any error the handle still observes the version the transaction
// started from.
func (tx *Transaction) Commit(ctx context.Context) error {
	start := time.Now()
	err := tx.commit(ctx)
	if s := tx.tbl.stats; s != nil {
		outcome := observability.OutcomeSuccess
		switch {
		case err == nil:
		case ferrors.IsConflict(err):
			outcome = observability.OutcomeConflict
		default:
			outcome = observability.OutcomeFailure
		}
		s.RecordAttempt(outcome, time.Since(start), tx.kinds()...)
	}
	return err
}

func (tx *Transaction) commit(ctx context.Context) error {
	t := tx.tbl
	if tx.committed {
		return fmt.Errorf("table %s: transaction already committed", t.ident)
	}
	if len(tx.ops) == 0 {
		return fmt.Errorf("table %s: transaction has no operations", t.ident)
	}

	prevLocation := t.metadataLocation
	b := types.BuilderFrom(t.metadata)
	b.BumpSequence()

	st := &commitState{
		b:        b,
		branch:   tx.branch,
		ident:    t.ident.String(),
		schemaID: t.metadata.CurrentSchemaID,
		specID:   t.metadata.DefaultSpecID,
	}

	if tx.hasAppend() {
		snapID := types.NewSnapshotID()
		snap := &types.Snapshot{
			SnapshotID:     snapID,
			SequenceNumber: b.SequenceNumber(),
			TimestampMs:    time.Now().UnixMilli(),
			ManifestList:   b.NewManifestLocation(snapID),
			Summary:        &types.Summary{Operation: types.OperationAppend},
		}
		if parent := b.CurrentSnapshot(tx.branch); parent != nil {
			id := parent.SnapshotID
			snap.ParentSnapshotID = &id
		}
		st.snapshot = snap
		st.manifest = manifest.New(snapID, b.SequenceNumber(), st.schemaID, st.specID)
	}

	for _, op := range tx.ops {
		if err := op.apply(st); err != nil {
			return err
		}
	}

	if st.snapshot != nil {
		// The fold may have moved the current schema or spec; the
		// manifest records what the files were written under.
		st.manifest.SchemaID = st.schemaID
		st.manifest.SpecID = st.specID
		st.snapshot.Summary.Merge([]types.SummaryEntry{
			{Key: summaryAddedFiles, Value: strconv.Itoa(st.manifest.Len())},
			{Key: summaryAddedRecords, Value: strconv.FormatInt(st.manifest.RecordCount(), 10)},
			{Key: summaryAddedSize, Value: strconv.FormatInt(st.manifest.SizeInBytes(), 10)},
		})
		st.snapshot.Summary.Merge(st.entries)
		if err := b.AddSnapshot(*st.snapshot); err != nil {
			return ferrors.NewInternalError(fmt.Sprintf("table %s: register snapshot", t.ident), err)
		}
		if err := b.SetCurrentSnapshot(st.snapshot.SnapshotID, tx.branch); err != nil {
			return ferrors.NewInternalError(fmt.Sprintf("table %s: advance snapshot", t.ident), err)
		}
	}

	newMeta, err := b.Build()
	if err != nil {
		return ferrors.NewInternalError(fmt.Sprintf("table %s: assemble metadata", t.ident), err)
	}

	// Fold complete; I/O starts here.
	if st.manifest != nil {
		if err := manifest.Write(ctx, t.store, st.snapshot.ManifestList, st.manifest); err != nil {
			return err
		}
	}
	payload, err := newMeta.Encode()
	if err != nil {
		return ferrors.NewInternalError(fmt.Sprintf("table %s: encode metadata", t.ident), err)
	}
	newLocation := newMeta.NewMetadataLocation()
	if err := t.store.Put(ctx, newLocation, payload); err != nil {
		return fmt.Errorf("table %s: publish metadata: %w", t.ident, err)
	}

	updated, err := t.catalog.UpdateTable(ctx, t.ident, newLocation, prevLocation)
	if err != nil {
		return err
	}
	next, ok := updated.(*Table)
	if !ok {
		return ferrors.NewValidationError(ferrors.CodeNotATable,
			fmt.Sprintf("%s: catalog returned %T for a table commit", t.ident, updated))
	}
	next.WithCache(t.manifests).WithStats(t.stats)
	*t = *next
	tx.committed = true
	return nil
}
