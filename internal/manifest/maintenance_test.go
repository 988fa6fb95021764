package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/firndb/firn/internal/catalog"
	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/pkg/types"
)

type stubTabular struct {
	ident    catalog.Identifier
	location string
}

func (s stubTabular) Identifier() catalog.Identifier { return s.ident }
func (s stubTabular) MetadataLocation() string       { return s.location }

type stubCatalog struct {
	catalog.Catalog
	tabs map[string]catalog.Tabular
}

func (s *stubCatalog) LoadTabular(ctx context.Context, ident catalog.Identifier) (catalog.Tabular, error) {
	tab, ok := s.tabs[ident.String()]
	if !ok {
		return nil, ferrors.NewCatalogError(ferrors.CodeNotFound, "no such tabular: "+ident.String(), nil)
	}
	return tab, nil
}

func testIdent(t *testing.T, name string) catalog.Identifier {
	t.Helper()
	ns, err := catalog.NewNamespace("db")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	ident, err := catalog.NewIdentifier(ns, name)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	return ident
}

// seedTable publishes a one-snapshot table under location and returns the
// metadata, manifest, and data file locations.
func seedTable(t *testing.T, ctx context.Context, store storage.ObjectStore, location string) (string, string, string) {
	t.Helper()

	schema := types.Schema{SchemaID: 0, Fields: []types.Field{
		{ID: 1, Name: "id", Type: "long", Required: true},
	}}
	b, err := types.NewMetadataBuilder(location, schema, types.UnpartitionedSpec(), types.UnsortedOrder())
	if err != nil {
		t.Fatalf("NewMetadataBuilder: %v", err)
	}
	b.BumpSequence()

	snapID := types.NewSnapshotID()
	manifestLoc := b.NewManifestLocation(snapID)
	dataFile := location + "/data/a.parquet"

	if err := store.Put(ctx, dataFile, []byte("rows")); err != nil {
		t.Fatalf("put data file: %v", err)
	}

	m := New(snapID, 1, 0, 0)
	if err := m.Append(testFile(dataFile, 10, 4)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Write(ctx, store, manifestLoc, m); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	err = b.AddSnapshot(types.Snapshot{
		SnapshotID:     snapID,
		SequenceNumber: 1,
		TimestampMs:    time.Now().UnixMilli(),
		ManifestList:   manifestLoc,
		Summary:        &types.Summary{Operation: types.OperationAppend},
	})
	if err != nil {
		t.Fatalf("AddSnapshot: %v", err)
	}
	if err := b.SetCurrentSnapshot(snapID, ""); err != nil {
		t.Fatalf("SetCurrentSnapshot: %v", err)
	}

	meta, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	metaLoc := meta.NewMetadataLocation()
	data, err := meta.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Put(ctx, metaLoc, data); err != nil {
		t.Fatalf("put metadata: %v", err)
	}

	return metaLoc, manifestLoc, dataFile
}

func TestMaintenanceReconcileClean(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	metaLoc, _, _ := seedTable(t, ctx, store, "warehouse/db/t1")
	ident := testIdent(t, "t1")
	cat := &stubCatalog{tabs: map[string]catalog.Tabular{
		ident.String(): stubTabular{ident: ident, location: metaLoc},
	}}

	mt := NewMaintenance(cat, store, 0)
	report, err := mt.Reconcile(ctx, ident)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if report.HasIssues() {
		t.Errorf("clean table reported issues: dangling=%v orphaned=%v", report.Dangling, report.Orphaned)
	}
	if report.LiveObjects != 2 {
		t.Errorf("LiveObjects = %d, want 2 (metadata + manifest)", report.LiveObjects)
	}
	if report.ScannedObjects != 2 {
		t.Errorf("ScannedObjects = %d, want 2", report.ScannedObjects)
	}
}

func TestMaintenanceReconcileFindsOrphan(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	metaLoc, _, _ := seedTable(t, ctx, store, "warehouse/db/t1")
	orphan := "warehouse/db/t1/metadata/9-orphan.metadata.json"
	if err := store.Put(ctx, orphan, []byte("{}")); err != nil {
		t.Fatalf("put orphan: %v", err)
	}

	ident := testIdent(t, "t1")
	cat := &stubCatalog{tabs: map[string]catalog.Tabular{
		ident.String(): stubTabular{ident: ident, location: metaLoc},
	}}

	report, err := NewMaintenance(cat, store, 0).Reconcile(ctx, ident)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(report.Orphaned) != 1 || report.Orphaned[0] != orphan {
		t.Errorf("Orphaned = %v, want [%s]", report.Orphaned, orphan)
	}
	if len(report.Dangling) != 0 {
		t.Errorf("unexpected dangling entries: %v", report.Dangling)
	}
}

func TestMaintenanceReconcileFindsDangling(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	metaLoc, manifestLoc, dataFile := seedTable(t, ctx, store, "warehouse/db/t1")
	ident := testIdent(t, "t1")
	cat := &stubCatalog{tabs: map[string]catalog.Tabular{
		ident.String(): stubTabular{ident: ident, location: metaLoc},
	}}
	mt := NewMaintenance(cat, store, 0)

	// A missing data file is dangling.
	if err := store.Delete(ctx, dataFile); err != nil {
		t.Fatalf("delete data file: %v", err)
	}
	report, err := mt.Reconcile(ctx, ident)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(report.Dangling) != 1 || report.Dangling[0].Location != dataFile {
		t.Fatalf("Dangling = %v, want the data file", report.Dangling)
	}

	// A missing manifest is dangling too, and short-circuits its files.
	if err := store.Delete(ctx, manifestLoc); err != nil {
		t.Fatalf("delete manifest: %v", err)
	}
	report, err = mt.Reconcile(ctx, ident)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(report.Dangling) != 1 || report.Dangling[0].Location != manifestLoc {
		t.Errorf("Dangling = %v, want the manifest", report.Dangling)
	}
}

func TestMaintenanceSweepRespectsGraceAge(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	metaLoc, manifestLoc, _ := seedTable(t, ctx, store, "warehouse/db/t1")
	orphan := "warehouse/db/t1/metadata/9-orphan.metadata.json"
	if err := store.Put(ctx, orphan, []byte("{}")); err != nil {
		t.Fatalf("put orphan: %v", err)
	}

	ident := testIdent(t, "t1")
	cat := &stubCatalog{tabs: map[string]catalog.Tabular{
		ident.String(): stubTabular{ident: ident, location: metaLoc},
	}}

	// Inside the grace age the orphan is kept.
	result, err := NewMaintenance(cat, store, time.Hour).Sweep(ctx, ident)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(result.Deleted) != 0 {
		t.Errorf("Deleted = %v, want none inside grace age", result.Deleted)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != orphan {
		t.Errorf("Skipped = %v, want [%s]", result.Skipped, orphan)
	}

	// Past the grace age it is deleted; live objects are untouched.
	time.Sleep(50 * time.Millisecond)
	result, err = NewMaintenance(cat, store, time.Millisecond).Sweep(ctx, ident)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != orphan {
		t.Errorf("Deleted = %v, want [%s]", result.Deleted, orphan)
	}

	for _, live := range []string{metaLoc, manifestLoc} {
		exists, err := store.Exists(ctx, live)
		if err != nil {
			t.Fatalf("Exists(%s): %v", live, err)
		}
		if !exists {
			t.Errorf("sweep deleted live object %s", live)
		}
	}
	exists, err := store.Exists(ctx, orphan)
	if err != nil {
		t.Fatalf("Exists(orphan): %v", err)
	}
	if exists {
		t.Error("orphan still present after sweep")
	}
}

func TestMaintenanceReconcileView(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	vm, err := types.NewViewMetadata("warehouse/db/v1", "SELECT * FROM db.t1", "db.__v1_storage")
	if err != nil {
		t.Fatalf("NewViewMetadata: %v", err)
	}
	metaLoc := vm.NewMetadataLocation()
	data, err := vm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Put(ctx, metaLoc, data); err != nil {
		t.Fatalf("put view metadata: %v", err)
	}

	orphan := "warehouse/db/v1/metadata/view-old.metadata.json"
	if err := store.Put(ctx, orphan, []byte("{}")); err != nil {
		t.Fatalf("put orphan: %v", err)
	}

	ident := testIdent(t, "v1")
	cat := &stubCatalog{tabs: map[string]catalog.Tabular{
		ident.String(): stubTabular{ident: ident, location: metaLoc},
	}}

	report, err := NewMaintenance(cat, store, 0).Reconcile(ctx, ident)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.LiveObjects != 1 {
		t.Errorf("LiveObjects = %d, want 1", report.LiveObjects)
	}
	if len(report.Orphaned) != 1 || report.Orphaned[0] != orphan {
		t.Errorf("Orphaned = %v, want [%s]", report.Orphaned, orphan)
	}
}
