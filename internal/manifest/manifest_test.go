package manifest

import (
	"context"
	"errors"
	"testing"

	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/pkg/types"
)

func testFile(path string, records, size int64) types.DataFile {
	return types.DataFile{
		FilePath:        path,
		FileFormat:      types.FormatParquet,
		RecordCount:     records,
		FileSizeInBytes: size,
	}
}

func TestManifestAppendAndTotals(t *testing.T) {
	m := New(42, 3, 0, 0)

	err := m.Append(
		testFile("warehouse/db/t1/data/a.parquet", 100, 2048),
		testFile("warehouse/db/t1/data/b.parquet", 50, 1024),
	)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
	if m.RecordCount() != 150 {
		t.Errorf("RecordCount = %d, want 150", m.RecordCount())
	}
	if m.SizeInBytes() != 3072 {
		t.Errorf("SizeInBytes = %d, want 3072", m.SizeInBytes())
	}
}

func TestManifestAppendRejectsDuplicatePath(t *testing.T) {
	m := New(42, 3, 0, 0)
	if err := m.Append(testFile("warehouse/db/t1/data/a.parquet", 1, 1)); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	err := m.Append(testFile("warehouse/db/t1/data/a.parquet", 2, 2))
	if !errors.Is(err, types.ErrInvalidDataFile) {
		t.Errorf("err = %v, want ErrInvalidDataFile", err)
	}
	if m.Len() != 1 {
		t.Errorf("failed Append mutated the manifest: Len = %d", m.Len())
	}
}

func TestManifestAppendRejectsInvalidFile(t *testing.T) {
	m := New(42, 3, 0, 0)
	bad := types.DataFile{FilePath: "", FileFormat: types.FormatParquet}
	if err := m.Append(bad); !errors.Is(err, types.ErrInvalidDataFile) {
		t.Errorf("err = %v, want ErrInvalidDataFile", err)
	}
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m := New(42, 3, 1, 0)
	f := testFile("warehouse/db/t1/data/a.parquet", 100, 2048)
	f.Partition = map[string]string{"day": "2024-01-01"}
	if err := m.Append(f); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.SnapshotID != 42 || got.SequenceNumber != 3 || got.SchemaID != 1 || got.SpecID != 0 {
		t.Errorf("header mismatch: %+v", got)
	}
	if got.Len() != 1 {
		t.Fatalf("Len = %d, want 1", got.Len())
	}
	if got.DataFiles[0].FilePath != f.FilePath {
		t.Errorf("file path = %q, want %q", got.DataFiles[0].FilePath, f.FilePath)
	}
	if got.DataFiles[0].Partition["day"] != "2024-01-01" {
		t.Errorf("partition values lost: %+v", got.DataFiles[0].Partition)
	}
}

func TestManifestDecodeCorrupt(t *testing.T) {
	valid, err := New(1, 1, 0, 0).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	truncated := valid[:5]
	badMagic := append([]byte("XXXX"), valid[4:]...)
	garbagePayload := append([]byte{}, valid[:manifestHeaderSize]...)
	garbagePayload = append(garbagePayload, 0xde, 0xad, 0xbe, 0xef)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", truncated},
		{"bad magic", badMagic},
		{"garbage payload", garbagePayload},
	}

	for _, tt := range tests {
		_, err := Decode(tt.data)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		if ferrors.GetCategory(err) != ferrors.ErrCategoryDecode {
			t.Errorf("%s: category = %s, want DECODE", tt.name, ferrors.GetCategory(err))
		}
		if ferrors.GetCode(err) != ferrors.CodeCorruptManifest {
			t.Errorf("%s: code = %s, want %s", tt.name, ferrors.GetCode(err), ferrors.CodeCorruptManifest)
		}
	}
}

func TestManifestWriteRead(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/snap-42-abc.manifest"

	m := New(42, 3, 0, 0)
	if err := m.Append(testFile("warehouse/db/t1/data/a.parquet", 10, 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := Write(ctx, store, location, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(ctx, store, location)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.SnapshotID != 42 || got.Len() != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Manifest locations are write-once like all metadata objects.
	if err := Write(ctx, store, location, m); !errors.Is(err, storage.ErrObjectExists) {
		t.Errorf("second Write err = %v, want ErrObjectExists", err)
	}
}

func TestManifestReadMissing(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	_, err = Read(context.Background(), store, "warehouse/db/t1/metadata/snap-0-missing.manifest")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}
}
