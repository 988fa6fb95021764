package types

import (
	"errors"
	"testing"
)

func TestBaseTables_EncodeDecodeRoundTrip(t *testing.T) {
	orig := []BaseTable{
		{Identifier: "db.t1", SnapshotID: 42},
		{Identifier: "db.t2", SnapshotID: SentinelSnapshotID},
	}
	raw, err := EncodeBaseTables(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeBaseTables(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back) != 2 || back[0] != orig[0] || back[1] != orig[1] {
		t.Errorf("round trip = %+v, want %+v", back, orig)
	}
}

func TestDecodeBaseTables_Corrupt(t *testing.T) {
	if _, err := DecodeBaseTables(`{"not":"a list"`); err == nil {
		t.Error("corrupt record decoded without error")
	}
}

func TestDecodeBaseTables_Empty(t *testing.T) {
	back, err := DecodeBaseTables(`[]`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back) != 0 {
		t.Errorf("got %d records, want 0", len(back))
	}
}

func TestNewViewMetadata(t *testing.T) {
	m, err := NewViewMetadata("s3://warehouse/db/v1", "SELECT * FROM db.t1", "db.__v1_storage")
	if err != nil {
		t.Fatalf("NewViewMetadata: %v", err)
	}
	if m.ViewUUID == "" || m.FormatVersion != DefaultFormatVersion {
		t.Errorf("metadata = %+v", m)
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := ParseViewMetadata(data)
	if err != nil {
		t.Fatalf("ParseViewMetadata: %v", err)
	}
	if back.Definition != m.Definition || back.StorageTable != m.StorageTable {
		t.Errorf("round trip = %+v", back)
	}
}

func TestNewViewMetadata_Invalid(t *testing.T) {
	if _, err := NewViewMetadata("", "SELECT 1", "db.s"); !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("missing location err = %v", err)
	}
	if _, err := NewViewMetadata("s3://x", "", "db.s"); !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("missing definition err = %v", err)
	}
	if _, err := NewViewMetadata("s3://x", "SELECT 1", ""); !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("missing storage table err = %v", err)
	}
}
