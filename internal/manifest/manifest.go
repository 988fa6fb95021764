// Package manifest persists the data-file lists behind table snapshots
// and runs the maintenance pass that reconciles them with object storage.
package manifest

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	ferrors "github.com/firndb/firn/internal/errors"
	"github.com/firndb/firn/internal/storage"
	"github.com/firndb/firn/pkg/types"
)

// Stored manifests are framed as a fixed magic, the uncompressed payload
// length, then the snappy-compressed JSON document. The length guards
// against truncated or mixed-up objects before unmarshaling.
const (
	manifestMagic      = "FRNM"
	manifestHeaderSize = 8 // 4 bytes magic + 4 bytes uncompressed length
)

// Manifest lists the data files of one snapshot. Like every other
// metadata document it is written once and never modified; a new snapshot
// gets a new manifest at a new location.
type Manifest struct {
	// SnapshotID is the snapshot this manifest belongs to
	SnapshotID int64 `json:"snapshot-id"`

	// SequenceNumber is the commit sequence the snapshot was minted at
	SequenceNumber int64 `json:"sequence-number"`

	// SchemaID is the schema the files were written under
	SchemaID int `json:"schema-id"`

	// SpecID is the partition spec the files were written under
	SpecID int `json:"spec-id"`

	// DataFiles are the registered files
	DataFiles []types.DataFile `json:"data-files"`
}

// New creates an empty manifest for a snapshot.
func New(snapshotID, sequenceNumber int64, schemaID, specID int) *Manifest {
	return &Manifest{
		SnapshotID:     snapshotID,
		SequenceNumber: sequenceNumber,
		SchemaID:       schemaID,
		SpecID:         specID,
	}
}

// Append registers data files. Each file is validated and a file path may
// appear at most once in the manifest.
func (m *Manifest) Append(files ...types.DataFile) error {
	seen := make(map[string]struct{}, len(m.DataFiles)+len(files))
	for _, f := range m.DataFiles {
		seen[f.FilePath] = struct{}{}
	}
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, dup := seen[f.FilePath]; dup {
			return fmt.Errorf("%w: duplicate file path %s", types.ErrInvalidDataFile, f.FilePath)
		}
		seen[f.FilePath] = struct{}{}
	}
	for _, f := range files {
		m.DataFiles = append(m.DataFiles, f.Clone())
	}
	return nil
}

// Len returns the number of registered files.
func (m *Manifest) Len() int {
	return len(m.DataFiles)
}

// RecordCount returns the total record count across registered files.
func (m *Manifest) RecordCount() int64 {
	var total int64
	for _, f := range m.DataFiles {
		total += f.RecordCount
	}
	return total
}

// SizeInBytes returns the total byte size across registered files.
func (m *Manifest) SizeInBytes() int64 {
	var total int64
	for _, f := range m.DataFiles {
		total += f.FileSizeInBytes
	}
	return total
}

// Encode serializes the manifest to its framed, compressed form.
func (m *Manifest) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, ferrors.NewInternalError(fmt.Sprintf("manifest: marshal failed: %v", err), err)
	}

	compressed := snappy.Encode(nil, payload)

	buf := make([]byte, manifestHeaderSize+len(compressed))
	copy(buf[0:4], manifestMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[manifestHeaderSize:], compressed)

	return buf, nil
}

// Decode reconstructs a manifest from its framed, compressed form. Any
// framing, compression, or document failure is a corrupt-manifest decode
// error, never an empty manifest.
func Decode(data []byte) (*Manifest, error) {
	if len(data) < manifestHeaderSize {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest,
			fmt.Sprintf("manifest: %d bytes is too short", len(data)), nil)
	}
	if string(data[0:4]) != manifestMagic {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest,
			fmt.Sprintf("manifest: bad magic %q", data[0:4]), nil)
	}

	want := binary.LittleEndian.Uint32(data[4:8])
	payload, err := snappy.Decode(nil, data[manifestHeaderSize:])
	if err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest,
			"manifest: snappy decode failed", err)
	}
	if uint32(len(payload)) != want {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest,
			fmt.Sprintf("manifest: expected %d payload bytes, got %d", want, len(payload)), nil)
	}

	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest,
			"manifest: unmarshal failed", err)
	}
	if err := m.validate(); err != nil {
		return nil, ferrors.NewDecodeError(ferrors.CodeCorruptManifest, err.Error(), nil)
	}
	return &m, nil
}

// validate checks invariants of a decoded document.
func (m *Manifest) validate() error {
	if m.SnapshotID < 0 {
		return fmt.Errorf("manifest: negative snapshot id %d", m.SnapshotID)
	}
	if m.SequenceNumber < 0 {
		return fmt.Errorf("manifest: negative sequence number %d", m.SequenceNumber)
	}
	seen := make(map[string]struct{}, len(m.DataFiles))
	for _, f := range m.DataFiles {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("manifest: %v", err)
		}
		if _, dup := seen[f.FilePath]; dup {
			return fmt.Errorf("manifest: duplicate file path %s", f.FilePath)
		}
		seen[f.FilePath] = struct{}{}
	}
	return nil
}

// Write encodes the manifest and puts it at location. Locations are
// write-once like all metadata objects.
func Write(ctx context.Context, store storage.ObjectStore, location string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, location, data); err != nil {
		return fmt.Errorf("manifest: write %s: %w", location, err)
	}
	return nil
}

// Read fetches and decodes the manifest at location.
func Read(ctx context.Context, store storage.ObjectStore, location string) (*Manifest, error) {
	data, err := store.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", location, err)
	}
	return Decode(data)
}
