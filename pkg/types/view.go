package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Well-known snapshot summary keys for materialized-view bookkeeping.
// Refreshes stamp both onto the snapshot they produce, piggybacking the
// view's versioning state on the table's own immutable snapshot storage.
const (
	// SummaryVersionKey records the view's logical version id
	SummaryVersionKey = "version-id"

	// SummaryBaseTablesKey records the serialized BaseTable list the
	// snapshot was built from
	SummaryBaseTablesKey = "base-tables"
)

// SentinelSnapshotID marks a base-table snapshot that was never
// successfully captured. A recorded sentinel forces the Invalid state.
const SentinelSnapshotID int64 = -1

// BaseTable records one upstream dependency of a materialized view: the
// table's identifier in dotted form and the snapshot id observed when the
// view was last rebuilt.
type BaseTable struct {
	// Identifier is the dotted form of the upstream table's identifier
	Identifier string `json:"identifier"`

	// SnapshotID is the upstream snapshot observed at the last rebuild
	SnapshotID int64 `json:"snapshot-id"`
}

// EncodeBaseTables serializes base-table records for storage under the
// base-tables summary key.
func EncodeBaseTables(tables []BaseTable) (string, error) {
	data, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("base tables: %w", err)
	}
	return string(data), nil
}

// DecodeBaseTables parses base-table records from a summary entry. A
// corrupt record is an error, never silently an empty list.
func DecodeBaseTables(raw string) ([]BaseTable, error) {
	var tables []BaseTable
	if err := json.Unmarshal([]byte(raw), &tables); err != nil {
		return nil, fmt.Errorf("base tables: %w", err)
	}
	return tables, nil
}

// ViewMetadata is the immutable metadata document of a materialized view:
// its defining query and the identifier of the storage table holding the
// materialized rows. Refreshes rewrite the storage table's metadata, not
// this document.
type ViewMetadata struct {
	// ViewUUID identifies the view
	ViewUUID string `json:"view-uuid"`

	// FormatVersion is the metadata format version of this document
	FormatVersion int `json:"format-version"`

	// Location is the view's root path in the object store
	Location string `json:"location"`

	// Definition is the view's defining query text
	Definition string `json:"definition"`

	// StorageTable is the dotted identifier of the backing table
	StorageTable string `json:"storage-table"`

	// Properties holds free-form view configuration
	Properties map[string]string `json:"properties,omitempty"`
}

// NewViewMetadata constructs a validated view metadata document.
func NewViewMetadata(location, definition, storageTable string) (*ViewMetadata, error) {
	m := &ViewMetadata{
		ViewUUID:      uuid.NewString(),
		FormatVersion: DefaultFormatVersion,
		Location:      location,
		Definition:    definition,
		StorageTable:  storageTable,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseViewMetadata decodes and validates a view metadata document.
func ParseViewMetadata(data []byte) (*ViewMetadata, error) {
	var m ViewMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode serializes the document after validating it.
func (m *ViewMetadata) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Validate checks the document's structural invariants.
func (m *ViewMetadata) Validate() error {
	if m.FormatVersion < 1 || m.FormatVersion > DefaultFormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrInvalidMetadata, m.FormatVersion)
	}
	if m.ViewUUID == "" {
		return fmt.Errorf("%w: missing view uuid", ErrInvalidMetadata)
	}
	if m.Location == "" {
		return fmt.Errorf("%w: missing location", ErrInvalidMetadata)
	}
	if m.Definition == "" {
		return fmt.Errorf("%w: missing view definition", ErrInvalidMetadata)
	}
	if m.StorageTable == "" {
		return fmt.Errorf("%w: missing storage table identifier", ErrInvalidMetadata)
	}
	return nil
}

// NewMetadataLocation derives a fresh, unique location for the view's
// metadata document.
func (m *ViewMetadata) NewMetadataLocation() string {
	return fmt.Sprintf("%s/metadata/view-%s.metadata.json", m.Location, uuid.NewString())
}

// MetadataDir returns the directory the view's metadata documents live
// under.
func (m *ViewMetadata) MetadataDir() string {
	return m.Location + "/metadata"
}

// Clone returns a deep copy of the document.
func (m *ViewMetadata) Clone() *ViewMetadata {
	cp := *m
	if m.Properties != nil {
		cp.Properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			cp.Properties[k] = v
		}
	}
	return &cp
}
