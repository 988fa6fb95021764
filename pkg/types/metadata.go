package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultFormatVersion is the metadata format version this library writes.
const DefaultFormatVersion = 2

// TableMetadata is one immutable version of a table's metadata document.
// A new document is written for every commit; the catalog pointer selects
// which document is current. Readers therefore always see a fully-formed
// version, never an intermediate state.
type TableMetadata struct {
	// FormatVersion is the metadata format version of this document
	FormatVersion int `json:"format-version"`

	// TableUUID identifies the table across renames and refreshes
	TableUUID string `json:"table-uuid"`

	// Location is the table's root path in the object store
	Location string `json:"location"`

	// LastSequenceNumber increases by exactly one per successful commit
	LastSequenceNumber int64 `json:"last-sequence-number"`

	// LastUpdatedMs is the wall-clock time of the last commit
	LastUpdatedMs int64 `json:"last-updated-ms"`

	// CurrentSchemaID designates the active schema
	CurrentSchemaID int `json:"current-schema-id"`

	// Schemas is the full schema history
	Schemas []Schema `json:"schemas"`

	// DefaultSpecID designates the active partition spec
	DefaultSpecID int `json:"default-spec-id"`

	// PartitionSpecs is the full partition spec history
	PartitionSpecs []PartitionSpec `json:"partition-specs"`

	// DefaultSortOrderID designates the active sort order
	DefaultSortOrderID int `json:"default-sort-order-id"`

	// SortOrders is the full sort order history
	SortOrders []SortOrder `json:"sort-orders"`

	// CurrentSnapshotID designates the main-line snapshot, if any
	CurrentSnapshotID *int64 `json:"current-snapshot-id,omitempty"`

	// Snapshots is the retained snapshot history
	Snapshots []Snapshot `json:"snapshots,omitempty"`

	// Refs maps branch and tag names to snapshots
	Refs map[string]SnapshotRef `json:"refs,omitempty"`

	// Properties holds free-form table configuration
	Properties map[string]string `json:"properties,omitempty"`
}

// ParseTableMetadata decodes and validates a metadata document.
func ParseTableMetadata(data []byte) (*TableMetadata, error) {
	var m TableMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode serializes the document to its canonical encoding after
// validating it.
func (m *TableMetadata) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Validate checks the document's structural invariants: the designated
// current schema, default spec, and default sort order always reference a
// present entry, snapshot ids are unique, refs point at known snapshots,
// and no snapshot outruns the document's sequence number.
func (m *TableMetadata) Validate() error {
	if m.FormatVersion < 1 || m.FormatVersion > DefaultFormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrInvalidMetadata, m.FormatVersion)
	}
	if m.TableUUID == "" {
		return fmt.Errorf("%w: missing table uuid", ErrInvalidMetadata)
	}
	if m.Location == "" {
		return fmt.Errorf("%w: missing location", ErrInvalidMetadata)
	}
	if m.LastSequenceNumber < 0 {
		return fmt.Errorf("%w: negative sequence number %d", ErrInvalidMetadata, m.LastSequenceNumber)
	}
	if len(m.Schemas) == 0 {
		return fmt.Errorf("%w: no schemas", ErrInvalidMetadata)
	}
	for _, s := range m.Schemas {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if _, ok := m.SchemaByID(m.CurrentSchemaID); !ok {
		return fmt.Errorf("%w: current-schema-id %d not in schema set", ErrInvalidMetadata, m.CurrentSchemaID)
	}
	for _, p := range m.PartitionSpecs {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if _, ok := m.SpecByID(m.DefaultSpecID); !ok {
		return fmt.Errorf("%w: default-spec-id %d not in spec set", ErrInvalidMetadata, m.DefaultSpecID)
	}
	if _, ok := m.SortOrderByID(m.DefaultSortOrderID); !ok {
		return fmt.Errorf("%w: default-sort-order-id %d not in sort-order set", ErrInvalidMetadata, m.DefaultSortOrderID)
	}
	seen := make(map[int64]struct{}, len(m.Snapshots))
	for _, s := range m.Snapshots {
		if _, dup := seen[s.SnapshotID]; dup {
			return fmt.Errorf("%w: duplicate snapshot id %d", ErrInvalidMetadata, s.SnapshotID)
		}
		seen[s.SnapshotID] = struct{}{}
		if s.SequenceNumber > m.LastSequenceNumber {
			return fmt.Errorf("%w: snapshot %d sequence %d exceeds last-sequence-number %d",
				ErrInvalidMetadata, s.SnapshotID, s.SequenceNumber, m.LastSequenceNumber)
		}
	}
	if m.CurrentSnapshotID != nil {
		if _, ok := seen[*m.CurrentSnapshotID]; !ok {
			return fmt.Errorf("%w: current-snapshot-id %d not in snapshot set", ErrInvalidMetadata, *m.CurrentSnapshotID)
		}
	}
	for name, ref := range m.Refs {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("%w: ref %q: %v", ErrInvalidMetadata, name, err)
		}
		if _, ok := seen[ref.SnapshotID]; !ok {
			return fmt.Errorf("%w: ref %q points at unknown snapshot %d", ErrInvalidMetadata, name, ref.SnapshotID)
		}
	}
	return nil
}

// SchemaByID returns the schema with the given id, if present.
func (m *TableMetadata) SchemaByID(id int) (Schema, bool) {
	for _, s := range m.Schemas {
		if s.SchemaID == id {
			return s, true
		}
	}
	return Schema{}, false
}

// CurrentSchema returns the designated current schema.
func (m *TableMetadata) CurrentSchema() (Schema, bool) {
	return m.SchemaByID(m.CurrentSchemaID)
}

// SpecByID returns the partition spec with the given id, if present.
func (m *TableMetadata) SpecByID(id int) (PartitionSpec, bool) {
	for _, p := range m.PartitionSpecs {
		if p.SpecID == id {
			return p, true
		}
	}
	return PartitionSpec{}, false
}

// DefaultSpec returns the designated default partition spec.
func (m *TableMetadata) DefaultSpec() (PartitionSpec, bool) {
	return m.SpecByID(m.DefaultSpecID)
}

// SortOrderByID returns the sort order with the given id, if present.
func (m *TableMetadata) SortOrderByID(id int) (SortOrder, bool) {
	for _, o := range m.SortOrders {
		if o.OrderID == id {
			return o, true
		}
	}
	return SortOrder{}, false
}

// SnapshotByID returns the snapshot with the given id, or nil. The
// returned snapshot is shared with the document and must not be mutated.
func (m *TableMetadata) SnapshotByID(id int64) *Snapshot {
	for i := range m.Snapshots {
		if m.Snapshots[i].SnapshotID == id {
			return &m.Snapshots[i]
		}
	}
	return nil
}

// CurrentSnapshot resolves the current snapshot of a branch. The empty
// branch means the main line. A table with no snapshot on the requested
// line yields nil, not an error.
func (m *TableMetadata) CurrentSnapshot(branch string) *Snapshot {
	if branch == "" || branch == MainBranch {
		if m.CurrentSnapshotID == nil {
			return nil
		}
		return m.SnapshotByID(*m.CurrentSnapshotID)
	}
	ref, ok := m.Refs[branch]
	if !ok {
		return nil
	}
	return m.SnapshotByID(ref.SnapshotID)
}

// NewMetadataLocation derives a fresh, unique location for the next
// metadata document. The name embeds the sequence number and a random
// token, so racing commits never collide on a write target.
func (m *TableMetadata) NewMetadataLocation() string {
	return fmt.Sprintf("%s/metadata/%d-%s.metadata.json", m.Location, m.LastSequenceNumber, uuid.NewString())
}

// NewManifestLocation derives a fresh, unique location for a snapshot's
// manifest document.
func (m *TableMetadata) NewManifestLocation(snapshotID int64) string {
	return fmt.Sprintf("%s/metadata/snap-%d-%s.manifest", m.Location, snapshotID, uuid.NewString())
}

// MetadataDir returns the directory all of the table's metadata and
// manifest documents live under.
func (m *TableMetadata) MetadataDir() string {
	return m.Location + "/metadata"
}

// Clone returns a deep copy of the document.
func (m *TableMetadata) Clone() *TableMetadata {
	cp := *m
	cp.Schemas = make([]Schema, len(m.Schemas))
	for i, s := range m.Schemas {
		cp.Schemas[i] = s.Clone()
	}
	cp.PartitionSpecs = make([]PartitionSpec, len(m.PartitionSpecs))
	for i, p := range m.PartitionSpecs {
		cp.PartitionSpecs[i] = p.Clone()
	}
	cp.SortOrders = make([]SortOrder, len(m.SortOrders))
	for i, o := range m.SortOrders {
		cp.SortOrders[i] = o.Clone()
	}
	cp.Snapshots = make([]Snapshot, len(m.Snapshots))
	for i, s := range m.Snapshots {
		cp.Snapshots[i] = s.Clone()
	}
	if m.CurrentSnapshotID != nil {
		id := *m.CurrentSnapshotID
		cp.CurrentSnapshotID = &id
	}
	if m.Refs != nil {
		cp.Refs = make(map[string]SnapshotRef, len(m.Refs))
		for k, v := range m.Refs {
			cp.Refs[k] = v
		}
	}
	if m.Properties != nil {
		cp.Properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			cp.Properties[k] = v
		}
	}
	return &cp
}

// MetadataBuilder assembles the next metadata version. Commits clone the
// current document into a builder, fold their operations over it, and
// only publish the result of Build; a failed fold leaves the source
// document untouched. The builder must not be reused after Build.
type MetadataBuilder struct {
	m *TableMetadata
}

// NewMetadataBuilder starts a builder for a brand-new table at the given
// location with an initial schema, partition spec, and sort order.
func NewMetadataBuilder(location string, schema Schema, spec PartitionSpec, order SortOrder) (*MetadataBuilder, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: missing location", ErrInvalidMetadata)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	m := &TableMetadata{
		FormatVersion:      DefaultFormatVersion,
		TableUUID:          uuid.NewString(),
		Location:           location,
		LastSequenceNumber: 0,
		LastUpdatedMs:      time.Now().UnixMilli(),
		CurrentSchemaID:    schema.SchemaID,
		Schemas:            []Schema{schema.Clone()},
		DefaultSpecID:      spec.SpecID,
		PartitionSpecs:     []PartitionSpec{spec.Clone()},
		DefaultSortOrderID: order.OrderID,
		SortOrders:         []SortOrder{order.Clone()},
	}
	return &MetadataBuilder{m: m}, nil
}

// BuilderFrom starts a builder from a deep clone of an existing document.
func BuilderFrom(m *TableMetadata) *MetadataBuilder {
	return &MetadataBuilder{m: m.Clone()}
}

// RebuildFrom starts a builder that keeps a document's identity and shape
// (format version, uuid, location, schema/spec/sort-order sets and their
// designated ids, properties) but discards its snapshot history. Used by
// full refreshes, which replace a table's contents wholesale. The
// sequence number is preserved so it stays monotonic across the rebuild.
func RebuildFrom(m *TableMetadata) *MetadataBuilder {
	cp := m.Clone()
	cp.Snapshots = nil
	cp.CurrentSnapshotID = nil
	cp.Refs = nil
	return &MetadataBuilder{m: cp}
}

// SequenceNumber returns the working document's sequence number.
func (b *MetadataBuilder) SequenceNumber() int64 {
	return b.m.LastSequenceNumber
}

// BumpSequence increments the sequence number by exactly one and returns
// the new value.
func (b *MetadataBuilder) BumpSequence() int64 {
	b.m.LastSequenceNumber++
	return b.m.LastSequenceNumber
}

// Location returns the working document's location root.
func (b *MetadataBuilder) Location() string {
	return b.m.Location
}

// CurrentSnapshot resolves the working document's current snapshot for a
// branch, or nil.
func (b *MetadataBuilder) CurrentSnapshot(branch string) *Snapshot {
	return b.m.CurrentSnapshot(branch)
}

// Snapshots returns a copy of the working snapshot history in insertion
// order.
func (b *MetadataBuilder) Snapshots() []Snapshot {
	out := make([]Snapshot, len(b.m.Snapshots))
	for i, s := range b.m.Snapshots {
		out[i] = s.Clone()
	}
	return out
}

// Refs returns a copy of the working ref set.
func (b *MetadataBuilder) Refs() map[string]SnapshotRef {
	out := make(map[string]SnapshotRef, len(b.m.Refs))
	for k, v := range b.m.Refs {
		out[k] = v
	}
	return out
}

// NewMetadataLocation derives a fresh location for publishing the working
// document.
func (b *MetadataBuilder) NewMetadataLocation() string {
	return b.m.NewMetadataLocation()
}

// NewManifestLocation derives a fresh manifest location from the working
// document.
func (b *MetadataBuilder) NewManifestLocation(snapshotID int64) string {
	return b.m.NewManifestLocation(snapshotID)
}

// AddSchema adds a schema to the working set. The id must be unused.
func (b *MetadataBuilder) AddSchema(s Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := b.m.SchemaByID(s.SchemaID); exists {
		return fmt.Errorf("%w: schema id %d", ErrDuplicateID, s.SchemaID)
	}
	b.m.Schemas = append(b.m.Schemas, s.Clone())
	return nil
}

// SetCurrentSchema repoints the current schema to an existing id.
func (b *MetadataBuilder) SetCurrentSchema(id int) error {
	if _, ok := b.m.SchemaByID(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSchemaID, id)
	}
	b.m.CurrentSchemaID = id
	return nil
}

// AddPartitionSpec adds a partition spec to the working set. The id must
// be unused.
func (b *MetadataBuilder) AddPartitionSpec(p PartitionSpec) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := b.m.SpecByID(p.SpecID); exists {
		return fmt.Errorf("%w: spec id %d", ErrDuplicateID, p.SpecID)
	}
	b.m.PartitionSpecs = append(b.m.PartitionSpecs, p.Clone())
	return nil
}

// SetDefaultSpec repoints the default partition spec to an existing id.
func (b *MetadataBuilder) SetDefaultSpec(id int) error {
	if _, ok := b.m.SpecByID(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSpecID, id)
	}
	b.m.DefaultSpecID = id
	return nil
}

// AddSortOrder adds a sort order to the working set. The id must be
// unused.
func (b *MetadataBuilder) AddSortOrder(o SortOrder) error {
	if _, exists := b.m.SortOrderByID(o.OrderID); exists {
		return fmt.Errorf("%w: sort order id %d", ErrDuplicateID, o.OrderID)
	}
	b.m.SortOrders = append(b.m.SortOrders, o.Clone())
	return nil
}

// SetDefaultSortOrder repoints the default sort order to an existing id.
func (b *MetadataBuilder) SetDefaultSortOrder(id int) error {
	if _, ok := b.m.SortOrderByID(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSortOrderID, id)
	}
	b.m.DefaultSortOrderID = id
	return nil
}

// SetProperty sets one table property.
func (b *MetadataBuilder) SetProperty(key, value string) {
	if b.m.Properties == nil {
		b.m.Properties = make(map[string]string)
	}
	b.m.Properties[key] = value
}

// AddSnapshot appends a snapshot to the working history. The id must be
// unused and the snapshot's sequence number must not outrun the document.
func (b *MetadataBuilder) AddSnapshot(s Snapshot) error {
	if b.m.SnapshotByID(s.SnapshotID) != nil {
		return fmt.Errorf("%w: snapshot id %d", ErrDuplicateID, s.SnapshotID)
	}
	if s.SequenceNumber > b.m.LastSequenceNumber {
		return fmt.Errorf("%w: snapshot sequence %d exceeds document sequence %d",
			ErrInvalidMetadata, s.SequenceNumber, b.m.LastSequenceNumber)
	}
	b.m.Snapshots = append(b.m.Snapshots, s.Clone())
	return nil
}

// SetCurrentSnapshot makes an existing snapshot current on a branch. The
// empty branch means the main line; the main line always moves the
// document's current-snapshot-id as well as the branch ref.
func (b *MetadataBuilder) SetCurrentSnapshot(id int64, branch string) error {
	if b.m.SnapshotByID(id) == nil {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshotID, id)
	}
	if branch == "" {
		branch = MainBranch
	}
	if branch == MainBranch {
		b.m.CurrentSnapshotID = &id
	}
	if b.m.Refs == nil {
		b.m.Refs = make(map[string]SnapshotRef)
	}
	b.m.Refs[branch] = SnapshotRef{SnapshotID: id, Type: BranchRef}
	return nil
}

// MergeSnapshotSummary merges entries into an existing snapshot's
// summary, overwriting on duplicate keys.
func (b *MetadataBuilder) MergeSnapshotSummary(id int64, entries []SummaryEntry) error {
	s := b.m.SnapshotByID(id)
	if s == nil {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshotID, id)
	}
	if s.Summary == nil {
		s.Summary = &Summary{Other: make(map[string]string)}
	}
	s.Summary.Merge(entries)
	return nil
}

// RemoveSnapshots drops the given ids from the working history. Refs
// pointing at a dropped snapshot are pruned; if the main line pointed at
// one, it is unset.
func (b *MetadataBuilder) RemoveSnapshots(ids ...int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := b.m.Snapshots[:0]
	for _, s := range b.m.Snapshots {
		if _, gone := drop[s.SnapshotID]; !gone {
			kept = append(kept, s)
		}
	}
	b.m.Snapshots = kept
	for name, ref := range b.m.Refs {
		if _, gone := drop[ref.SnapshotID]; gone {
			delete(b.m.Refs, name)
		}
	}
	if b.m.CurrentSnapshotID != nil {
		if _, gone := drop[*b.m.CurrentSnapshotID]; gone {
			b.m.CurrentSnapshotID = nil
		}
	}
}

// Build stamps the update time, validates the assembled document, and
// returns it.
func (b *MetadataBuilder) Build() (*TableMetadata, error) {
	b.m.LastUpdatedMs = time.Now().UnixMilli()
	if err := b.m.Validate(); err != nil {
		return nil, err
	}
	return b.m, nil
}
