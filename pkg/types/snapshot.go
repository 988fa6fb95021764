package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Snapshot summary operations.
const (
	OperationAppend    = "append"
	OperationReplace   = "replace"
	OperationOverwrite = "overwrite"
	OperationDelete    = "delete"
)

// summaryOperationKey is the reserved summary entry naming the operation.
const summaryOperationKey = "operation"

// Summary is a snapshot's operation plus free-form string bookkeeping.
// It serializes as a single flat JSON object with the operation stored
// under the reserved "operation" key next to the other entries.
type Summary struct {
	// Operation names what produced the snapshot (append, replace, ...)
	Operation string

	// Other holds the remaining bookkeeping entries, application-defined
	// keys included
	Other map[string]string
}

// SummaryEntry is one ordered key/value pair destined for a summary.
type SummaryEntry struct {
	Key   string
	Value string
}

// Merge applies entries in order, overwriting any existing value for the
// same key. Later entries win over earlier ones.
func (s *Summary) Merge(entries []SummaryEntry) {
	if s.Other == nil {
		s.Other = make(map[string]string, len(entries))
	}
	for _, e := range entries {
		s.Other[e.Key] = e.Value
	}
}

// Get returns the entry for key, if present.
func (s *Summary) Get(key string) (string, bool) {
	if s == nil || s.Other == nil {
		return "", false
	}
	v, ok := s.Other[key]
	return v, ok
}

// Clone returns a deep copy of the summary.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	cp := &Summary{Operation: s.Operation}
	if s.Other != nil {
		cp.Other = make(map[string]string, len(s.Other))
		for k, v := range s.Other {
			cp.Other[k] = v
		}
	}
	return cp
}

// MarshalJSON flattens operation and entries into one object.
func (s Summary) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(s.Other)+1)
	for k, v := range s.Other {
		if k == summaryOperationKey {
			continue
		}
		flat[k] = v
	}
	flat[summaryOperationKey] = s.Operation
	return json.Marshal(flat)
}

// UnmarshalJSON splits the operation back out of the flat object.
// A summary without an operation entry is malformed.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	op, ok := flat[summaryOperationKey]
	if !ok {
		return ErrMissingOperation
	}
	delete(flat, summaryOperationKey)
	s.Operation = op
	s.Other = flat
	return nil
}

// Snapshot is an immutable record of a table's contents at one point in
// its history. Created once per data-appending commit and never mutated
// after the owning commit completes.
type Snapshot struct {
	// SnapshotID uniquely identifies the snapshot within its table
	SnapshotID int64 `json:"snapshot-id"`

	// ParentSnapshotID links to the snapshot this one supersedes
	ParentSnapshotID *int64 `json:"parent-snapshot-id,omitempty"`

	// SequenceNumber is the metadata sequence the snapshot was committed at
	SequenceNumber int64 `json:"sequence-number"`

	// TimestampMs is the commit wall-clock time in Unix milliseconds
	TimestampMs int64 `json:"timestamp-ms"`

	// ManifestList locates the manifest describing the snapshot's files
	ManifestList string `json:"manifest-list,omitempty"`

	// Summary carries the operation and bookkeeping entries
	Summary *Summary `json:"summary,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	cp := s
	if s.ParentSnapshotID != nil {
		id := *s.ParentSnapshotID
		cp.ParentSnapshotID = &id
	}
	cp.Summary = s.Summary.Clone()
	return cp
}

// NewSnapshotID generates a random non-negative snapshot id. Folding a
// fresh UUID's two halves keeps ids collision-resistant across processes
// without any coordination.
func NewSnapshotID() int64 {
	u := uuid.New()
	lhs := binary.BigEndian.Uint64(u[:8])
	rhs := binary.BigEndian.Uint64(u[8:])
	return int64((lhs ^ rhs) >> 1)
}

// RefType distinguishes snapshot reference kinds.
type RefType string

const (
	BranchRef RefType = "branch"
	TagRef    RefType = "tag"
)

// MainBranch is the name of the default branch.
const MainBranch = "main"

// SnapshotRef names a snapshot so history can fork (branches) or pin
// (tags) without copying metadata.
type SnapshotRef struct {
	// SnapshotID is the referenced snapshot
	SnapshotID int64 `json:"snapshot-id"`

	// Type is branch or tag
	Type RefType `json:"type"`
}

// Validate checks the ref type token.
func (r SnapshotRef) Validate() error {
	if r.Type != BranchRef && r.Type != TagRef {
		return fmt.Errorf("snapshot ref: unknown type %q", r.Type)
	}
	return nil
}
