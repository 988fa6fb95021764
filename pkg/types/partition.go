package types

import "fmt"

// PartitionField maps a source schema field through a transform into a
// named partition value.
type PartitionField struct {
	// SourceID is the schema field id the partition value derives from
	SourceID int `json:"source-id"`

	// FieldID is the stable id of this partition field
	FieldID int `json:"field-id"`

	// Name is the partition field name
	Name string `json:"name"`

	// Transform is the applied partition transform
	Transform Transform `json:"transform"`
}

// PartitionSpec is an immutable, versioned description of how a table's
// rows map to partitions.
type PartitionSpec struct {
	// SpecID identifies this spec within the table's partition-spec set
	SpecID int `json:"spec-id"`

	// Fields is the ordered partition field list
	Fields []PartitionField `json:"fields"`
}

// UnpartitionedSpec is the distinguished spec of a table with no
// partitioning. Spec id 0 with no fields.
func UnpartitionedSpec() PartitionSpec {
	return PartitionSpec{SpecID: 0}
}

// Validate checks structural invariants: a non-negative spec id,
// non-empty partition field names, and unique partition field ids.
func (p PartitionSpec) Validate() error {
	if p.SpecID < 0 {
		return fmt.Errorf("partition spec: negative spec id %d", p.SpecID)
	}
	seen := make(map[int]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		if f.Name == "" {
			return fmt.Errorf("partition spec %d: field %d has empty name", p.SpecID, f.FieldID)
		}
		if _, dup := seen[f.FieldID]; dup {
			return fmt.Errorf("partition spec %d: duplicate field id %d", p.SpecID, f.FieldID)
		}
		seen[f.FieldID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the spec.
func (p PartitionSpec) Clone() PartitionSpec {
	cp := p
	cp.Fields = make([]PartitionField, len(p.Fields))
	copy(cp.Fields, p.Fields)
	return cp
}
