// Package types provides the metadata value types for Firn tables:
// schemas, partition specs, sort orders, snapshots, data files, and the
// versioned table metadata document that ties them together. All types
// serialize to the canonical kebab-case JSON encoding.
package types

import "fmt"

// Field defines a single named column in a schema.
type Field struct {
	// ID is the stable field id, unique within the schema
	ID int `json:"id"`

	// Name is the field name
	Name string `json:"name"`

	// Type is the field's type token (e.g. "long", "string", "timestamp")
	Type string `json:"type"`

	// Required indicates whether the field may be null
	Required bool `json:"required"`
}

// Schema is an immutable, versioned description of a table's columns.
type Schema struct {
	// SchemaID identifies this schema within the table's schema set
	SchemaID int `json:"schema-id"`

	// Fields is the ordered column list
	Fields []Field `json:"fields"`
}

// Validate checks structural invariants: a non-negative schema id,
// non-empty field names and types, and unique field ids.
func (s Schema) Validate() error {
	if s.SchemaID < 0 {
		return fmt.Errorf("%w: negative schema id %d", ErrInvalidSchema, s.SchemaID)
	}
	seen := make(map[int]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has empty name", ErrInvalidSchema, f.ID)
		}
		if f.Type == "" {
			return fmt.Errorf("%w: field %q has empty type", ErrInvalidSchema, f.Name)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate field id %d", ErrInvalidSchema, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// FieldByID returns the field with the given id, if present.
func (s Schema) FieldByID(id int) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByName returns the field with the given name, if present.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	cp := s
	cp.Fields = make([]Field, len(s.Fields))
	copy(cp.Fields, s.Fields)
	return cp
}
