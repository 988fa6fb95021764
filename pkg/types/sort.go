package types

// SortDirection orders values ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// NullOrder places nulls before or after non-null values.
type NullOrder string

const (
	NullsFirst NullOrder = "nulls-first"
	NullsLast  NullOrder = "nulls-last"
)

// SortField sorts rows by a transformed source field.
type SortField struct {
	// SourceID is the schema field id the sort key derives from
	SourceID int `json:"source-id"`

	// Transform is applied to the source value before comparison
	Transform Transform `json:"transform"`

	// Direction is the sort direction
	Direction SortDirection `json:"direction"`

	// NullOrder places nulls relative to non-null values
	NullOrder NullOrder `json:"null-order"`
}

// SortOrder is an immutable, versioned description of a table's row order.
// Order id 0 with no fields is the distinguished unsorted order.
type SortOrder struct {
	// OrderID identifies this order within the table's sort-order set
	OrderID int `json:"order-id"`

	// Fields is the ordered sort key list
	Fields []SortField `json:"fields"`
}

// UnsortedOrder is the distinguished order of a table with no sort.
func UnsortedOrder() SortOrder {
	return SortOrder{OrderID: 0}
}

// IsUnsorted reports whether the order carries no sort keys.
func (o SortOrder) IsUnsorted() bool {
	return len(o.Fields) == 0
}

// Clone returns a deep copy of the order.
func (o SortOrder) Clone() SortOrder {
	cp := o
	cp.Fields = make([]SortField, len(o.Fields))
	copy(cp.Fields, o.Fields)
	return cp
}
