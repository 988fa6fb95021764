package catalog

import (
	"fmt"
	"strings"

	ferrors "github.com/firndb/firn/internal/errors"
)

// Identifier names a table or view: a namespace plus a final name.
type Identifier struct {
	namespace Namespace
	name      string
}

// NewIdentifier constructs an identifier. The name must be non-empty.
func NewIdentifier(ns Namespace, name string) (Identifier, error) {
	if name == "" {
		return Identifier{}, ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
			"identifier name is empty")
	}
	return Identifier{namespace: ns, name: name}, nil
}

// ParseIdentifier parses a dotted identifier such as "db.schema.t1".
// The final segment is the name; the preceding segments form the
// namespace. Empty segments are rejected.
func ParseIdentifier(s string) (Identifier, error) {
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "" {
			return Identifier{}, ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
				fmt.Sprintf("identifier %q has empty segment %d", s, i))
		}
	}
	ns, err := NewNamespace(segments[:len(segments)-1]...)
	if err != nil {
		return Identifier{}, err
	}
	return NewIdentifier(ns, segments[len(segments)-1])
}

// Namespace returns the identifier's namespace.
func (i Identifier) Namespace() Namespace {
	return i.namespace
}

// Name returns the identifier's final name segment.
func (i Identifier) Name() string {
	return i.name
}

// String returns the dotted form.
func (i Identifier) String() string {
	if i.namespace.IsEmpty() {
		return i.name
	}
	return i.namespace.String() + "." + i.name
}

// Equal reports structural equality.
func (i Identifier) Equal(other Identifier) bool {
	return i.name == other.name && i.namespace.Equal(other.namespace)
}

// IsZero reports whether the identifier is the zero value.
func (i Identifier) IsZero() bool {
	return i.name == "" && i.namespace.IsEmpty()
}
