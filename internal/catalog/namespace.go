// Package catalog defines the naming types and the catalog contract the
// commit and refresh protocols are built against: namespaces,
// identifiers, and the Tabular entities a catalog resolves them to.
package catalog

import (
	"fmt"
	"net/url"
	"strings"

	ferrors "github.com/firndb/firn/internal/errors"
)

// namespaceSeparator joins levels inside an encoded namespace token.
// Level names are rejected if they contain it, so the encoding stays
// reversible and encoded tokens collide only for equal namespaces.
const namespaceSeparator = "\x1f"

// Namespace is an ordered sequence of non-empty levels identifying a
// logical grouping of tables. Immutable after construction.
type Namespace struct {
	levels []string
}

// NewNamespace constructs a namespace from its levels. Construction
// fails if any level is the empty string or contains the reserved
// separator character.
func NewNamespace(levels ...string) (Namespace, error) {
	for i, level := range levels {
		if level == "" {
			return Namespace{}, ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
				fmt.Sprintf("namespace level %d is empty", i))
		}
		if strings.Contains(level, namespaceSeparator) {
			return Namespace{}, ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
				fmt.Sprintf("namespace level %d contains a reserved control character", i))
		}
	}
	cp := make([]string, len(levels))
	copy(cp, levels)
	return Namespace{levels: cp}, nil
}

// EmptyNamespace returns the distinguished namespace with no levels.
func EmptyNamespace() Namespace {
	return Namespace{}
}

// Levels returns a copy of the namespace's levels.
func (n Namespace) Levels() []string {
	cp := make([]string, len(n.levels))
	copy(cp, n.levels)
	return cp
}

// IsEmpty reports whether the namespace has no levels.
func (n Namespace) IsEmpty() bool {
	return len(n.levels) == 0
}

// Equal reports structural equality over the full level sequence.
func (n Namespace) Equal(other Namespace) bool {
	if len(n.levels) != len(other.levels) {
		return false
	}
	for i := range n.levels {
		if n.levels[i] != other.levels[i] {
			return false
		}
	}
	return true
}

// String joins the levels with dots for display.
func (n Namespace) String() string {
	return strings.Join(n.levels, ".")
}

// Encode packs the namespace into a single reversible token: levels
// joined with the unit separator, then percent-encoded.
func (n Namespace) Encode() string {
	return url.QueryEscape(strings.Join(n.levels, namespaceSeparator))
}

// DecodeNamespace inverts Encode. Decoding the empty token yields the
// empty namespace; a token with an empty level is rejected.
func DecodeNamespace(token string) (Namespace, error) {
	joined, err := url.QueryUnescape(token)
	if err != nil {
		return Namespace{}, ferrors.NewValidationError(ferrors.CodeInvalidNamespace,
			fmt.Sprintf("malformed namespace token %q: %v", token, err))
	}
	if joined == "" {
		return EmptyNamespace(), nil
	}
	return NewNamespace(strings.Split(joined, namespaceSeparator)...)
}
