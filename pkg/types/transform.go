package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// TransformKind enumerates the partition transform families.
type TransformKind string

const (
	TransformIdentity TransformKind = "identity"
	TransformVoid     TransformKind = "void"
	TransformYear     TransformKind = "year"
	TransformMonth    TransformKind = "month"
	TransformDay      TransformKind = "day"
	TransformHour     TransformKind = "hour"
	TransformBucket   TransformKind = "bucket"
	TransformTruncate TransformKind = "truncate"
)

// Transform is a partition transform applied to a source field.
// Bucket and truncate carry a parameter (bucket count, truncate width);
// the others are parameterless. The canonical encoding is a single token:
// "identity", "bucket[16]", "truncate[10]".
type Transform struct {
	Kind TransformKind
	N    int
}

// ParseTransform parses a transform token. Malformed tokens, a zero or
// negative parameter, and unknown transform names all fail.
func ParseTransform(s string) (Transform, error) {
	switch TransformKind(s) {
	case TransformIdentity, TransformVoid, TransformYear, TransformMonth, TransformDay, TransformHour:
		return Transform{Kind: TransformKind(s)}, nil
	}
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
	}
	kind := TransformKind(s[:open])
	if kind != TransformBucket && kind != TransformTruncate {
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || n <= 0 {
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
	}
	return Transform{Kind: kind, N: n}, nil
}

// String returns the canonical token for the transform.
func (t Transform) String() string {
	switch t.Kind {
	case TransformBucket, TransformTruncate:
		return fmt.Sprintf("%s[%d]", t.Kind, t.N)
	default:
		return string(t.Kind)
	}
}

// Bucket hashes a value into one of N buckets using murmur3 x86 32-bit,
// the hash every table-format implementation must agree on for bucket
// partitioning. Only valid for bucket transforms.
func (t Transform) Bucket(value []byte) (int, error) {
	if t.Kind != TransformBucket || t.N <= 0 {
		return 0, fmt.Errorf("%w: %s is not a bucket transform", ErrInvalidTransform, t)
	}
	h := murmur3.Sum32(value)
	return int(h&math.MaxInt32) % t.N, nil
}

// MarshalJSON encodes the transform as its canonical token.
func (t Transform) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses the transform from its canonical token.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTransform(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
