package types

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_BucketRange validates that bucket hashing always lands in
// [0, N) for any input value and any positive bucket count.
func TestProperty_BucketRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("bucket value is always within [0, N)", prop.ForAll(
		func(value string, n int) bool {
			tr := Transform{Kind: TransformBucket, N: n}
			b, err := tr.Bucket([]byte(value))
			if err != nil {
				return false
			}
			return b >= 0 && b < n
		},
		gen.AnyString(),
		gen.IntRange(1, 4096),
	))

	properties.Property("bucket is stable for equal inputs", prop.ForAll(
		func(value string, n int) bool {
			tr := Transform{Kind: TransformBucket, N: n}
			a, err1 := tr.Bucket([]byte(value))
			b, err2 := tr.Bucket([]byte(value))
			return err1 == nil && err2 == nil && a == b
		},
		gen.AnyString(),
		gen.IntRange(1, 4096),
	))

	properties.TestingRun(t)
}

// TestProperty_TransformTokenRoundTrip validates that every parameterized
// transform token survives a parse/format cycle.
func TestProperty_TransformTokenRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("bucket[N] and truncate[W] round-trip", prop.ForAll(
		func(n int, bucket bool) bool {
			kind := TransformTruncate
			if bucket {
				kind = TransformBucket
			}
			token := fmt.Sprintf("%s[%d]", kind, n)
			parsed, err := ParseTransform(token)
			if err != nil {
				return false
			}
			return parsed.Kind == kind && parsed.N == n && parsed.String() == token
		},
		gen.IntRange(1, 1<<20),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
