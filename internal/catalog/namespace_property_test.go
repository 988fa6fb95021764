package catalog

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_NamespaceRoundTrip validates that decode(encode(ns)) == ns
// for every constructible namespace, including levels containing dots,
// percent signs, and unicode.
func TestProperty_NamespaceRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	validLevel := gen.AnyString().SuchThat(func(s string) bool {
		return s != "" && !strings.Contains(s, "\x1f")
	})

	properties.Property("decode(encode(ns)) == ns", prop.ForAll(
		func(levels []string) bool {
			ns, err := NewNamespace(levels...)
			if err != nil {
				return false
			}
			back, err := DecodeNamespace(ns.Encode())
			if err != nil {
				return false
			}
			return ns.Equal(back)
		},
		gen.SliceOf(validLevel),
	))

	properties.Property("construction fails iff a level is empty or reserved", prop.ForAll(
		func(levels []string) bool {
			_, err := NewNamespace(levels...)
			invalid := false
			for _, l := range levels {
				if l == "" || strings.Contains(l, "\x1f") {
					invalid = true
					break
				}
			}
			return (err != nil) == invalid
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
