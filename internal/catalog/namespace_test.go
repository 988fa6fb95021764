package catalog

import (
	"errors"
	"strings"
	"testing"

	ferrors "github.com/firndb/firn/internal/errors"
)

func TestNewNamespace(t *testing.T) {
	ns, err := NewNamespace("prod", "events")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	if got := ns.String(); got != "prod.events" {
		t.Errorf("String() = %q, want %q", got, "prod.events")
	}
	if ns.IsEmpty() {
		t.Error("two-level namespace reported empty")
	}
}

func TestNewNamespace_EmptyLevel(t *testing.T) {
	for _, levels := range [][]string{{""}, {"db", ""}, {"", "db"}} {
		_, err := NewNamespace(levels...)
		if err == nil {
			t.Errorf("NewNamespace(%q) succeeded, want error", levels)
			continue
		}
		var fe *ferrors.FirnError
		if !errors.As(err, &fe) || fe.Code != ferrors.CodeInvalidNamespace {
			t.Errorf("NewNamespace(%q) err = %v, want INVALID_NAMESPACE", levels, err)
		}
	}
}

func TestNewNamespace_ReservedCharacter(t *testing.T) {
	_, err := NewNamespace("db", "a\x1fb")
	var fe *ferrors.FirnError
	if !errors.As(err, &fe) || fe.Code != ferrors.CodeInvalidNamespace {
		t.Errorf("NewNamespace with separator byte: err = %v, want INVALID_NAMESPACE", err)
	}
}

func TestNamespace_Equal(t *testing.T) {
	a, _ := NewNamespace("db", "raw")
	b, _ := NewNamespace("db", "raw")
	c, _ := NewNamespace("raw", "db")
	d, _ := NewNamespace("db")

	if !a.Equal(b) {
		t.Error("identical namespaces not equal")
	}
	if a.Equal(c) {
		t.Error("equality ignored level order")
	}
	if a.Equal(d) {
		t.Error("equality ignored level count")
	}
	if !EmptyNamespace().Equal(EmptyNamespace()) {
		t.Error("empty namespaces not equal")
	}
}

func TestNamespace_EncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]string{
		{"db"},
		{"db", "raw", "events"},
		{"with space", "with.dot"},
		{"percent%level", "plus+level"},
		{"ünïcødé"},
	}
	for _, levels := range cases {
		ns, err := NewNamespace(levels...)
		if err != nil {
			t.Fatalf("NewNamespace(%q): %v", levels, err)
		}
		back, err := DecodeNamespace(ns.Encode())
		if err != nil {
			t.Fatalf("DecodeNamespace(%q): %v", ns.Encode(), err)
		}
		if !ns.Equal(back) {
			t.Errorf("round trip %q -> %q -> %q", levels, ns.Encode(), back.Levels())
		}
	}
}

func TestNamespace_EncodeIsSingleToken(t *testing.T) {
	ns, _ := NewNamespace("db", "raw events")
	token := ns.Encode()
	// Percent-encoding must leave no raw separator or space in the token.
	if strings.ContainsAny(token, "\x1f ") {
		t.Errorf("token %q leaks unencoded characters", token)
	}
}

func TestDecodeNamespace_Empty(t *testing.T) {
	ns, err := DecodeNamespace("")
	if err != nil {
		t.Fatalf("DecodeNamespace(\"\"): %v", err)
	}
	if !ns.IsEmpty() {
		t.Errorf("decoded %q, want empty namespace", ns.Levels())
	}
}

func TestDecodeNamespace_Malformed(t *testing.T) {
	if _, err := DecodeNamespace("%zz"); err == nil {
		t.Error("malformed percent escape decoded without error")
	}
}

func TestNamespace_LevelsIsCopy(t *testing.T) {
	ns, _ := NewNamespace("db", "raw")
	levels := ns.Levels()
	levels[0] = "mutated"
	if ns.Levels()[0] != "db" {
		t.Error("Levels() exposed internal state")
	}
}
