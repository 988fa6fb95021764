package catalog

import "testing"

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in        string
		namespace string
		name      string
	}{
		{"t1", "", "t1"},
		{"db.t1", "db", "t1"},
		{"prod.events.clicks", "prod.events", "clicks"},
	}
	for _, tt := range tests {
		ident, err := ParseIdentifier(tt.in)
		if err != nil {
			t.Fatalf("ParseIdentifier(%q): %v", tt.in, err)
		}
		if ident.Namespace().String() != tt.namespace {
			t.Errorf("ParseIdentifier(%q) namespace = %q, want %q", tt.in, ident.Namespace().String(), tt.namespace)
		}
		if ident.Name() != tt.name {
			t.Errorf("ParseIdentifier(%q) name = %q, want %q", tt.in, ident.Name(), tt.name)
		}
		if ident.String() != tt.in {
			t.Errorf("round trip: String() = %q, want %q", ident.String(), tt.in)
		}
	}
}

func TestParseIdentifier_Invalid(t *testing.T) {
	for _, in := range []string{"", ".", "db.", ".t1", "db..t1"} {
		if _, err := ParseIdentifier(in); err == nil {
			t.Errorf("ParseIdentifier(%q) succeeded, want error", in)
		}
	}
}

func TestNewIdentifier_EmptyName(t *testing.T) {
	ns, _ := NewNamespace("db")
	if _, err := NewIdentifier(ns, ""); err == nil {
		t.Error("empty name accepted")
	}
}

func TestIdentifier_Equal(t *testing.T) {
	a, _ := ParseIdentifier("db.t1")
	b, _ := ParseIdentifier("db.t1")
	c, _ := ParseIdentifier("db.t2")
	d, _ := ParseIdentifier("other.t1")

	if !a.Equal(b) {
		t.Error("identical identifiers not equal")
	}
	if a.Equal(c) || a.Equal(d) {
		t.Error("distinct identifiers reported equal")
	}
}

func TestIdentifier_IsZero(t *testing.T) {
	var zero Identifier
	if !zero.IsZero() {
		t.Error("zero identifier not detected")
	}
	ident, _ := ParseIdentifier("db.t1")
	if ident.IsZero() {
		t.Error("real identifier reported zero")
	}
}
