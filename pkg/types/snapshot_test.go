package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSummary_JSONFlatten(t *testing.T) {
	s := Summary{
		Operation: OperationAppend,
		Other: map[string]string{
			"added-records": "120",
			"version-id":    "3",
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The summary must flatten into a single object with the operation
	// alongside the other entries.
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["operation"] != OperationAppend {
		t.Errorf("operation = %q, want %q", flat["operation"], OperationAppend)
	}
	if flat["added-records"] != "120" || flat["version-id"] != "3" {
		t.Errorf("entries not flattened: %v", flat)
	}

	var back Summary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Operation != s.Operation {
		t.Errorf("operation = %q, want %q", back.Operation, s.Operation)
	}
	if len(back.Other) != 2 || back.Other["added-records"] != "120" {
		t.Errorf("other = %v, want %v", back.Other, s.Other)
	}
}

func TestSummary_UnmarshalMissingOperation(t *testing.T) {
	var s Summary
	err := json.Unmarshal([]byte(`{"version-id":"1"}`), &s)
	if !errors.Is(err, ErrMissingOperation) {
		t.Errorf("err = %v, want ErrMissingOperation", err)
	}
}

func TestSummary_MergeOverwrites(t *testing.T) {
	s := &Summary{Operation: OperationAppend}
	s.Merge([]SummaryEntry{{Key: "version-id", Value: "1"}})
	s.Merge([]SummaryEntry{{Key: "version-id", Value: "2"}, {Key: "base-tables", Value: "[]"}})

	if got, _ := s.Get("version-id"); got != "2" {
		t.Errorf("version-id = %q, want overwrite to 2", got)
	}
	if len(s.Other) != 2 {
		t.Errorf("len(Other) = %d, want 2 (no duplicates)", len(s.Other))
	}
}

func TestSummary_MergeOrderedWithinOneCall(t *testing.T) {
	s := &Summary{Operation: OperationAppend}
	s.Merge([]SummaryEntry{
		{Key: "k", Value: "first"},
		{Key: "k", Value: "last"},
	})
	if got, _ := s.Get("k"); got != "last" {
		t.Errorf("k = %q, want later entry to win", got)
	}
}

func TestNewSnapshotID(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		id := NewSnapshotID()
		if id < 0 {
			t.Fatalf("snapshot id %d is negative", id)
		}
		if id == SentinelSnapshotID {
			t.Fatalf("snapshot id collided with sentinel")
		}
		seen[id] = struct{}{}
	}
	if len(seen) != 1000 {
		t.Errorf("got %d distinct ids out of 1000", len(seen))
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	parent := int64(7)
	s := Snapshot{
		SnapshotID:       42,
		ParentSnapshotID: &parent,
		SequenceNumber:   3,
		Summary:          &Summary{Operation: OperationAppend, Other: map[string]string{"a": "1"}},
	}
	cp := s.Clone()
	cp.Summary.Other["a"] = "2"
	*cp.ParentSnapshotID = 9

	if s.Summary.Other["a"] != "1" {
		t.Error("clone shares summary map with original")
	}
	if *s.ParentSnapshotID != 7 {
		t.Error("clone shares parent pointer with original")
	}
}
