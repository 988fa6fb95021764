package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLocalStore_PutGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/0-abc.metadata.json"
	content := []byte(`{"format-version":2}`)

	if err := store.Put(ctx, location, content); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := store.Exists(ctx, location)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected object to exist")
	}

	got, err := store.Get(ctx, location)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", got, content)
	}
}

func TestLocalStore_PutIsWriteOnce(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/1-def.metadata.json"

	if err := store.Put(ctx, location, []byte("first")); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	err = store.Put(ctx, location, []byte("second"))
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("second Put err = %v, want ErrObjectExists", err)
	}

	// The original content must be untouched.
	got, err := store.Get(ctx, location)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("content = %q, want original %q", got, "first")
	}
}

func TestLocalStore_ConcurrentPutOneWinner(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/2-race.metadata.json"

	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Put(ctx, location, []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrObjectExists) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("got %d winning writers, want exactly 1", wins)
	}
}

func TestLocalStore_GetMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	_, err = store.Get(context.Background(), "warehouse/missing")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestLocalStore_Stat(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/0-a.metadata.json"
	content := []byte(`{"format-version":2}`)
	if err := store.Put(ctx, location, content); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, err := store.Stat(ctx, location)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Location != location {
		t.Errorf("location = %q, want %q", info.Location, location)
	}
	if info.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", info.SizeBytes, len(content))
	}
	if info.LastModified.IsZero() {
		t.Error("expected a modification time")
	}

	_, err = store.Stat(ctx, "warehouse/missing")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Stat missing err = %v, want ErrObjectNotFound", err)
	}
}

func TestLocalStore_List(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	locations := []string{
		"warehouse/db/t1/metadata/0-a.metadata.json",
		"warehouse/db/t1/metadata/1-b.metadata.json",
		"warehouse/db/t2/metadata/0-c.metadata.json",
	}
	for _, loc := range locations {
		if err := store.Put(ctx, loc, []byte("x")); err != nil {
			t.Fatalf("Put(%s): %v", loc, err)
		}
	}

	objects, err := store.List(ctx, "warehouse/db/t1/metadata")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 {
		t.Errorf("got %d objects, want 2: %v", len(objects), objects)
	}

	// A prefix with no objects lists empty, not an error.
	none, err := store.List(ctx, "warehouse/db/t9")
	if err != nil {
		t.Fatalf("List on missing prefix: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d objects under empty prefix", len(none))
	}
}

func TestLocalStore_DeleteIdempotent(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx := context.Background()
	location := "warehouse/db/t1/metadata/0-a.metadata.json"
	if err := store.Put(ctx, location, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Delete(ctx, location); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, location); err != nil {
		t.Errorf("second Delete should be idempotent, got %v", err)
	}

	exists, err := store.Exists(ctx, location)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("object still exists after delete")
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "x", []byte("y")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put err = %v, want context.Canceled", err)
	}
	if _, err := store.Get(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get err = %v, want context.Canceled", err)
	}
}
