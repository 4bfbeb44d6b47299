package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/readerspec/adapters/memory"
	"github.com/artpar/readerspec/ports"
)

func TestHistoryStore_Record(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	if err := store.Record(ctx, ports.HistoryEntry{Path: "a.readerspec.md", Success: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].ID != "run-1" {
		t.Errorf("ID = %s, want run-1", entries[0].ID)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestHistoryStore_LastSuccess(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	store.Record(ctx, ports.HistoryEntry{Path: "a", Digest: "d1", Success: true})
	store.Record(ctx, ports.HistoryEntry{Path: "a", Digest: "d2", Success: true})
	store.Record(ctx, ports.HistoryEntry{Path: "a", Digest: "d3", Success: false})
	store.Record(ctx, ports.HistoryEntry{Path: "b", Digest: "b1", Success: true})

	last, err := store.LastSuccess(ctx, "a")
	if err != nil {
		t.Fatalf("LastSuccess failed: %v", err)
	}
	if last.Digest != "d2" {
		t.Errorf("Digest = %s, want d2", last.Digest)
	}

	if _, err := store.LastSuccess(ctx, "missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryStore_List(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Record(ctx, ports.HistoryEntry{Path: "a"})
	}

	recent, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].ID != "run-5" || recent[1].ID != "run-4" {
		t.Errorf("IDs = %s, %s, want newest first", recent[0].ID, recent[1].ID)
	}

	all, _ := store.List(ctx, 0)
	if len(all) != 5 || store.Len() != 5 {
		t.Errorf("len = %d, Len = %d, want 5", len(all), store.Len())
	}
}
