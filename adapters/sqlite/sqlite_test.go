package sqlite_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/artpar/readerspec/adapters/idgen"
	"github.com/artpar/readerspec/adapters/sqlite"
	"github.com/artpar/readerspec/ports"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "readerspec-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
	}

	return db, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("applied migrations = %d, want 1", count)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	store := sqlite.NewHistoryStore(db)
	if err := store.Record(context.Background(), ports.HistoryEntry{Path: "a", Success: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
}

// -----------------------------------------------------------------------------
// HistoryStore Tests
// -----------------------------------------------------------------------------

func TestHistoryStore_RecordAndLastSuccess(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewHistoryStore(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []ports.HistoryEntry{
		{ID: "h1", Path: "specs/todos.readerspec.md", Digest: "d1", Success: true, Confidence: 0.9, Block: "{}", CreatedAt: base},
		{ID: "h2", Path: "specs/todos.readerspec.md", Digest: "d2", Success: true, Confidence: 0.9, Block: `{"a":1}`, CreatedAt: base.Add(time.Minute)},
		{ID: "h3", Path: "specs/todos.readerspec.md", Digest: "d3", Success: false, Error: "no JSON found in response", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "h4", Path: "specs/posts.readerspec.md", Digest: "p1", Success: true, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) failed: %v", e.ID, err)
		}
	}

	last, err := store.LastSuccess(ctx, "specs/todos.readerspec.md")
	if err != nil {
		t.Fatalf("LastSuccess failed: %v", err)
	}
	if last.ID != "h2" {
		t.Errorf("ID = %s, want h2", last.ID)
	}
	if last.Digest != "d2" || last.Block != `{"a":1}` || last.Confidence != 0.9 || !last.Success {
		t.Errorf("entry = %+v", last)
	}
	if !last.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v", last.CreatedAt)
	}
}

func TestHistoryStore_LastSuccess_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewHistoryStore(db)
	ctx := context.Background()

	if err := store.Record(ctx, ports.HistoryEntry{Path: "x", Success: false, Error: "boom"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	_, err := store.LastSuccess(ctx, "x")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryStore_List(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewHistoryStore(db).WithIDGenerator(idgen.NewSequential("run-"))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, ports.HistoryEntry{
			Path:      "specs/todos.readerspec.md",
			Success:   i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if !recent[0].CreatedAt.Equal(base.Add(4 * time.Second)) {
		t.Errorf("first entry CreatedAt = %v, want newest", recent[0].CreatedAt)
	}
	if recent[0].ID != "run-5" {
		t.Errorf("first entry ID = %s, want run-5", recent[0].ID)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("len = %d, want 5", len(all))
	}
}
