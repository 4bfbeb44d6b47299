package idgen_test

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/artpar/readerspec/adapters/idgen"
)

func TestUUID_New(t *testing.T) {
	id := idgen.UUID{}.New()

	// Version 7: 8-4-4-4-12 hex chars with a 7 version nibble
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("ID %s doesn't match UUID v7 format", id)
	}
}

func TestUUID_New_UniqueAndOrdered(t *testing.T) {
	g := idgen.UUID{}

	ids := make([]string, 1000)
	seen := make(map[string]bool)
	for i := range ids {
		ids[i] = g.New()
		if seen[ids[i]] {
			t.Fatalf("duplicate ID generated: %s", ids[i])
		}
		seen[ids[i]] = true
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("IDs should sort in generation order")
	}
}

func TestSequential_New(t *testing.T) {
	g := idgen.NewSequential("run-")

	for _, want := range []string{"run-1", "run-2", "run-3"} {
		if id := g.New(); id != want {
			t.Errorf("ID = %s, want %s", id, want)
		}
	}
}

func TestSequential_NoPrefix(t *testing.T) {
	if id := idgen.NewSequential("").New(); id != "1" {
		t.Errorf("ID = %s, want 1", id)
	}
}

func TestSequential_Reset(t *testing.T) {
	g := idgen.NewSequential("id_")
	g.New()
	g.New()

	g.Reset()

	if id := g.New(); id != "id_1" {
		t.Errorf("after reset ID = %s, want id_1", id)
	}
}

func TestSequential_Concurrent(t *testing.T) {
	g := idgen.NewSequential("")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := g.New()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate ID %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 1000 {
		t.Errorf("generated %d unique IDs, want 1000", len(seen))
	}
}
