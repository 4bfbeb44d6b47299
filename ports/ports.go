// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested document, directory
// or record does not exist. Callers distinguish it from generic I/O failures
// with errors.Is.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// IDGenerator generates unique record IDs.
type IDGenerator interface {
	New() string
}

// Timer is a cancellable delayed call returned by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call
	// already fired or was already stopped.
	Stop() bool
}

// Translation outcomes reported to Metrics.
const (
	TranslationSucceeded = "success"
	TranslationFailed    = "failure"
	TranslationSkipped   = "skipped"
)

// Metrics receives pipeline observations. Implementations must tolerate
// concurrent calls.
type Metrics interface {
	ObserveTranslation(result string, d time.Duration)
	ObserveValidation(valid bool)
	ObserveEvent(coalesced bool)
	SetPending(n int)
}

// -----------------------------------------------------------------------------
// Document Store Ports
// -----------------------------------------------------------------------------

// Document is a spec document read from storage.
type Document struct {
	Path    string
	Content string
	// Name is the base file name without the document extension.
	Name string
}

// DocumentStore reads and writes spec documents.
type DocumentStore interface {
	// Read returns the document at path. Missing files yield ErrNotFound.
	Read(ctx context.Context, path string) (Document, error)

	// Write replaces the document content. A failed write leaves the
	// previous content in place.
	Write(ctx context.Context, path, content string) error

	// List returns every document under root, recursively, sorted.
	// A missing root yields ErrNotFound.
	List(ctx context.Context, root string) ([]string, error)
}

// -----------------------------------------------------------------------------
// History Store Ports
// -----------------------------------------------------------------------------

// HistoryEntry records one translation run.
type HistoryEntry struct {
	ID         string
	Path       string
	Digest     string
	Success    bool
	Confidence float64
	Error      string
	Block      string
	CreatedAt  time.Time
}

// HistoryStore persists translation runs.
type HistoryStore interface {
	// Record stores a run.
	Record(ctx context.Context, e HistoryEntry) error

	// LastSuccess returns the most recent successful run for path,
	// or ErrNotFound.
	LastSuccess(ctx context.Context, path string) (HistoryEntry, error)

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]HistoryEntry, error)
}
