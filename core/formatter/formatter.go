// Package formatter provides a pluggable output formatting system.
// Formatters convert command results to various output formats (table, json, yaml).
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Formatter converts structured data to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records.
	FormatList(w io.Writer, l Listing, records []map[string]any, opts FormatOptions) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, l Listing, record map[string]any, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// Listing describes the kind of record being formatted.
type Listing struct {
	// Kind names the records, e.g. "resources" or "history".
	Kind string

	// Columns is the default column order.
	Columns []string

	// Hidden columns are left out unless requested explicitly.
	Hidden []string
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which fields to include (nil = listing defaults).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[r.defaultFmt]; ok {
		return f
	}
	// Fallback to first available by name
	names := r.namesLocked()
	if len(names) == 0 {
		return nil
	}
	return r.formatters[names[0]]
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named formatter, or the default when name is empty.
func (r *Registry) Lookup(name string) (Formatter, error) {
	if name == "" {
		if f := r.Default(); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("no formatters registered")
	}
	f, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, r.List())
	}
	return f, nil
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// Lookup resolves a format name against the default registry.
func Lookup(name string) (Formatter, error) {
	return DefaultRegistry.Lookup(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// columns resolves the columns to emit for l.
func columns(l Listing, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	hidden := make(map[string]bool, len(l.Hidden))
	for _, h := range l.Hidden {
		hidden[h] = true
	}
	var out []string
	for _, c := range l.Columns {
		if !hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// filterRecord keeps only cols from record. With no listing columns the
// record is returned minus hidden keys.
func filterRecord(l Listing, record map[string]any, requested []string) map[string]any {
	if record == nil {
		return nil
	}
	if len(requested) == 0 && len(l.Columns) == 0 {
		hidden := make(map[string]bool, len(l.Hidden))
		for _, h := range l.Hidden {
			hidden[h] = true
		}
		result := make(map[string]any, len(record))
		for k, v := range record {
			if !hidden[k] {
				result[k] = v
			}
		}
		return result
	}

	result := make(map[string]any)
	for _, col := range columns(l, requested) {
		if val, ok := record[col]; ok {
			result[col] = val
		}
	}
	return result
}

func filterRecords(l Listing, records []map[string]any, requested []string) []map[string]any {
	result := make([]map[string]any, len(records))
	for i, record := range records {
		result[i] = filterRecord(l, record, requested)
	}
	return result
}
