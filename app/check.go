package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/core/spec"
	"github.com/artpar/readerspec/core/validation"
	"github.com/artpar/readerspec/ports"
)

// Outcome is the check result for one document.
type Outcome struct {
	Path string
	Name string
	// ParseErrors holds read and block extraction failures. When it is
	// non-empty the document was never validated.
	ParseErrors []string
	Result      validation.Result
	// Description is set only when the document is valid.
	Description *spec.ResourceDescription
}

// OK reports whether the document parsed and validated.
func (o Outcome) OK() bool {
	return len(o.ParseErrors) == 0 && o.Result.Valid
}

// Errors returns parse errors followed by validation errors.
func (o Outcome) Errors() []string {
	out := make([]string, 0, len(o.ParseErrors)+len(o.Result.Errors))
	out = append(out, o.ParseErrors...)
	return append(out, o.Result.Errors...)
}

// Summary counts outcomes across a batch.
type Summary struct {
	Total    int
	Valid    int
	Invalid  int
	Errors   int
	Warnings int
}

// Report is the result of checking every document under a root.
type Report struct {
	Root     string
	Outcomes []Outcome
	Summary  Summary
}

// Failed reports whether any document is invalid.
func (r Report) Failed() bool {
	return r.Summary.Invalid > 0
}

// Valid returns the descriptions of every valid document, in path order.
func (r Report) Valid() []spec.ResourceDescription {
	var out []spec.ResourceDescription
	for _, o := range r.Outcomes {
		if o.OK() && o.Description != nil {
			out = append(out, *o.Description)
		}
	}
	return out
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Summary.Total++
	r.Summary.Warnings += len(o.Result.Warnings)
	if o.OK() {
		r.Summary.Valid++
		return
	}
	r.Summary.Invalid++
	r.Summary.Errors += len(o.Errors())
}

// Checker parses and validates documents in batch.
type Checker struct {
	store   ports.DocumentStore
	metrics ports.Metrics
	logger  zerolog.Logger
}

// CheckerDeps contains dependencies for Checker.
type CheckerDeps struct {
	Store   ports.DocumentStore
	Metrics ports.Metrics // optional
	Logger  zerolog.Logger
}

// NewChecker creates a new checker.
func NewChecker(deps CheckerDeps) *Checker {
	c := &Checker{
		store:   deps.Store,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	return c
}

// CheckAll checks every document under root. A bad document never stops
// the batch; the only error is failing to list root.
func (c *Checker) CheckAll(ctx context.Context, root string) (Report, error) {
	paths, err := c.store.List(ctx, root)
	if err != nil {
		return Report{}, fmt.Errorf("list documents: %w", err)
	}

	report := Report{Root: root, Outcomes: make([]Outcome, 0, len(paths))}
	for _, p := range paths {
		report.add(c.CheckDocument(ctx, p))
	}

	c.logger.Info().
		Str("root", root).
		Int("total", report.Summary.Total).
		Int("valid", report.Summary.Valid).
		Int("invalid", report.Summary.Invalid).
		Msg("documents checked")
	return report, nil
}

// CheckDocument reads, parses and validates one document.
func (c *Checker) CheckDocument(ctx context.Context, path string) Outcome {
	out := Outcome{Path: path}

	doc, err := c.store.Read(ctx, path)
	if err != nil {
		out.ParseErrors = []string{fmt.Sprintf("read document: %v", err)}
		c.logger.Warn().Err(err).Str("path", path).Msg("cannot read document")
		return out
	}
	out.Name = doc.Name

	parsed := document.Parse(doc.Content)
	if len(parsed.Errors) > 0 {
		out.ParseErrors = parsed.Errors
		c.logger.Debug().Str("path", path).Strs("errors", parsed.Errors).Msg("document did not parse")
		return out
	}

	rd, result := validation.Check(parsed.Block)
	out.Result = result
	c.metrics.ObserveValidation(result.Valid)
	if result.Valid {
		out.Description = &rd
	}

	c.logger.Debug().
		Str("path", path).
		Bool("valid", result.Valid).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("document checked")
	return out
}

// Find checks the document named name under root. It returns
// ports.ErrNotFound when no document has that name.
func (c *Checker) Find(ctx context.Context, root, name string) (Outcome, error) {
	paths, err := c.store.List(ctx, root)
	if err != nil {
		return Outcome{}, fmt.Errorf("list documents: %w", err)
	}
	for _, p := range paths {
		doc, err := c.store.Read(ctx, p)
		if err != nil {
			continue
		}
		if doc.Name == name {
			return c.CheckDocument(ctx, p), nil
		}
	}
	return Outcome{}, fmt.Errorf("document %q: %w", name, ports.ErrNotFound)
}
