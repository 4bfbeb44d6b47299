// Package app provides application services that orchestrate domain logic.
package app

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/artpar/readerspec/core/completion"
	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/core/prompt"
	"github.com/artpar/readerspec/core/timing"
	"github.com/artpar/readerspec/ports"
)

var (
	// ErrNoSections means the document has no "## " sections to translate.
	ErrNoSections = errors.New("no human-readable sections found")

	// ErrInvalidBlock means the completion reply did not survive a second
	// JSON check.
	ErrInvalidBlock = errors.New("generated JSON failed validation")
)

// Translator produces a block from a prompt. *completion.Client implements it.
type Translator interface {
	Translate(ctx context.Context, prompt string) completion.Result
}

// TranslationResult is the outcome of one TranslateAndUpdate call.
type TranslationResult struct {
	Path       string
	Success    bool
	Block      string
	Confidence float64
	// Skipped is true when the prose was unchanged since the last
	// successful run and no completion call was made.
	Skipped bool
	Err     error
}

// Message returns the failure text, or "" on success.
func (r TranslationResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// TranslationService runs the read, split, prompt, complete, rewrite
// pipeline. It is safe for concurrent use on different paths.
type TranslationService struct {
	store      ports.DocumentStore
	translator Translator
	history    ports.HistoryStore
	metrics    ports.Metrics
	clock      ports.Clock
	logger     zerolog.Logger
	force      bool

	mu   sync.Mutex
	last map[string]ports.HistoryEntry // latest success per path
}

// TranslationDeps contains dependencies for TranslationService.
type TranslationDeps struct {
	Store      ports.DocumentStore
	Translator Translator
	// History is optional. When set, every run is recorded and unchanged
	// prose is not sent to the completion service again.
	History ports.HistoryStore
	Metrics ports.Metrics // optional
	Clock   ports.Clock   // optional, defaults to wall time
	Logger  zerolog.Logger
}

// TranslationConfig contains configuration for TranslationService.
type TranslationConfig struct {
	// Force disables the unchanged-prose skip.
	Force bool
}

// NewTranslationService creates a new translation service.
func NewTranslationService(deps TranslationDeps, cfg TranslationConfig) *TranslationService {
	s := &TranslationService{
		store:      deps.Store,
		translator: deps.Translator,
		history:    deps.History,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		logger:     deps.Logger,
		force:      cfg.Force,
		last:       make(map[string]ports.HistoryEntry),
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.clock == nil {
		s.clock = wallClock{}
	}
	return s
}

// TranslateAndUpdate translates the document at path and rewrites its block.
// Every failure is reported in the result. Nothing is written unless the
// whole new document has been composed.
func (s *TranslationService) TranslateAndUpdate(ctx context.Context, path string) TranslationResult {
	log := s.logger.With().Str("path", path).Logger()
	span := timing.StartAt(log, "translate", s.clock.Now)

	res, digest := s.run(ctx, path, span)
	res.Path = path
	elapsed := span.Stop()

	switch {
	case res.Skipped:
		log.Info().Msg("prose unchanged, translation skipped")
		s.metrics.ObserveTranslation(ports.TranslationSkipped, elapsed)
		return res
	case res.Success:
		log.Info().
			Float64("confidence", res.Confidence).
			Dur("duration", elapsed).
			Msg("document translated")
		s.metrics.ObserveTranslation(ports.TranslationSucceeded, elapsed)
	default:
		log.Error().Err(res.Err).Dur("duration", elapsed).Msg("translation failed")
		s.metrics.ObserveTranslation(ports.TranslationFailed, elapsed)
	}

	s.record(ctx, res, digest)
	return res
}

// TranslateAll translates each path in turn. A failure never stops the
// remaining paths.
func (s *TranslationService) TranslateAll(ctx context.Context, paths []string) []TranslationResult {
	results := make([]TranslationResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			results = append(results, TranslationResult{Path: p, Err: err})
			continue
		}
		results = append(results, s.TranslateAndUpdate(ctx, p))
	}
	return results
}

func (s *TranslationService) run(ctx context.Context, path string, span *timing.Span) (TranslationResult, string) {
	doc, err := s.store.Read(ctx, path)
	if err != nil {
		return TranslationResult{Err: fmt.Errorf("read document: %w", err)}, ""
	}

	parts := document.Split(doc.Content)
	if len(parts.Sections) == 0 {
		return TranslationResult{Err: ErrNoSections}, ""
	}

	p := prompt.Format(parts.Sections)
	digest := PromptDigest(p)
	span.Checkpoint("prompt formatted")

	if last, ok := s.unchanged(ctx, path, digest, parts); ok {
		return TranslationResult{Success: true, Skipped: true, Block: parts.Block, Confidence: last.Confidence}, digest
	}

	reply := s.translator.Translate(ctx, p)
	span.Checkpoint("completion returned")
	if !reply.Success {
		err := reply.Err
		if err == nil {
			err = completion.ErrNoResponse
		}
		return TranslationResult{Err: err}, digest
	}

	// The client already checked the block; check again before writing.
	if !completion.ValidateJSON(reply.Block) {
		return TranslationResult{Err: ErrInvalidBlock}, digest
	}

	block := indentBlock(reply.Block)
	updated := document.Rewrite(doc.Content, block)
	if err := s.store.Write(ctx, path, updated); err != nil {
		return TranslationResult{Err: fmt.Errorf("write document: %w", err)}, digest
	}

	return TranslationResult{Success: true, Block: block, Confidence: reply.Confidence}, digest
}

// unchanged reports whether the last successful run saw the same prompt
// while the document still carries a block. This also stops the watcher
// from translating a document again after its own rewrite.
func (s *TranslationService) unchanged(ctx context.Context, path, digest string, parts document.Parts) (ports.HistoryEntry, bool) {
	if s.force || !parts.HasBlock {
		return ports.HistoryEntry{}, false
	}

	s.mu.Lock()
	last, ok := s.last[path]
	s.mu.Unlock()
	if ok {
		return last, last.Digest == digest
	}

	if s.history == nil {
		return ports.HistoryEntry{}, false
	}
	last, err := s.history.LastSuccess(ctx, path)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.logger.Warn().Err(err).Str("path", path).Msg("history lookup failed")
		}
		return ports.HistoryEntry{}, false
	}
	return last, last.Digest == digest
}

func (s *TranslationService) record(ctx context.Context, res TranslationResult, digest string) {
	entry := ports.HistoryEntry{
		Path:       res.Path,
		Digest:     digest,
		Success:    res.Success,
		Confidence: res.Confidence,
		Error:      res.Message(),
		Block:      res.Block,
		CreatedAt:  s.clock.Now(),
	}
	if res.Success {
		s.mu.Lock()
		s.last[res.Path] = entry
		s.mu.Unlock()
	}

	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("path", res.Path).Msg("failed to record translation history")
	}
}

// PromptDigest returns a stable hex digest of a prompt.
func PromptDigest(prompt string) string {
	sum := blake2b.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// indentBlock pretty-prints block, returning it unchanged if it cannot.
func indentBlock(block string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(block), "", "  "); err != nil {
		return block
	}
	return buf.String()
}

type nopMetrics struct{}

func (nopMetrics) ObserveTranslation(string, time.Duration) {}
func (nopMetrics) ObserveValidation(bool)                   {}
func (nopMetrics) ObserveEvent(bool)                        {}
func (nopMetrics) SetPending(int)                           {}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
