package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/ports"
)

// DefaultDebounce is the quiet period a document must see before it is
// translated.
const DefaultDebounce = time.Second

// DocumentTranslator translates one document. *TranslationService
// implements it.
type DocumentTranslator interface {
	TranslateAndUpdate(ctx context.Context, path string) TranslationResult
}

// WatcherDeps contains dependencies for Watcher.
type WatcherDeps struct {
	Translator DocumentTranslator
	Clock      ports.Clock   // optional, defaults to wall time
	Metrics    ports.Metrics // optional
	Logger     zerolog.Logger
}

// WatcherConfig contains configuration for Watcher.
type WatcherConfig struct {
	// Paths are the directories to watch recursively.
	Paths     []string
	Extension string        // defaults to document.Extension
	Debounce  time.Duration // defaults to DefaultDebounce
}

type pendingTimer struct {
	timer ports.Timer
	gen   uint64
}

// Watcher translates documents after they stop changing. Each path has at
// most one armed timer; a new event for the path replaces it.
//
// Once stopped a Watcher stays stopped.
type Watcher struct {
	translator DocumentTranslator
	clock      ports.Clock
	metrics    ports.Metrics
	logger     zerolog.Logger
	paths      []string
	ext        string
	debounce   time.Duration

	mu      sync.Mutex
	timers  map[string]*pendingTimer
	gen     uint64
	started bool
	stopped bool
	ctx     context.Context

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	done   chan struct{}

	inflight sync.WaitGroup
}

// NewWatcher creates a watcher. Nothing is observed until Start.
func NewWatcher(deps WatcherDeps, cfg WatcherConfig) *Watcher {
	w := &Watcher{
		translator: deps.Translator,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		paths:      cfg.Paths,
		ext:        cfg.Extension,
		debounce:   cfg.Debounce,
		timers:     make(map[string]*pendingTimer),
		ctx:        context.Background(),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	if w.clock == nil {
		w.clock = wallClock{}
	}
	if w.metrics == nil {
		w.metrics = nopMetrics{}
	}
	if w.ext == "" {
		w.ext = document.Extension
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	return w
}

// Start watches every configured directory and its subdirectories.
// Directories that cannot be watched are logged and skipped; Start fails
// only when none can be watched. ctx is passed to translations.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errors.New("watcher stopped")
	}
	if w.started {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watched := 0
	for _, p := range w.paths {
		n, err := w.addTree(fsw, p)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("cannot watch path")
			continue
		}
		watched += n
	}
	if watched == 0 {
		fsw.Close()
		return fmt.Errorf("no watchable directories in %v", w.paths)
	}

	w.fsw = fsw
	w.ctx = ctx
	w.started = true
	go w.watchLoop()

	w.logger.Info().
		Strs("paths", w.paths).
		Int("directories", watched).
		Dur("debounce", w.debounce).
		Msg("watching for document changes")
	return nil
}

// addTree watches root and every directory beneath it, skipping hidden
// directories.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) (int, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}

	count := 0
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(w.fsw, event.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", event.Name).Msg("cannot watch new directory")
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, w.ext) {
		return
	}

	// Atomic saves show up as a create of the target name.
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.logger.Debug().
			Str("event", event.Op.String()).
			Str("file", event.Name).
			Msg("document changed")
		w.Trigger(event.Name)
	}
}

// Trigger records a change to path, replacing any armed timer for it.
// Triggers after Stop are ignored.
func (w *Watcher) Trigger(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	coalesced := false
	if prev, ok := w.timers[path]; ok {
		prev.timer.Stop()
		coalesced = true
	}

	w.gen++
	gen := w.gen
	w.timers[path] = &pendingTimer{
		gen:   gen,
		timer: w.clock.AfterFunc(w.debounce, func() { w.fire(path, gen) }),
	}

	w.metrics.ObserveEvent(coalesced)
	w.metrics.SetPending(len(w.timers))
}

// fire runs when the timer armed with gen elapses. A timer that was
// replaced or stopped after it started firing finds a different
// generation in its slot and does nothing.
func (w *Watcher) fire(path string, gen uint64) {
	w.mu.Lock()
	slot, ok := w.timers[path]
	if w.stopped || !ok || slot.gen != gen {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.metrics.SetPending(len(w.timers))
	ctx := w.ctx
	w.inflight.Add(1)
	w.mu.Unlock()

	defer w.inflight.Done()

	log := w.logger.With().Str("path", path).Logger()
	log.Info().Msg("document settled, translating")

	res := w.translator.TranslateAndUpdate(ctx, path)
	switch {
	case res.Skipped:
		log.Debug().Msg("translation not needed")
	case res.Success:
		log.Info().Float64("confidence", res.Confidence).Msg("document updated")
	default:
		log.Error().Str("error", res.Message()).Msg("document not updated")
	}
}

// TranslateNow translates path immediately, bypassing the debounce.
func (w *Watcher) TranslateNow(ctx context.Context, path string) TranslationResult {
	return w.translator.TranslateAndUpdate(ctx, path)
}

// Pending returns the number of armed timers.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop cancels every armed timer and stops observing the filesystem.
// Translations already running are not interrupted; use Wait for them.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, slot := range w.timers {
		slot.timer.Stop()
		delete(w.timers, path)
	}
	w.metrics.SetPending(0)
	started := w.started
	w.mu.Unlock()

	if started {
		close(w.stopCh)
		w.fsw.Close()
		<-w.done
	}
	w.logger.Info().Msg("watcher stopped")
}

// Wait blocks until every running translation has returned.
func (w *Watcher) Wait() {
	w.inflight.Wait()
}
