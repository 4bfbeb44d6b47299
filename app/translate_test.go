package app_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/adapters/clock"
	"github.com/artpar/readerspec/adapters/memory"
	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/core/completion"
	"github.com/artpar/readerspec/core/document"
	"github.com/artpar/readerspec/ports"
)

// memoryStore implements ports.DocumentStore for testing.
type memoryStore struct {
	mu       sync.Mutex
	docs     map[string]string
	writes   int
	writeErr error
}

func newMemoryStore(docs map[string]string) *memoryStore {
	if docs == nil {
		docs = make(map[string]string)
	}
	return &memoryStore{docs: docs}
}

func (m *memoryStore) Read(ctx context.Context, path string) (ports.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[path]
	if !ok {
		return ports.Document{}, ports.ErrNotFound
	}
	return ports.Document{Path: path, Content: content, Name: strings.TrimSuffix(path, document.Extension)}, nil
}

func (m *memoryStore) Write(ctx context.Context, path, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.docs[path] = content
	m.writes++
	return nil
}

func (m *memoryStore) List(ctx context.Context, root string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for p := range m.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *memoryStore) get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[path]
}

// stubTranslator implements app.Translator for testing.
type stubTranslator struct {
	mu      sync.Mutex
	result  completion.Result
	prompts []string
}

func (s *stubTranslator) Translate(ctx context.Context, prompt string) completion.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.result
}

func (s *stubTranslator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

const todosDoc = "## What\nGet all todos\n"

func okResult(block string) completion.Result {
	return completion.Result{Success: true, Block: block, Confidence: completion.Confidence}
}

func newTestService(store ports.DocumentStore, tr app.Translator, history ports.HistoryStore, force bool) *app.TranslationService {
	return app.NewTranslationService(app.TranslationDeps{
		Store:      store,
		Translator: tr,
		History:    history,
		Clock:      clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:     zerolog.Nop(),
	}, app.TranslationConfig{Force: force})
}

func TestTranslateAndUpdate_AppendsBlock(t *testing.T) {
	store := newMemoryStore(map[string]string{"todos.readerspec.md": todosDoc})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	history := memory.NewHistoryStore()
	svc := newTestService(store, tr, history, false)

	res := svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", res.Confidence)
	}

	want := "## What\nGet all todos\n\n```readerspec\n{\n  \"resource\": \"todos\"\n}\n```\n"
	if got := store.get("todos.readerspec.md"); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}

	if tr.calls() != 1 {
		t.Fatalf("translator calls = %d, want 1", tr.calls())
	}
	if !strings.Contains(tr.prompts[0], "## What\nGet all todos\n") {
		t.Errorf("prompt missing section: %q", tr.prompts[0])
	}

	if history.Len() != 1 || !history.Entries()[0].Success {
		t.Errorf("history = %+v, want one successful entry", history.Entries())
	}
	if history.Entries()[0].Digest == "" {
		t.Error("history entry has no digest")
	}
}

func TestTranslateAndUpdate_ReplacesExistingBlock(t *testing.T) {
	doc := "intro\n## What\nGet todos\n\n```readerspec\n{\"resource\":\"old\"}\n```\n\ntrailer\n"
	store := newMemoryStore(map[string]string{"a.readerspec.md": doc})
	tr := &stubTranslator{result: okResult(`{"resource":"new"}`)}
	svc := newTestService(store, tr, nil, false)

	res := svc.TranslateAndUpdate(context.Background(), "a.readerspec.md")
	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}

	want := "intro\n## What\nGet todos\n\n```readerspec\n{\n  \"resource\": \"new\"\n}\n```\n\ntrailer\n"
	if got := store.get("a.readerspec.md"); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestTranslateAndUpdate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		docs       map[string]string
		result     completion.Result
		writeErr   error
		wantErr    error
		wantText   string
		wantCalls  int
		wantWrites int
	}{
		{
			name:     "missing document",
			docs:     nil,
			wantErr:  ports.ErrNotFound,
			wantText: "read document",
		},
		{
			name:    "no sections",
			docs:    map[string]string{"x.readerspec.md": "just prose, no headings\n"},
			wantErr: app.ErrNoSections,
		},
		{
			name:      "completion failure",
			docs:      map[string]string{"x.readerspec.md": todosDoc},
			result:    completion.Result{Err: completion.ErrNoJSON},
			wantErr:   completion.ErrNoJSON,
			wantCalls: 1,
		},
		{
			name:      "failure without error",
			docs:      map[string]string{"x.readerspec.md": todosDoc},
			result:    completion.Result{},
			wantErr:   completion.ErrNoResponse,
			wantCalls: 1,
		},
		{
			name:      "untrusted block",
			docs:      map[string]string{"x.readerspec.md": todosDoc},
			result:    okResult(`{"resource":`),
			wantErr:   app.ErrInvalidBlock,
			wantCalls: 1,
		},
		{
			name:      "write failure",
			docs:      map[string]string{"x.readerspec.md": todosDoc},
			result:    okResult(`{"resource":"todos"}`),
			writeErr:  errors.New("disk full"),
			wantText:  "write document: disk full",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore(tt.docs)
			store.writeErr = tt.writeErr
			tr := &stubTranslator{result: tt.result}
			history := memory.NewHistoryStore()
			svc := newTestService(store, tr, history, false)

			res := svc.TranslateAndUpdate(context.Background(), "x.readerspec.md")

			if res.Success {
				t.Fatal("Success = true, want false")
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.wantText != "" && !strings.Contains(res.Message(), tt.wantText) {
				t.Errorf("Message() = %q, want it to contain %q", res.Message(), tt.wantText)
			}
			if tr.calls() != tt.wantCalls {
				t.Errorf("translator calls = %d, want %d", tr.calls(), tt.wantCalls)
			}
			if store.writes != tt.wantWrites {
				t.Errorf("writes = %d, want %d", store.writes, tt.wantWrites)
			}
			if history.Len() != 1 || history.Entries()[0].Success || history.Entries()[0].Error == "" {
				t.Errorf("history = %+v, want one failed entry", history.Entries())
			}
		})
	}
}

func TestTranslateAndUpdate_SkipsUnchangedProse(t *testing.T) {
	store := newMemoryStore(map[string]string{"todos.readerspec.md": todosDoc})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	history := memory.NewHistoryStore()
	svc := newTestService(store, tr, history, false)

	first := svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")
	second := svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")

	if !first.Success || first.Skipped {
		t.Fatalf("first = %+v, want translated", first)
	}
	if !second.Success || !second.Skipped {
		t.Fatalf("second = %+v, want skipped", second)
	}
	if second.Confidence != first.Confidence {
		t.Errorf("skipped confidence = %v, want %v", second.Confidence, first.Confidence)
	}
	if tr.calls() != 1 {
		t.Errorf("translator calls = %d, want 1", tr.calls())
	}
	if history.Len() != 1 {
		t.Errorf("history entries = %d, want 1", history.Len())
	}

	// Editing the prose translates again.
	doc := store.get("todos.readerspec.md")
	store.docs["todos.readerspec.md"] = strings.Replace(doc, "Get all todos", "Get all open todos", 1)

	third := svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")
	if third.Skipped || tr.calls() != 2 {
		t.Errorf("third = %+v, calls = %d; want a fresh translation", third, tr.calls())
	}
}

func TestTranslateAndUpdate_SkipUsesHistory(t *testing.T) {
	store := newMemoryStore(map[string]string{"todos.readerspec.md": todosDoc})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	history := memory.NewHistoryStore()

	newTestService(store, tr, history, false).TranslateAndUpdate(context.Background(), "todos.readerspec.md")

	// A new process has no memory of the run, only the history.
	res := newTestService(store, tr, history, false).TranslateAndUpdate(context.Background(), "todos.readerspec.md")
	if !res.Skipped {
		t.Errorf("Skipped = false, want true")
	}
	if tr.calls() != 1 {
		t.Errorf("translator calls = %d, want 1", tr.calls())
	}
}

func TestTranslateAndUpdate_Force(t *testing.T) {
	store := newMemoryStore(map[string]string{"todos.readerspec.md": todosDoc})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	svc := newTestService(store, tr, nil, true)

	svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")
	res := svc.TranslateAndUpdate(context.Background(), "todos.readerspec.md")

	if res.Skipped {
		t.Error("Skipped = true with Force")
	}
	if tr.calls() != 2 {
		t.Errorf("translator calls = %d, want 2", tr.calls())
	}
}

func TestTranslateAll_ContinuesAfterFailure(t *testing.T) {
	store := newMemoryStore(map[string]string{
		"a.readerspec.md": "no headings\n",
		"b.readerspec.md": todosDoc,
	})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	svc := newTestService(store, tr, nil, false)

	results := svc.TranslateAll(context.Background(), []string{"a.readerspec.md", "b.readerspec.md"})

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Success || !errors.Is(results[0].Err, app.ErrNoSections) {
		t.Errorf("results[0] = %+v, want ErrNoSections", results[0])
	}
	if !results[1].Success {
		t.Errorf("results[1] = %+v, want success", results[1])
	}
	if results[1].Path != "b.readerspec.md" {
		t.Errorf("results[1].Path = %q", results[1].Path)
	}
}

func TestTranslateAll_CancelledContext(t *testing.T) {
	store := newMemoryStore(map[string]string{"a.readerspec.md": todosDoc})
	tr := &stubTranslator{result: okResult(`{"resource":"todos"}`)}
	svc := newTestService(store, tr, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := svc.TranslateAll(ctx, []string{"a.readerspec.md"})
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("results = %+v, want context.Canceled", results)
	}
	if tr.calls() != 0 {
		t.Errorf("translator calls = %d, want 0", tr.calls())
	}
}

func TestPromptDigest(t *testing.T) {
	a := app.PromptDigest("prompt")
	if a != app.PromptDigest("prompt") {
		t.Error("digest is not stable")
	}
	if a == app.PromptDigest("prompt.") {
		t.Error("different prompts share a digest")
	}
	if len(a) != 64 {
		t.Errorf("len(digest) = %d, want 64", len(a))
	}
}
