package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/core/openapi"
	"github.com/artpar/readerspec/core/spec"
	"github.com/artpar/readerspec/pkg/jsonapi"
	"github.com/artpar/readerspec/ports"
)

// Resource types used in response documents.
const (
	typeResource = "resources"
	typeHistory  = "history"
)

// DefaultPerPage is the page size of /resources when per_page is absent.
const DefaultPerPage = 20

// Checker parses and validates documents.
type Checker interface {
	CheckAll(ctx context.Context, root string) (app.Report, error)
	Find(ctx context.Context, root, name string) (app.Outcome, error)
}

// HandlerDeps contains dependencies for Handler.
type HandlerDeps struct {
	Checker Checker
	Store   ports.DocumentStore
	OpenAPI *openapi.Service
	History ports.HistoryStore // optional; /history is not mounted without it
	Logger  zerolog.Logger
}

// HandlerConfig configures Handler.
type HandlerConfig struct {
	// Root returns the documents directory. It is called per request so a
	// reloaded configuration takes effect immediately.
	Root    func() string
	Version string
}

// Handler serves documents, validation results and generated artifacts.
type Handler struct {
	checker Checker
	store   ports.DocumentStore
	openapi *openapi.Service
	history ports.HistoryStore
	logger  zerolog.Logger
	root    func() string
	version string
}

// NewHandler creates a new dev server handler.
func NewHandler(deps HandlerDeps, cfg HandlerConfig) *Handler {
	h := &Handler{
		checker: deps.Checker,
		store:   deps.Store,
		openapi: deps.OpenAPI,
		history: deps.History,
		logger:  deps.Logger,
		root:    cfg.Root,
		version: cfg.Version,
	}
	if h.version == "" {
		h.version = "dev"
	}
	return h
}

// Liveness returns a simple liveness check.
func Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Version returns the service version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": h.version,
		"service": "readerspec",
	})
}

// ListResources returns the check outcome of every document, one page at a
// time. The batch summary is reported under meta.summary.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.CheckAll(r.Context(), h.root())
	if err != nil {
		h.writeLookupError(w, err, "specs directory", h.root())
		return
	}

	page, perPage := jsonapi.ParsePaginationParams(r.URL.Query(), DefaultPerPage)
	p := jsonapi.NewPagination(int64(len(report.Outcomes)), page, perPage, requestURL(r))
	lo, hi := p.Bounds(len(report.Outcomes))

	resources := make([]jsonapi.Resource, 0, hi-lo)
	for _, o := range report.Outcomes[lo:hi] {
		resources = append(resources, outcomeResource(o, false))
	}

	doc := jsonapi.NewDocument().
		DataCollection(resources).
		Pagination(p).
		Meta("summary", map[string]int{
			"total":    report.Summary.Total,
			"valid":    report.Summary.Valid,
			"invalid":  report.Summary.Invalid,
			"errors":   report.Summary.Errors,
			"warnings": report.Summary.Warnings,
		}).
		JSONAPI().
		Build()
	jsonapi.WriteDocument(w, http.StatusOK, doc)
}

// GetResource returns the check outcome of one document, including its
// description when valid. Invalid documents are still reported with 200;
// the outcome is the payload.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	outcome, ok := h.find(w, r)
	if !ok {
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, outcomeResource(outcome, true))
}

// ResourceOpenAPI returns the OpenAPI document of one valid resource.
func (h *Handler) ResourceOpenAPI(w http.ResponseWriter, r *http.Request) {
	outcome, ok := h.find(w, r)
	if !ok {
		return
	}
	if !outcome.OK() || outcome.Description == nil {
		jsonapi.WriteError(w, outcomeErrors(outcome)...)
		return
	}

	s, err := openapi.Resource(*outcome.Description, baseURL(r))
	if err != nil {
		h.logger.Error().Err(err).Str("path", outcome.Path).Msg("generate openapi")
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	writeSpec(w, s)
}

// CombinedOpenAPI returns one OpenAPI document covering every valid resource.
func (h *Handler) CombinedOpenAPI(w http.ResponseWriter, r *http.Request) {
	s, err := h.openapi.Combined(r.Context(), baseURL(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("generate combined openapi")
		h.writeLookupError(w, err, "specs directory", h.root())
		return
	}
	writeSpec(w, s)
}

// Preview renders a document as HTML.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	outcome, ok := h.find(w, r)
	if !ok {
		return
	}

	doc, err := h.store.Read(r.Context(), outcome.Path)
	if err != nil {
		h.writeLookupError(w, err, "document", outcome.Path)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(RenderDocument(doc.Name, doc.Content))
}

// ListHistory returns the most recent translation runs, newest first.
// per_page bounds the number of runs.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	_, limit := jsonapi.ParsePaginationParams(r.URL.Query(), DefaultPerPage)

	entries, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list history")
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(entries))
	for _, e := range entries {
		rb := jsonapi.NewResource(typeHistory, e.ID).
			Attr("path", e.Path).
			Attr("digest", e.Digest).
			Attr("success", e.Success).
			Attr("confidence", e.Confidence).
			Attr("created_at", e.CreatedAt)
		if e.Error != "" {
			rb.Attr("error", e.Error)
		}
		resources = append(resources, rb.Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, nil)
}

// find resolves the {name} URL parameter. On failure it writes the error
// response and returns false.
func (h *Handler) find(w http.ResponseWriter, r *http.Request) (app.Outcome, bool) {
	name := chi.URLParam(r, "name")
	outcome, err := h.checker.Find(r.Context(), h.root(), name)
	if err != nil {
		h.writeLookupError(w, err, "document", name)
		return app.Outcome{}, false
	}
	return outcome, true
}

// writeLookupError maps ports.ErrNotFound to 404 and anything else to 500.
func (h *Handler) writeLookupError(w http.ResponseWriter, err error, kind, id string) {
	if errors.Is(err, ports.ErrNotFound) {
		jsonapi.WriteNotFound(w, kind, id)
		return
	}
	h.logger.Error().Err(err).Str(kind, id).Msg("lookup failed")
	jsonapi.WriteErrorFromGo(w, err)
}

// outcomeResource converts a check outcome. detail adds the normalized
// description of valid documents.
func outcomeResource(o app.Outcome, detail bool) jsonapi.Resource {
	id := o.Name
	if id == "" {
		id = o.Path
	}

	rb := jsonapi.NewResource(typeResource, id).
		Attr("path", o.Path).
		Attr("valid", o.OK()).
		Attr("errors", nonNil(o.Errors())).
		Attr("warnings", nonNil(o.Result.Warnings)).
		Attr("suggestions", nonNil(o.Result.Suggestions))

	if o.Description != nil {
		rb.Attr("resource", o.Description.Resource)
		if detail {
			if m, err := spec.ToMap(*o.Description); err == nil {
				rb.Attr("description", m)
			}
		}
	}

	if o.Name != "" {
		escaped := url.PathEscape(o.Name)
		links := jsonapi.ResourceLinks{
			Self: "/resources/" + escaped,
			HTML: "/docs/" + escaped,
		}
		if o.OK() {
			links.OpenAPI = "/resources/" + escaped + "/openapi.json"
		}
		rb.Links(links)
	}

	return rb.Build()
}

// outcomeErrors converts the failures of an invalid outcome to 422 errors.
func outcomeErrors(o app.Outcome) []jsonapi.Error {
	errs := make([]jsonapi.Error, 0, len(o.ParseErrors)+len(o.Result.Errors))
	for _, msg := range o.ParseErrors {
		errs = append(errs, jsonapi.ErrUnparsableDocument(o.Path, msg))
	}
	for _, msg := range o.Result.Errors {
		errs = append(errs, jsonapi.ErrInvalidDocument(o.Path, msg))
	}
	return errs
}

func writeSpec(w http.ResponseWriter, s *openapi.Spec) {
	body, err := s.ToJSON()
	if err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// baseURL returns the scheme and host the request was made to.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// requestURL returns the absolute request URL, used for pagination links.
func requestURL(r *http.Request) string {
	return baseURL(r) + r.URL.RequestURI()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
