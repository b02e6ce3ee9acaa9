package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Engine defines the tree operations the HTTP API exposes.
type Engine interface {
	ports.TreeEngine
	Revision() uint64
	Trash(ctx context.Context, id string) error
	Move(ctx context.Context, id, containerID, parentNodeID string, index int) error
	Spawn(ctx context.Context, elementType, containerID, parentNodeID string, index int) (domain.Node, error)
	DeleteSnapshot(ctx context.Context, name string) error
	Templates() []palette.Template
}

// Server serves the Arbor API over HTTP.
type Server struct {
	Engine    Engine
	spec      *openapi3.T
	bodies    bodyValidator
	snapshots *cache.Cache
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Option configures the HTTP server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithSnapshotCacheTTL sets how long serialized snapshots stay cached per revision.
func WithSnapshotCacheTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.snapshots = cache.New(ttl, 2*ttl)
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:    engine,
		snapshots: cache.New(30*time.Second, time.Minute),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	spec, err := GetSwagger()
	if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
	}
	s.spec = spec
	s.bodies = bodyValidator{doc: spec}

	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tree", s.GetTree)
	r.Get("/snapshot", s.GetSnapshot)
	r.Get("/palette", s.GetPalette)
	r.Route("/elements/{id}", func(r chi.Router) {
		r.Get("/", s.GetElement)
		r.Patch("/", s.UpdateElement)
		r.Delete("/", s.RemoveElement)
		r.Post("/move", s.MoveElement)
	})
	r.Post("/containers/{containerID}/children", s.ReconcileChildren)
	r.Post("/containers/{containerID}/elements", s.SpawnElement)
	r.Post("/flush", s.FlushAll)
	r.Get("/snapshots", s.ListSnapshots)
	r.Put("/snapshots/{name}", s.SaveSnapshot)
	r.Delete("/snapshots/{name}", s.DeleteSnapshot)
	r.Post("/snapshots/{name}/load", s.LoadSnapshot)
	r.Get("/events", s.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		w.Header().Set("Access-Control-Expose-Headers", "ETag")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Arbor API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// ReconcileRequest is the body of POST /containers/{containerID}/children.
type ReconcileRequest struct {
	ParentNodeID string        `json:"parentNodeID"`
	Children     []domain.Node `json:"children"`
}

// UpdateRequest is the body of PATCH /elements/{id}.
type UpdateRequest struct {
	Name    *string        `json:"name,omitempty"`
	Type    *string        `json:"type,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// MoveRequest is the body of POST /elements/{id}/move.
type MoveRequest struct {
	ContainerID  string `json:"containerID"`
	ParentNodeID string `json:"parentNodeID"`
	Index        *int   `json:"index,omitempty"`
}

// SpawnRequest is the body of POST /containers/{containerID}/elements.
type SpawnRequest struct {
	Type         string `json:"type"`
	ParentNodeID string `json:"parentNodeID"`
	Index        *int   `json:"index,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(arbor.Version),
		"api_version": apiVersion,
	})
}

// GetTree handles the GET /tree request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Tree())
}

// GetSnapshot handles the GET /snapshot request.
// Serialized snapshots are cached per revision, which doubles as the ETag.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	rev := s.Engine.Revision()
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag(rev) {
		w.Header().Set("ETag", etag(rev))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if cached, ok := s.snapshots.Get(cacheKey(rev)); ok {
		s.writeSnapshot(w, rev, cached.([]byte))
		return
	}

	snap, rev := s.Engine.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("GetSnapshot encode failed", "err", err)
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusInternalServerError)
		return
	}
	s.snapshots.Set(cacheKey(rev), data, cache.DefaultExpiration)
	s.writeSnapshot(w, rev, data)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, rev uint64, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag(rev))
	w.Header().Set("X-Arbor-Revision", strconv.FormatUint(rev, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetPalette handles the GET /palette request.
func (s *Server) GetPalette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Templates())
}

// GetElement handles the GET /elements/{id} request.
func (s *Server) GetElement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	el, err := s.Engine.Element(id)
	if err != nil {
		s.fail(w, "GetElement", err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// UpdateElement handles the PATCH /elements/{id} request.
func (s *Server) UpdateElement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var body UpdateRequest
	if !s.readBody(w, r, "UpdateRequest", &body) {
		return
	}

	patch := make(map[string]any, 3)
	if body.Name != nil {
		patch["name"] = *body.Name
	}
	if body.Type != nil {
		patch["type"] = *body.Type
	}
	if body.Payload != nil {
		patch["payload"] = body.Payload
	}

	el, err := s.Engine.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, "UpdateElement", err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// RemoveElement handles the DELETE /elements/{id} request.
// With ?trash=true the removal is reported as trashed.
func (s *Server) RemoveElement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var trash bool
	if err := runtime.BindQueryParameter("form", true, false, "trash", r.URL.Query(), &trash); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter trash: %v", err), http.StatusBadRequest)
		return
	}

	var err error
	if trash {
		err = s.Engine.Trash(r.Context(), id)
	} else {
		err = s.Engine.Remove(r.Context(), id)
	}
	if err != nil {
		s.fail(w, "RemoveElement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveElement handles the POST /elements/{id}/move request.
func (s *Server) MoveElement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var body MoveRequest
	if !s.readBody(w, r, "MoveRequest", &body) {
		return
	}

	err := s.Engine.Move(r.Context(), id, body.ContainerID, parentOrRoot(body.ParentNodeID), indexOrAppend(body.Index))
	if err != nil {
		s.fail(w, "MoveElement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileChildren handles the POST /containers/{containerID}/children request.
func (s *Server) ReconcileChildren(w http.ResponseWriter, r *http.Request) {
	containerID, ok := s.pathParam(w, r, "containerID")
	if !ok {
		return
	}
	var body ReconcileRequest
	if !s.readBody(w, r, "ReconcileRequest", &body) {
		return
	}

	if err := s.Engine.Reconcile(r.Context(), containerID, parentOrRoot(body.ParentNodeID), body.Children); err != nil {
		s.fail(w, "ReconcileChildren", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SpawnElement handles the POST /containers/{containerID}/elements request.
func (s *Server) SpawnElement(w http.ResponseWriter, r *http.Request) {
	containerID, ok := s.pathParam(w, r, "containerID")
	if !ok {
		return
	}
	var body SpawnRequest
	if !s.readBody(w, r, "SpawnRequest", &body) {
		return
	}

	n, err := s.Engine.Spawn(r.Context(), body.Type, containerID, parentOrRoot(body.ParentNodeID), indexOrAppend(body.Index))
	if err != nil {
		s.fail(w, "SpawnElement", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// FlushAll handles the POST /flush request.
func (s *Server) FlushAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.FlushAll(r.Context()); err != nil {
		s.fail(w, "FlushAll", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSnapshots handles the GET /snapshots request.
func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.ListSnapshots(r.Context())
	if err != nil {
		s.fail(w, "ListSnapshots", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// SaveSnapshot handles the PUT /snapshots/{name} request.
func (s *Server) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	s.snapshotOp(w, r, "SaveSnapshot", s.Engine.SaveSnapshot)
}

// DeleteSnapshot handles the DELETE /snapshots/{name} request.
func (s *Server) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	s.snapshotOp(w, r, "DeleteSnapshot", s.Engine.DeleteSnapshot)
}

// LoadSnapshot handles the POST /snapshots/{name}/load request.
func (s *Server) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	s.snapshotOp(w, r, "LoadSnapshot", s.Engine.LoadSnapshot)
}

func (s *Server) snapshotOp(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) error) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	if err := fn(r.Context(), name); err != nil {
		s.fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional channels parameter restricts the stream to a comma separated set of channels.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var channels []string
	if err := runtime.BindQueryParameter("form", false, false, "channels", r.URL.Query(), &channels); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter channels: %v", err), http.StatusBadRequest)
		return
	}
	filter := make(map[domain.Channel]bool, len(channels))
	for _, c := range channels {
		ch := domain.Channel(strings.TrimSpace(c))
		if !ch.Valid() {
			http.Error(w, fmt.Sprintf("%s: %v", ch, domain.ErrUnknownChannel), http.StatusBadRequest)
			return
		}
		filter[ch] = true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.Engine.Watch(r.Context())
	s.logger.Info("SSE: Client subscribed", "channels", channels)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if len(filter) > 0 && !filter[ev.Channel] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: event encode failed", "err", err, "channel", ev.Channel)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Channel, data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter %s: %v", name, err), http.StatusBadRequest)
		return "", false
	}
	return value, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "err", err, "schema", schema)
		return false
	}
	if err := s.bodies.decode(data, schema, dst); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		s.logger.Warn("Request body rejected", "err", err, "schema", schema)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrElementNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateID),
		errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, arbor.ErrUpdateRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func etag(rev uint64) string {
	return fmt.Sprintf("%q", strconv.FormatUint(rev, 10))
}

func cacheKey(rev uint64) string {
	return "snapshot:" + strconv.FormatUint(rev, 10)
}

func parentOrRoot(id string) string {
	if id == "" {
		return domain.RootID
	}
	return id
}

func indexOrAppend(index *int) int {
	if index == nil {
		return container.Append
	}
	return *index
}
