package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/observability"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	specOnce sync.Once
	spec     *openapi3.T
	specErr  error
)

// GetSwagger returns the embedded OpenAPI document, loaded and validated once.
func GetSwagger() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(rawSpec)
		if err != nil {
			specErr = fmt.Errorf("failed to load openapi document: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			specErr = fmt.Errorf("invalid openapi document: %w", err)
			return
		}
		spec = doc
	})
	return spec, specErr
}

// Service is the workspace surface served over HTTP. *codeshell.Shell implements it.
type Service interface {
	Open(ctx context.Context, id string) (*domain.Workspace, error)
	List(ctx context.Context) ([]string, error)
	Drop(ctx context.Context, id string) error
	AddNode(ctx context.Context, id, parentID string, kind domain.NodeKind) (*domain.Workspace, string, error)
	RenameNode(ctx context.Context, id, nodeID, name string) (*domain.Workspace, error)
	SetContent(ctx context.Context, id, nodeID, text string) (*domain.Workspace, error)
	DeleteNode(ctx context.Context, id, nodeID string) (*domain.Workspace, bool, error)
	Select(ctx context.Context, id, nodeID string) (*domain.Workspace, error)
	Edit(ctx context.Context, id, text string) (*domain.Workspace, error)
	Save(ctx context.Context, id string) (*domain.Workspace, error)
	Compile(ctx context.Context, id string) (*domain.Workspace, error)
	ToggleCompiled(ctx context.Context, id string) (*domain.Workspace, error)
	Close(ctx context.Context, id string) (*domain.Workspace, error)
	ClearConsole(ctx context.Context, id string) (*domain.Workspace, error)
	Run(ctx context.Context, id string) (*domain.Workspace, domain.RunResult, error)
	Transpile(ctx context.Context, source, fileName string) (domain.CompiledArtifact, error)
	Subscribe(id string) (<-chan domain.ConsoleRecord, func())
}

var _ Service = (*codeshell.Shell)(nil)

// errInvalidRequest marks request bodies that decode but carry unusable values.
var errInvalidRequest = errors.New("invalid request")

// Server holds the HTTP handlers.
type Server struct {
	Service Service
	Streams *StreamManager
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc Service, opts ...Option) http.Handler {
	server := &Server{
		Service: svc,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if server.Metrics != nil {
		r.Use(server.observe)
		r.Method(http.MethodGet, "/metrics", server.Metrics.Handler())
	}

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Post("/transpile", server.Transpile)

	r.Get("/workspaces", server.ListWorkspaces)
	r.Route("/workspaces/{id}", func(r chi.Router) {
		r.Get("/", server.OpenWorkspace)
		r.Delete("/", server.DropWorkspace)
		r.Post("/nodes", server.AddNode)
		r.Patch("/nodes/{nodeID}", server.RenameNode)
		r.Delete("/nodes/{nodeID}", server.DeleteNode)
		r.Put("/nodes/{nodeID}/content", server.SetContent)
		r.Post("/select", server.Select)
		r.Put("/buffer", server.Edit)
		r.Post("/save", server.Save)
		r.Post("/compile", server.Compile)
		r.Post("/toggle-compiled", server.ToggleCompiled)
		r.Post("/close", server.Close)
		r.Post("/run", server.Run)
		r.Delete("/console", server.ClearConsole)
		r.Get("/events", server.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records one sample per request, labelled by the matched route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>codeshell API Documentation</title>
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

// -- Requests --

type addNodeRequest struct {
	ParentID string          `json:"parent_id"`
	Type     domain.NodeKind `json:"type"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type selectRequest struct {
	NodeID string `json:"node_id"`
}

type transpileRequest struct {
	Source   string `json:"source"`
	FileName string `json:"file_name"`
}

// -- Handlers --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "codeshell-http",
		"version":     strings.TrimSpace(codeshell.Version),
		"api_version": apiVersion,
	})
}

// Transpile handles the POST /transpile request.
func (s *Server) Transpile(w http.ResponseWriter, r *http.Request) {
	var body transpileRequest
	if !s.decode(w, r, "Transpile", &body) {
		return
	}
	if body.FileName == "" {
		s.writeError(w, "Transpile", fmt.Errorf("%w: file_name is required", errInvalidRequest))
		return
	}

	artifact, err := s.Service.Transpile(r.Context(), body.Source, body.FileName)
	if err != nil {
		var ce *domain.CompileError
		if errors.As(err, &ce) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":     ce.Error(),
				"file_name": ce.FileName,
				"line":      ce.Line,
				"column":    ce.Column,
			})
			return
		}
		s.writeError(w, "Transpile", err)
		return
	}
	s.writeJSON(w, http.StatusOK, artifact)
}

// ListWorkspaces handles the GET /workspaces request.
func (s *Server) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.List(r.Context())
	if err != nil {
		s.writeError(w, "ListWorkspaces", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// OpenWorkspace handles the GET /workspaces/{id} request.
func (s *Server) OpenWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.Open(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "OpenWorkspace", ws, err)
}

// DropWorkspace handles the DELETE /workspaces/{id} request.
func (s *Server) DropWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Service.Drop(r.Context(), id); err != nil {
		s.writeError(w, "DropWorkspace", err)
		return
	}
	s.Streams.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// AddNode handles the POST /workspaces/{id}/nodes request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var body addNodeRequest
	if !s.decode(w, r, "AddNode", &body) {
		return
	}
	if !body.Type.Valid() {
		s.writeError(w, "AddNode", fmt.Errorf("%w: unknown node type %q", errInvalidRequest, body.Type))
		return
	}

	ws, nodeID, err := s.Service.AddNode(r.Context(), chi.URLParam(r, "id"), body.ParentID, body.Type)
	if err != nil {
		s.writeError(w, "AddNode", err)
		return
	}
	s.Streams.Publish(ws)
	s.writeJSON(w, http.StatusCreated, map[string]any{"node_id": nodeID, "workspace": ws})
}

// RenameNode handles the PATCH /workspaces/{id}/nodes/{nodeID} request.
func (s *Server) RenameNode(w http.ResponseWriter, r *http.Request) {
	var body renameRequest
	if !s.decode(w, r, "RenameNode", &body) {
		return
	}
	ws, err := s.Service.RenameNode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"), body.Name)
	s.respond(w, "RenameNode", ws, err)
}

// SetContent handles the PUT /workspaces/{id}/nodes/{nodeID}/content request.
func (s *Server) SetContent(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if !s.decode(w, r, "SetContent", &body) {
		return
	}
	ws, err := s.Service.SetContent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"), body.Content)
	s.respond(w, "SetContent", ws, err)
}

// DeleteNode handles the DELETE /workspaces/{id}/nodes/{nodeID} request.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	ws, cleared, err := s.Service.DeleteNode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.writeError(w, "DeleteNode", err)
		return
	}
	s.Streams.Publish(ws)
	s.writeJSON(w, http.StatusOK, map[string]any{"cleared": cleared, "workspace": ws})
}

// Select handles the POST /workspaces/{id}/select request.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if !s.decode(w, r, "Select", &body) {
		return
	}
	ws, err := s.Service.Select(r.Context(), chi.URLParam(r, "id"), body.NodeID)
	s.respond(w, "Select", ws, err)
}

// Edit handles the PUT /workspaces/{id}/buffer request.
func (s *Server) Edit(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if !s.decode(w, r, "Edit", &body) {
		return
	}
	ws, err := s.Service.Edit(r.Context(), chi.URLParam(r, "id"), body.Content)
	s.respond(w, "Edit", ws, err)
}

// Save handles the POST /workspaces/{id}/save request.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.Save(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "Save", ws, err)
}

// Compile handles the POST /workspaces/{id}/compile request.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.Compile(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "Compile", ws, err)
}

// ToggleCompiled handles the POST /workspaces/{id}/toggle-compiled request.
func (s *Server) ToggleCompiled(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.ToggleCompiled(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "ToggleCompiled", ws, err)
}

// Close handles the POST /workspaces/{id}/close request.
func (s *Server) Close(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.Close(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "Close", ws, err)
}

// ClearConsole handles the DELETE /workspaces/{id}/console request.
func (s *Server) ClearConsole(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Service.ClearConsole(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, "ClearConsole", ws, err)
}

// Run handles the POST /workspaces/{id}/run request.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	ws, res, err := s.Service.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "Run", err)
		return
	}
	s.Streams.Publish(ws)
	s.writeJSON(w, http.StatusOK, map[string]any{"result": res, "workspace": ws})
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn(op+": Invalid request body", "error", err)
		return false
	}
	return true
}

// respond writes the workspace snapshot and broadcasts its diff to SSE subscribers.
func (s *Server) respond(w http.ResponseWriter, op string, ws *domain.Workspace, err error) {
	if err != nil {
		s.writeError(w, op, err)
		return
	}
	s.Streams.Publish(ws)
	s.writeJSON(w, http.StatusOK, ws)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Debug(op+" refused", "error", err, "status", status)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var ce *domain.CompileError
	switch {
	case errors.Is(err, domain.ErrNodeNotFound), errors.Is(err, domain.ErrWorkspaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoSelection), errors.Is(err, domain.ErrRunInProgress), errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, errInvalidRequest), errors.Is(err, domain.ErrNotAFolder), errors.Is(err, domain.ErrNotAFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
