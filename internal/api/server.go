// Package api implements the HTTP API: chat endpoints in sync, SSE,
// and WebSocket flavors, plus CRUD for sessions and personas and
// static serving of generated files.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aide-chat/aide/internal/agent"
	"github.com/aide-chat/aide/internal/buildinfo"
	"github.com/aide-chat/aide/internal/persona"
	"github.com/aide-chat/aide/internal/session"
	"github.com/aide-chat/aide/internal/tools"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address      string
	port         int
	agent        *agent.Agent
	sessions     *session.Store
	personas     *persona.Store
	registry     *tools.Registry
	generatedDir string
	logger       *slog.Logger
	server       *http.Server
}

// Options wires the server's collaborators.
type Options struct {
	Address      string
	Port         int
	Agent        *agent.Agent
	Sessions     *session.Store
	Personas     *persona.Store
	Registry     *tools.Registry
	GeneratedDir string
	Logger       *slog.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:      opts.Address,
		port:         opts.Port,
		agent:        opts.Agent,
		sessions:     opts.Sessions,
		personas:     opts.Personas,
		registry:     opts.Registry,
		generatedDir: opts.GeneratedDir,
		logger:       logger,
	}
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive the mux through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat endpoints
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	// Session endpoints
	mux.HandleFunc("GET /api/sessions", s.handleSessionList)
	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionDelete)

	// Persona endpoints
	mux.HandleFunc("GET /api/personas", s.handlePersonaList)
	mux.HandleFunc("POST /api/personas", s.handlePersonaCreate)
	mux.HandleFunc("PUT /api/personas/{id}", s.handlePersonaUpdate)
	mux.HandleFunc("PUT /api/personas/{id}/activate", s.handlePersonaActivate)
	mux.HandleFunc("DELETE /api/personas/{id}", s.handlePersonaDelete)

	// Database browsing endpoints
	mux.HandleFunc("POST /api/db/databases", s.handleDBDatabases)
	mux.HandleFunc("POST /api/db/tables", s.handleDBTables)
	mux.HandleFunc("POST /api/db/execute", s.handleDBExecute)

	// Generated artifacts (documents, mindmaps, images, QR codes)
	mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.generatedDir))))

	// Health endpoints
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // tool loops can run long mid-stream
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

// ChatRequest is one inbound chat message.
type ChatRequest struct {
	SessionID  string            `json:"session_id,omitempty"`
	Message    string            `json:"message"`
	Image      string            `json:"image,omitempty"`
	DBConfig   map[string]any    `json:"db_config,omitempty"`
	FileAccess *agent.FileAccess `json:"file_access,omitempty"`
	MaxSteps   int               `json:"max_steps,omitempty"`
}

// ChatResponse is the synchronous chat result.
type ChatResponse struct {
	SessionID    string `json:"session_id"`
	Response     string `json:"response"`
	FinishReason string `json:"finish_reason"`
}

func (r ChatRequest) toAgent() agent.Request {
	return agent.Request{
		SessionID:  r.SessionID,
		Text:       r.Message,
		Image:      r.Image,
		DBConfig:   r.DBConfig,
		FileAccess: r.FileAccess,
		MaxSteps:   r.MaxSteps,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := s.agent.Process(r.Context(), req.toAgent())
	if err != nil {
		if errors.Is(err, agent.ErrSessionNotFound) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("chat request failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "agent error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{
		SessionID:    res.SessionID,
		Response:     res.Response,
		FinishReason: res.FinishReason,
	}, s.logger)
}

// handleChatStream runs the agent loop in streaming mode and forwards
// each event as one SSE data line. The stream always ends with a meta
// event followed by a [DONE] marker.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	rc := http.NewResponseController(w)
	err := s.agent.ProcessStream(r.Context(), req.toAgent(), func(e agent.Event) {
		s.writeSSE(w, e)
		flusher.Flush()
		// Long tool executions must not trip the write timeout.
		if err := rc.SetWriteDeadline(time.Now().Add(300 * time.Second)); err != nil {
			s.logger.Debug("failed to reset write deadline", "error", err)
		}
	})
	if err != nil {
		if errors.Is(err, agent.ErrSessionNotFound) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("chat stream failed", "error", err)
		// Headers are already sent; nothing else to report.
		return
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) writeSSE(w http.ResponseWriter, e agent.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Debug("failed to marshal SSE event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		s.logger.Debug("failed to write SSE event", "error", err)
	}
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.sessions.List()
	if err != nil {
		s.logger.Error("session list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"sessions": metas}, s.logger)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.sessions.Create(req.Title)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("session get failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sess, s.logger)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("session delete failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "deleted"}, s.logger)
}

// PersonaRequest carries persona create/update fields.
type PersonaRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

func (s *Server) handlePersonaList(w http.ResponseWriter, r *http.Request) {
	personas, err := s.personas.List()
	if err != nil {
		s.logger.Error("persona list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list personas")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"personas": personas}, s.logger)
}

func (s *Server) handlePersonaCreate(w http.ResponseWriter, r *http.Request) {
	var req PersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := s.personas.Create(req.Name, req.Description, req.SystemPrompt)
	if err != nil {
		if errors.Is(err, persona.ErrTooMany) {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("persona create failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to create persona")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, p, s.logger)
}

func (s *Server) handlePersonaUpdate(w http.ResponseWriter, r *http.Request) {
	var req PersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := s.personas.Update(r.PathValue("id"), req.Name, req.Description, req.SystemPrompt)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "persona not found")
			return
		}
		s.logger.Error("persona update failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to update persona")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, p, s.logger)
}

func (s *Server) handlePersonaActivate(w http.ResponseWriter, r *http.Request) {
	p, err := s.personas.Activate(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "persona not found")
			return
		}
		s.logger.Error("persona activate failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to activate persona")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, p, s.logger)
}

func (s *Server) handlePersonaDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.personas.Delete(r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, persona.ErrNotFound):
			s.errorResponse(w, http.StatusNotFound, "persona not found")
		case errors.Is(err, persona.ErrDefault):
			s.errorResponse(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("persona delete failed", "error", err)
			s.errorResponse(w, http.StatusInternalServerError, "failed to delete persona")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "deleted"}, s.logger)
}

// DBRequest carries MySQL connection parameters for the browsing
// endpoints. Execute additionally takes the statement to run.
type DBRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database,omitempty"`
	Query    string `json:"query,omitempty"`
}

func (s *Server) handleDBDatabases(w http.ResponseWriter, r *http.Request) {
	s.runDBQuery(w, r, "SHOW DATABASES")
}

func (s *Server) handleDBTables(w http.ResponseWriter, r *http.Request) {
	s.runDBQuery(w, r, "SHOW TABLES")
}

func (s *Server) handleDBExecute(w http.ResponseWriter, r *http.Request) {
	s.runDBQuery(w, r, "")
}

// runDBQuery routes a database request through the query_mysql tool so
// the API and the agent share one connection and marshaling path. An
// empty fixedQuery uses the statement from the request body.
func (s *Server) runDBQuery(w http.ResponseWriter, r *http.Request, fixedQuery string) {
	var req DBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Host == "" || req.User == "" {
		s.errorResponse(w, http.StatusBadRequest, "host and user are required")
		return
	}

	query := fixedQuery
	if query == "" {
		query = req.Query
	}
	if query == "" {
		s.errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	args := map[string]any{
		"query":    query,
		"host":     req.Host,
		"user":     req.User,
		"password": req.Password,
	}
	if req.Port > 0 {
		args["port"] = req.Port
	}
	if req.Database != "" {
		args["database"] = req.Database
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to build query")
		return
	}

	result, err := s.registry.Execute(r.Context(), "query_mysql", string(argsJSON))
	if err != nil {
		s.logger.Warn("database query failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"result": json.RawMessage(result)}, s.logger)
}
