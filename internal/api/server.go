// Package api exposes editing sessions and the copywriter over JSON HTTP.
// The same handler serves the local web server and the Lambda function.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/editor"
)

const (
	sessionsPrefix = "/api/sessions/"

	defaultSessionTTL = time.Hour
	defaultMaxUpload  = 20 << 20
	maxJSONBody       = 64 << 10
)

// Copywriter is the text generation the copy endpoints use. *chat.Copywriter satisfies it.
type Copywriter interface {
	GenerateSocialWriteup(ctx context.Context, req chat.WriteupRequest) (string, error)
	AnalyzeProduct(ctx context.Context, description string) (string, error)
	SuggestEnhancements(ctx context.Context, productType string) (string, error)
	SuggestBackgrounds(ctx context.Context, productType string) []string
}

// Config wires a Server.
type Config struct {
	// Service is reported by /api/health.
	Service string
	// Backend performs image edits for every session.
	Backend editor.Backend
	// Archive enables the save endpoint. Leave nil to disable saving.
	Archive editor.Archive
	// Copywriter enables the /api/copy endpoints. Leave nil to disable them.
	Copywriter Copywriter

	SessionTTL  time.Duration
	EditTimeout time.Duration
	// MaxUpload caps image upload bodies in bytes.
	MaxUpload int64
	// MetricsNamespace enables request and edit metrics. Empty disables them.
	MetricsNamespace string
	// AllowedOrigin is a CORS origin allowed in addition to localhost.
	AllowedOrigin string
}

// Server routes API requests to sessions held in a SessionRegistry.
type Server struct {
	cfg      Config
	sessions *SessionRegistry
}

// NewServer creates a Server. Zero durations and sizes take defaults.
func NewServer(cfg Config) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = defaultMaxUpload
	}
	if cfg.Service == "" {
		cfg.Service = "product-craft"
	}
	return &Server{
		cfg:      cfg,
		sessions: NewSessionRegistry(cfg.SessionTTL),
	}
}

// Sessions returns the server's registry.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Handler returns the API with logging, CORS and metrics middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/tools", s.handleTools)
	mux.HandleFunc("/api/sessions", s.handleCreateSession)
	mux.HandleFunc(sessionsPrefix, s.handleSessionRoutes)
	mux.HandleFunc("/api/copy/writeup", s.handleWriteup)
	mux.HandleFunc("/api/copy/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/copy/suggestions", s.handleSuggestions)
	mux.HandleFunc("/api/copy/backgrounds", s.handleBackgrounds)

	return withCORS(s.cfg.AllowedOrigin, withLogging(withMetrics(s.cfg.MetricsNamespace, mux)))
}

// NewSession creates and registers a session configured like the server's.
func (s *Server) NewSession(projectName string) *editor.Session {
	opts := []editor.SessionOption{
		editor.WithOrchestratorOptions(
			editor.WithTimeout(s.cfg.EditTimeout),
			editor.WithMetricsNamespace(s.cfg.MetricsNamespace),
		),
	}
	if s.cfg.Archive != nil {
		opts = append(opts, editor.WithArchive(s.cfg.Archive))
	}
	if name := strings.TrimSpace(projectName); name != "" {
		opts = append(opts, editor.WithProjectName(name))
	}
	session := editor.NewSession(s.cfg.Backend, opts...)
	s.sessions.Add(session)
	return session
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  s.cfg.Service,
		"sessions": s.sessions.Count(),
		"save":     s.cfg.Archive != nil,
		"copy":     s.cfg.Copywriter != nil,
	})
}

// GET /api/tools
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tools":       editor.Tools(),
		"backgrounds": editor.Backgrounds(),
	})
}

// parseSessionRoute splits /api/sessions/{id}[/{action}].
func parseSessionRoute(path string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, sessionsPrefix)
	id, action, _ = strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		return "", "", false
	}
	return id, action, true
}

func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	id, action, ok := parseSessionRoute(r.URL.Path)
	if !ok {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if err := validateSessionID(id); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, found := s.sessions.Get(id)
	if !found {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}

	switch action {
	case "":
		s.handleSession(w, r, session)
	case "image":
		s.handleImage(w, r, session)
	case "tool":
		s.handleSelectTool(w, r, session)
	case "click":
		s.handleClick(w, r, session)
	case "instruction":
		s.handleInstruction(w, r, session)
	case "background":
		s.handleBackground(w, r, session)
	case "edit":
		s.handleEdit(w, r, session)
	case "undo":
		s.handleStep(w, r, session, session.Undo)
	case "redo":
		s.handleStep(w, r, session, session.Redo)
	case "save":
		s.handleSave(w, r, session)
	case "status":
		if requireMethod(w, r, http.MethodGet) {
			respondJSON(w, http.StatusOK, session.Snapshot())
		}
	case "export":
		s.handleExport(w, r, session)
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}
