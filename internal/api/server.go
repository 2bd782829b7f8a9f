// Package api provides the REST API and WebSocket stream for plank.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/randalmurphal/plank/internal/store"
)

// Server is the plank API server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	logger *slog.Logger

	// Every handler goes through the consumer interface.
	store store.Consumer

	wsHandler *WSHandler
}

// Config holds server configuration.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "localhost:8080",
		Logger: slog.Default(),
	}
}

// New creates a new API server over st.
func New(st store.Consumer, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Ensure logger is never nil
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:   cfg.Addr,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "api"),
		store:  st,
	}
	s.wsHandler = NewWSHandler(st, s.logger)

	s.registerRoutes()
	return s
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// CORS middleware wrapper
	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	// Health check
	s.mux.HandleFunc("GET /api/health", cors(s.handleHealth))

	// State
	s.mux.HandleFunc("GET /api/snapshot", cors(s.handleSnapshot))
	s.mux.HandleFunc("GET /api/activities", cors(s.handleActivities))
	s.mux.HandleFunc("PUT /api/selection", cors(s.handleSelect))

	// Projects
	s.mux.HandleFunc("POST /api/projects", cors(s.handleCreateProject))
	s.mux.HandleFunc("PATCH /api/projects/{id}", cors(s.handleUpdateProject))
	s.mux.HandleFunc("DELETE /api/projects/{id}", cors(s.handleDeleteProject))
	s.mux.HandleFunc("POST /api/projects/{id}/favorite", cors(s.handleToggleFavorite))

	// Milestones (embedded in projects)
	s.mux.HandleFunc("POST /api/projects/{id}/milestones", cors(s.handleAddMilestone))
	s.mux.HandleFunc("PATCH /api/milestones/{id}", cors(s.handleUpdateMilestone))
	s.mux.HandleFunc("POST /api/milestones/{id}/toggle", cors(s.handleToggleMilestone))
	s.mux.HandleFunc("DELETE /api/milestones/{id}", cors(s.handleDeleteMilestone))

	// Tasks
	s.mux.HandleFunc("POST /api/tasks", cors(s.handleCreateTask))
	s.mux.HandleFunc("PATCH /api/tasks/{id}", cors(s.handleUpdateTask))
	s.mux.HandleFunc("DELETE /api/tasks/{id}", cors(s.handleDeleteTask))

	// Subtasks (embedded in tasks)
	s.mux.HandleFunc("POST /api/tasks/{id}/subtasks", cors(s.handleAddSubtask))
	s.mux.HandleFunc("PATCH /api/subtasks/{id}", cors(s.handleUpdateSubtask))
	s.mux.HandleFunc("POST /api/subtasks/{id}/toggle", cors(s.handleToggleSubtask))
	s.mux.HandleFunc("DELETE /api/subtasks/{id}", cors(s.handleDeleteSubtask))

	// WebSocket
	s.mux.Handle("GET /api/ws", s.wsHandler)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.wsHandler.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]string{"status": "ok"})
}
