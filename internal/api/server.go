// Package api provides the HTTP server for Stride: tasks, today's planner
// records, the user profile and task completion.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stride-app/stride/internal/app/engagement"
	"github.com/stride-app/stride/internal/domain"
	"github.com/stride-app/stride/internal/health"
)

// Server is the Stride HTTP API server.
type Server struct {
	store          domain.Store
	engine         *engagement.Engine
	clock          domain.Clock
	logger         *slog.Logger
	health         *health.Checker
	corsOrigins    []string
	metricsEnabled bool
	newID          func() string
}

// NewServer creates a new API server.
func NewServer(store domain.Store, engine *engagement.Engine, clock domain.Clock, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  store,
		engine: engine,
		clock:  clock,
		logger: logger.With("component", "api"),
		newID:  newID,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the checker reported by /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetCORSOrigins restricts allowed origins. Empty allows any.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)

		r.Group(func(r chi.Router) {
			r.Use(s.identityMiddleware)

			r.Get("/profile", s.handleProfile)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Get("/{id}", s.handleGetTask)
				r.Put("/{id}", s.handleUpdateTask)
				r.Patch("/{id}", s.handleUpdateTask)
				r.Delete("/{id}", s.handleDeleteTask)
				r.Post("/{id}/complete", s.handleCompleteTask)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", s.handleListNotes)
				r.Post("/", s.handleUpsertNote)
				r.Get("/{id}", s.handleGetNote)
				r.Put("/{id}", s.handleUpdateNote)
				r.Patch("/{id}", s.handleUpdateNote)
				r.Delete("/{id}", s.handleDeleteNote)
			})

			r.Route("/focus-items", func(r chi.Router) {
				r.Get("/", s.handleListFocusItems)
				r.Post("/", s.handleCreateFocusItem)
				r.Get("/{id}", s.handleGetFocusItem)
				r.Put("/{id}", s.handleUpdateFocusItem)
				r.Patch("/{id}", s.handleUpdateFocusItem)
				r.Delete("/{id}", s.handleDeleteFocusItem)
			})

			r.Route("/schedule-events", func(r chi.Router) {
				r.Get("/", s.handleListEvents)
				r.Post("/", s.handleCreateEvent)
				r.Get("/{id}", s.handleGetEvent)
				r.Put("/{id}", s.handleUpdateEvent)
				r.Patch("/{id}", s.handleUpdateEvent)
				r.Delete("/{id}", s.handleDeleteEvent)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a store or engine error to its HTTP status.
// Unclassified errors are logged and reported as 500 without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": domain.ErrAlreadyCompleted.Error()})
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrNoteNotFound),
		errors.Is(err, domain.ErrFocusNotFound),
		errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrProfileConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLockUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
