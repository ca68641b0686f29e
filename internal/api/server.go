package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"hilofarm/internal/config"
	"hilofarm/internal/performance"
	"hilofarm/internal/session"
	"hilofarm/internal/strategy"
)

// SessionSource exposes the session currently being played.
type SessionSource interface {
	Current() (session.Snapshot, bool)
}

// ReportSource produces performance reports.
type ReportSource interface {
	Get(ctx context.Context) (*performance.Report, error)
}

// Exporter writes a session's journal as CSV.
type Exporter interface {
	ExportCSV(ctx context.Context, w io.Writer, sessionID string) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	sessions SessionSource
	reports  ReportSource
	exporter Exporter
}

func NewHandler(sessions SessionSource, reports ReportSource, exporter Exporter) *Handler {
	return &Handler{sessions: sessions, reports: reports, exporter: exporter}
}

// NewRouter wires the read-only status API.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", h.CurrentSession)
		r.Get("/report", h.Report)
		r.Get("/strategies", h.Strategies)
		r.Get("/sessions/{id}/export", h.ExportSession)
	})
	return r
}

// Serve runs the API on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("status api listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("status api stopped")
	return nil
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "hilofarm",
	})
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.sessions.Current()
	if !ok {
		respondError(w, http.StatusNotFound, "no session has started yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context())
	if err != nil {
		slog.Error("report generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "report unavailable")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) Strategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"strategies": strategy.Names()})
}

// ExportSession streams the bet and event history of one session as CSV.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="session-`+id.String()+`.csv"`)
	if err := h.exporter.ExportCSV(r.Context(), w, id.String()); err != nil {
		// Headers are already committed once rows were written; log only.
		slog.Error("session export failed", "session", id, "error", err)
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
