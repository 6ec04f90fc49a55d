package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/model"
)

// maxReadingBytes caps the body accepted by /assess.
const maxReadingBytes = 64 << 10

// ModelInfo exposes the metadata of the model being served.
type ModelInfo interface {
	Metadata() model.Metadata
}

// Scorer assesses a single raw reading.
type Scorer interface {
	Score(ctx context.Context, raw domain.RawReading) (domain.Assessment, error)
}

// Server exposes health, readiness, metrics, and model HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /model
// and /assess routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, info ModelInfo, scorer Scorer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /model", handleModel(info))
	mux.HandleFunc("POST /assess", s.handleAssess(scorer))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleModel(info ModelInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if info == nil {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no model loaded, using rule-based categories"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, info.Metadata())
	}
}

// handleAssess scores one telemetry payload in the same JSON shape the
// source topic carries.
func (s *Server) handleAssess(scorer Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReadingBytes))
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
			return
		}
		a, err := scorer.Score(r.Context(), domain.RawReading{Value: body, Timestamp: domain.Now()})
		if err != nil {
			s.logger.Debug("assess rejected reading", "error", err)
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, a)
	}
}
