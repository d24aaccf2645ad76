// Package api provides the HTTP server for QuoteFlow: asynchronous
// quotation dispatch, status polling, handoff, and health.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/servibot/quoteflow/internal/app/quotation"
	"github.com/servibot/quoteflow/internal/health"
	"github.com/servibot/quoteflow/internal/infra/tracker"
)

// Server is the QuoteFlow HTTP API server.
type Server struct {
	tasks          *tracker.Registry
	exec           *quotation.Executor
	checker        *health.Checker
	metricsEnabled bool
	logger         *slog.Logger
}

// NewServer creates a new API server.
func NewServer(tasks *tracker.Registry, exec *quotation.Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{tasks: tasks, exec: exec, logger: logger}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealthChecker sets the component health checker.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/", s.handleServiceInfo)

	r.Route("/api", func(r chi.Router) {
		r.Post("/quotation/async", s.handleCreateQuotation)
		r.Get("/quotation/status/{trackingID}", s.handleQuotationStatus)
		r.Post("/handoff", s.handleHandoff)
		r.Get("/health", s.handleHealth)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// handleServiceInfo describes the service and its endpoints.
func (s *Server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "quoteflow",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"create_quotation": "/api/quotation/async",
			"check_status":     "/api/quotation/status/{tracking_id}",
			"handoff":          "/api/handoff",
			"health":           "/api/health",
		},
	})
}

// handleHealth reports liveness plus component checks when configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "quoteflow",
	}
	if s.checker != nil {
		results := s.checker.Check(r.Context())
		body["checks"] = results
		for _, res := range results {
			if !res.Healthy {
				body["status"] = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
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

// corsMiddleware adds CORS headers for browser-based clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
