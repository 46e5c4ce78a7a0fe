// Package api provides the HTTP adapter for the ledger.
// Every route maps one-to-one onto a ledger.Service command.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotabot/quotabot/internal/app/ledger"
	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
)

// UserHeader carries the caller's member id.
const UserHeader = "X-Quotabot-User"

// Server is the quotabot HTTP API server.
type Server struct {
	ledger         *ledger.Service
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(svc *ledger.Service) *Server {
	return &Server{ledger: svc}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/quotas", func(r chi.Router) {
			r.Get("/leaderboard", s.handleQuotaLeaderboard)
			r.Get("/{user}", s.handleQuotaView)
			r.Post("/{user}/{item}", s.handleQuotaAdd)
			r.Post("/{user}/{item}/remove", s.handleQuotaRemove)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleGoalView)
			r.Put("/{item}", s.handleGoalSet)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/leaderboard", s.handleSalesLeaderboard)
			r.Get("/me", s.handleSalesMine)
			r.Put("/goal", s.handleSalesGoalSet)
			r.Get("/{user}", s.handleSalesView)
			r.Post("/{user}", s.handleSalesAdd)
			r.Post("/{user}/remove", s.handleSalesRemove)
		})

		r.Get("/state", s.handleState)
		r.Post("/rollover", s.handleRollover)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("write response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// writeLedgerError maps a command error to a status code. Internal failures
// are logged and reported without detail.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNegativeGoal),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrUnknownUser),
		errors.Is(err, domain.ErrUnknownItem):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// corsMiddleware adds CORS headers for local dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+UserHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request at debug level with its request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
