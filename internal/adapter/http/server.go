package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/resolver"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the resolution API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	pipeline   *resolver.Pipeline
	logger     *slog.Logger
}

// NewServer creates the HTTP server with the /v1 resolution routes and the
// /healthz, /readyz, and /metrics operational routes.
func NewServer(addr string, pipeline *resolver.Pipeline, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pipeline: pipeline,
		logger:   logger,
	}

	mux.HandleFunc("GET /v1/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/fare", s.handleFare)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

// handleResolve resolves rider input (address text, map link, or "lat,lon")
// to a validated, graded location.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		writeError(w, domain.NewFailure(domain.FailureInvalidInput, "missing input parameter"))
		return
	}

	assessment, err := s.pipeline.Resolve(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// handleFare computes a tiered fare quote between two coordinates given as
// origin_lat/origin_lon/dest_lat/dest_lon.
func (s *Server) handleFare(w http.ResponseWriter, r *http.Request) {
	origin, err := coordinateParams(r, "origin_lat", "origin_lon")
	if err != nil {
		writeError(w, err)
		return
	}
	destination, err := coordinateParams(r, "dest_lat", "dest_lon")
	if err != nil {
		writeError(w, err)
		return
	}

	quote, err := s.pipeline.Quote(r.Context(), origin, destination)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func coordinateParams(r *http.Request, latKey, lonKey string) (domain.Coordinate, error) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get(lonKey), 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, domain.NewFailure(domain.FailureInvalidInput,
			"parameters "+latKey+" and "+lonKey+" must be decimal degrees")
	}
	return domain.NewCoordinate(lat, lon)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// statusFor maps pipeline failure kinds onto HTTP statuses. Unknown errors
// are treated as internal.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.FailureInvalidInput:
		return http.StatusBadRequest
	case domain.FailureUnresolvable, domain.FailureAddressNotFound:
		return http.StatusNotFound
	case domain.FailureOutOfBounds, domain.FailureOutOfServiceArea:
		return http.StatusUnprocessableEntity
	case domain.FailureProviderTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"code":  domain.KindOf(err).Code(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
