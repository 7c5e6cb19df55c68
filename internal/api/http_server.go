package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"rentcars/internal/config"
	"rentcars/internal/domain"
	"rentcars/internal/metrics"
	"rentcars/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	userEmailHeader = "x-user-email"
)

// Pinger reports store health for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HTTPServer exposes the reservation and inventory API over JSON.
type HTTPServer struct {
	cfg          config.APIConfig
	reservations domain.ReservationService
	cars         domain.CarService
	pinger       Pinger
	validate     *validator.Validate
	limiter      *rateLimiter
	server       *http.Server
	log          zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	reservations domain.ReservationService,
	cars domain.CarService,
	pinger Pinger,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		reservations: reservations,
		cars:         cars,
		pinger:       pinger,
		validate:     service.NewValidator(),
		limiter:      newRateLimiter(cfg.RateLimit),
		log:          zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.route(mux, "GET /api/v1/cars", "cars", srv.handleListAvailableCars)
	srv.route(mux, "POST /api/v1/reservations", "create_reservation", srv.handleCreateReservation)
	srv.route(mux, "GET /api/v1/reservations", "user_reservations", srv.handleUserReservations)
	srv.route(mux, "GET /api/v1/reservations/me", "my_reservations", srv.handleMyReservations)
	srv.route(mux, "GET /api/v1/admin/cars", "admin_list_cars", srv.handleAdminListCars)
	srv.route(mux, "POST /api/v1/admin/cars", "admin_create_car", srv.handleAdminCreateCar)
	srv.route(mux, "PUT /api/v1/admin/cars/{id}", "admin_update_car", srv.handleAdminUpdateCar)
	srv.route(mux, "DELETE /api/v1/admin/cars/{id}", "admin_delete_car", srv.handleAdminDeleteCar)
	srv.route(mux, "GET /api/v1/admin/reservations/export", "admin_export", srv.handleExportReservations)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.requestID(srv.accessLog(srv.rateLimit(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

// Handler returns the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) route(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(endpoint)
		h(w, r)
	})
}

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.log.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.limiter.Allow(clientKey(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Kind: "RateLimitError", Message: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the peer host. Request headers are caller-controlled and never part of the key.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := describe(err)
	code := httpStatus(service.Kind(body.Kind))
	event := s.log.Warn()
	if code >= http.StatusInternalServerError {
		event = s.log.Error()
	}
	event.Err(err).
		Str("request_id", requestIDFrom(r.Context())).
		Str("kind", body.Kind).
		Msg("request failed")
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
