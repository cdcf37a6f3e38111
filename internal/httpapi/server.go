// Package httpapi serves the ledger operations as a JSON API.
package httpapi

import (
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meterbook-dev/meterbook/internal/ledger"
)

// Options configures a Server.
type Options struct {
	WriteRPS       float64 // 0 disables write rate limiting
	WriteBurst     int
	AllowedOrigins []string
}

// Server routes HTTP requests to a ledger.Service.
type Server struct {
	ledger  *ledger.Service
	router  chi.Router
	limiter *rate.Limiter

	// writeMu serializes load-modify-save sequences.
	writeMu sync.Mutex
}

// New creates a Server.
func New(svc *ledger.Service, opts Options) *Server {
	limit := rate.Inf
	if opts.WriteRPS > 0 {
		limit = rate.Limit(opts.WriteRPS)
	}
	burst := opts.WriteBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		ledger:  svc,
		router:  chi.NewRouter(),
		limiter: rate.NewLimiter(limit, burst),
	}
	s.routes(opts)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(opts Options) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(observe)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/readings", s.handleListReadings)
		r.Get("/data/{metric}", s.handleSeries)
		r.Get("/aggregates/{metric}", s.handleAggregates)
		r.Get("/insights/{metric}", s.handleInsights)
		r.Get("/export.xlsx", s.handleExport)

		r.Group(func(r chi.Router) {
			r.Use(s.limitWrites)
			r.Post("/readings", s.handleSubmit)
			r.Delete("/readings/{date}", s.handleDelete)
			r.Post("/import", s.handleImport)
		})
	})
}

func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeAPIError(w, http.StatusTooManyRequests, "rate_limited", "too many write requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records metrics, logs the request and turns panics into 500s.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		w.Header().Set("X-Request-Id", reqID)
		rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				rr.status = http.StatusInternalServerError
				if !rr.wroteHeader {
					writeAPIError(rr, http.StatusInternalServerError, "internal_error", "internal error")
				}
				zap.L().Error("panic handling request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("req_id", reqID),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
			}

			dur := time.Since(start)
			route := routeLabel(r)
			observeHTTPRequest(route, r.Method, rr.status, dur)

			if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
				zap.L().Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", rr.status),
					zap.Duration("duration", dur.Truncate(time.Millisecond)),
					zap.String("req_id", reqID),
				)
			}
		}()

		next.ServeHTTP(rr, r)
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return strings.TrimSuffix(p, "/")
		}
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(p)
}
