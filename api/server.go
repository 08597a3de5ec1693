/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the route table.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID / RealIP: request correlation and client address
  2. requestLogger:      one zap line per request
  3. Recoverer:          panic recovery (500 instead of crash)
  4. Timeout:            request context deadline
  5. secure:             security headers (HSTS only in production)
  6. CORS:               cross-origin requests for the frontend
  7. Metrics:            Prometheus count and latency per route

ROUTE GROUPS:
  /healthz, /metrics    unauthenticated
  /api/*                behind Identity; writes are rate limited per IP

SEE ALSO:
  - handlers.go: Handler implementations
  - identity.go: caller extraction
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// Options configures NewRouter. Zero values disable the optional parts.
type Options struct {
	Logger             *zap.Logger
	Metrics            *Metrics
	CORSOrigins        []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Production         bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Metrics != nil {
		h.Lifecycle.OnTransition = opts.Metrics.ObserveTransition
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		STSSeconds:         31536000,
		IsDevelopment:      !opts.Production,
	}).Handler)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept", "Authorization", "Content-Type",
				HeaderUserID, HeaderUserEmail, HeaderUserName, HeaderRoles, HeaderPermissions, HeaderActive,
			},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(opts.Metrics.Middleware)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.Identity)

		// Reads
		r.Get("/solicitudes", h.ListOwnRequests)
		r.Get("/solicitudes/pendientes", h.ListPendingRequests)
		r.Get("/solicitudes/{id}", h.GetRequest)
		r.Get("/saldos/{empleadoId}", h.GetBalance)
		r.Get("/saldos/{empleadoId}/historial", h.GetHistory)
		r.Get("/equipo/saldos", h.GetTeamBalances)
		r.Get("/empleados/{id}/superiores", h.GetSuperiors)

		// Writes
		r.Group(func(r chi.Router) {
			if opts.RateLimitPerMinute > 0 {
				r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
							Error: http.StatusText(http.StatusTooManyRequests),
							Code:  "rate_limited",
						})
					})))
			}
			r.Post("/solicitudes", h.SubmitRequest)
			r.Post("/solicitudes/{id}/decision", h.DecideRequest)
			r.Post("/solicitudes/{id}/cancelar", h.CancelRequest)
			r.Put("/empleados/{id}", h.PutEmployee)
			r.Put("/empleados/{id}/jefe", h.AssignSuperior)
		})
	})

	return r
}

// requestLogger writes one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
