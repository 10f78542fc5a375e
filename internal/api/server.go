// Package api exposes the catalog over HTTP: huma operations mounted on a
// chi router, authenticated with bearer tokens.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/homelibrary/homelibrary-server/internal/http/response"
	"github.com/homelibrary/homelibrary-server/internal/ratelimit"
	"github.com/homelibrary/homelibrary-server/internal/service"
)

// Services groups the services the handlers call.
type Services struct {
	Catalog *service.CatalogService
	Auth    *service.AuthService
}

// Options configures the HTTP layer.
type Options struct {
	AllowedOrigins         []string
	LoginAttemptsPerMinute int
}

// Server holds the router, the huma API and handler dependencies.
type Server struct {
	services     *Services
	router       *chi.Mux
	api          huma.API
	loginLimiter *ratelimit.KeyedRateLimiter
	logger       *slog.Logger
	now          func() time.Time
}

// NewServer builds the router and registers every operation.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services: services,
		router:   router,
		logger:   logger,
		now:      time.Now,
	}

	perMinute := opts.LoginAttemptsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	s.loginLimiter = ratelimit.New(float64(perMinute)/60, perMinute)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(recoverer(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	router.Use(authMiddleware(services.Auth))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "no route for "+r.URL.Path, logger)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r.Method+" not allowed on "+r.URL.Path, logger)
	})

	config := huma.DefaultConfig("Home Library API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Plain JSON bodies without $schema links.
	config.CreateHooks = nil

	s.api = humachi.New(router, config)
	RegisterErrorHandler()

	huma.Get(s.api, "/health", s.handleHealthCheck, func(op *huma.Operation) {
		op.OperationID = "healthCheck"
		op.Summary = "Liveness"
		op.Tags = []string{"Health"}
	})
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerScanRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.loginLimiter.Stop()
}

var bearerSecurity = []map[string][]string{{"bearer": {}}}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status" doc:"ok while the process serves requests"`
	Time   string `json:"time" doc:"Server time, UTC RFC 3339"`
}

func (s *Server) handleHealthCheck(context.Context, *struct{}) (*struct{ Body HealthResponse }, error) {
	out := &struct{ Body HealthResponse }{}
	out.Body.Status = "ok"
	out.Body.Time = s.now().UTC().Format(time.RFC3339)
	return out, nil
}
