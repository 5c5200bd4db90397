// Package server provides the football-api HTTP server.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/internal/auth"
	"github.com/footballdb/football-api/internal/config"
	"github.com/footballdb/football-api/internal/events"
	"github.com/footballdb/football-api/internal/httputil"
	"github.com/footballdb/football-api/internal/metrics"
	"github.com/footballdb/football-api/internal/model"
	"github.com/footballdb/football-api/internal/store"
)

const metricsNamespace = "football_api"

// Server wraps HTTP routes and dependencies.
type Server struct {
	store       store.Store
	cfg         config.Config
	version     string
	commit      string
	buildDate   string
	openapiSpec []byte
	catalog     model.Catalog
	publisher   events.Publisher
	metrics     *metrics.Metrics
	authorizer  *auth.Authorizer
	router      chi.Router
}

// Option configures server construction.
type Option func(*Server)

// WithOpenAPISpec sets the embedded OpenAPI bytes.
func WithOpenAPISpec(spec []byte) Option {
	return func(s *Server) {
		s.openapiSpec = spec
	}
}

// WithCatalog replaces the embedded resource catalog.
func WithCatalog(catalog model.Catalog) Option {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithPublisher publishes a change event after every committed write.
func WithPublisher(p events.Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithMetrics sets the collectors used by the request middleware and
// /metrics. Without it a private set is created when metrics are enabled.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New constructs a football API server.
func New(st store.Store, cfg config.Config, version, commit, buildDate string, opts ...Option) *Server {
	s := &Server{
		store:      st,
		cfg:        cfg,
		version:    version,
		commit:     commit,
		buildDate:  buildDate,
		catalog:    model.DefaultCatalog(),
		authorizer: auth.NewAuthorizer(st),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && cfg.MetricsEnabled {
		s.metrics = metrics.New(metricsNamespace)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(httputil.RequestID)
	r.Use(httputil.RequestLogger(log.Logger))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(httputil.Recoverer)
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(httputil.BodyLimit(int64(s.cfg.MaxBodyBytes)))
	}

	// Set before the resource routes are mounted so their subrouters inherit them.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Group(func(r chi.Router) {
		r.Method(http.MethodGet, "/health", httputil.HealthHandler())
		r.Method(http.MethodGet, "/readiness", httputil.ReadinessHandler(s.store.Ping))
		r.Method(http.MethodGet, "/version", httputil.VersionHandler(s.version, s.commit, s.buildDate))
		if s.cfg.MetricsEnabled && s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}
		r.Method(http.MethodGet, "/api/openapi.yaml", httputil.OpenAPIHandler(s.openapiSpec))
	})

	for _, res := range s.catalog.Resources {
		h := &resourceHandler{
			server: s,
			res:    res,
			repo:   s.store.Records(res),
		}
		r.Route(res.Path(), func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if s.cfg.AuthReads {
					r.Use(s.authorizer.Middleware)
				}
				r.Get("/", h.handleList)
				r.Get("/{id}", h.handleGet)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.authorizer.Middleware)
				r.Post("/", h.handleCreate)
				r.Put("/", h.handleReplace)
				r.Put("/{id}", h.handleReplace)
				r.Patch("/", h.handlePatch)
				r.Patch("/{id}", h.handlePatch)
				r.Delete("/", h.handleDelete)
				r.Delete("/{id}", h.handleDelete)
			})
		})
	}

	return r
}
