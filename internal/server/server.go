// Package server exposes a scheduler over a JSON HTTP API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"k8s.io/utils/clock"

	"github.com/agentgate/agentgate/internal/common/health"
	"github.com/agentgate/agentgate/internal/common/requestid"
	"github.com/agentgate/agentgate/internal/scheduler"
)

// Server is the agentgate REST API server.
type Server struct {
	router    chi.Router
	scheduler *scheduler.Scheduler
	// Source of submission and status times. Injected here so that we can mock out for testing.
	clock clock.PassiveClock
}

type Option func(*Server)

func WithClock(clock clock.PassiveClock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// New creates a new Server with all routes registered. healthChecker backs the /health endpoint.
func New(sched *scheduler.Scheduler, healthChecker health.Checker, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		scheduler: sched,
		clock:     clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes(healthChecker)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(healthChecker health.Checker) {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(requestid.Middleware(false))
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	health.SetupHttpMux(r, healthChecker)
	r.NotFound(s.handleNotFound)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/scheduler", s.handleGetSnapshot)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Post("/{jobId}/complete", s.handleCompleteJob)
		})

		r.Get("/tenants/{tenantId}/status", s.handleGetTenantStatus)
	})
}
