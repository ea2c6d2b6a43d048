// Package http exposes the tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"costbook/internal/aggregate"
	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/log"
	"costbook/internal/middleware/ratelimit"
	"costbook/internal/middleware/security"
	"costbook/internal/view"
)

// Tracker is the part of services.Tracker the API serves.
type Tracker interface {
	AddItem(ctx context.Context, name, cost string) (core.Item, error)
	UpdateItem(ctx context.Context, id, name, cost string) (core.Item, bool, error)
	DeleteItem(ctx context.Context, id string) bool
	AddCost(ctx context.Context, description, amount string) (core.Cost, error)
	UpdateCost(ctx context.Context, id, description, amount string) (core.Cost, bool, error)
	DeleteCost(ctx context.Context, id string) bool

	ItemView(cfg view.Config) view.Result[core.Item]
	CostView(cfg view.Config) view.Result[core.Cost]
	Summary() aggregate.Summary
	ItemCharts() chart.Bundle
	CostCharts() chart.Bundle
	Hydrate(ctx context.Context) error
}

// Server wraps http.Server with the API routes.
type Server struct {
	http.Server

	tracker   Tracker
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	startedAt time.Time

	shutdownOnce sync.Once
}

type Option func(*serverOptions)

type serverOptions struct {
	rate    ratelimit.Config
	headers security.HeadersConfig
}

// WithRateLimit sets the per-client request budget.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *serverOptions) { o.rate = cfg }
}

func WithHeaders(cfg security.HeadersConfig) Option {
	return func(o *serverOptions) { o.headers = cfg }
}

// NewServer builds a server listening on addr.
func NewServer(addr string, tracker Tracker, logger *log.Logger, opts ...Option) *Server {
	o := serverOptions{rate: ratelimit.DefaultConfig(), headers: security.DefaultHeadersConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		tracker:   tracker,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(o.rate),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(o.headers))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(security.ClientIP, s.handleRateLimited))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/", s.handleCreateItem)
			r.Put("/{id}", s.handleUpdateItem)
			r.Delete("/{id}", s.handleDeleteItem)
		})
		r.Route("/costs", func(r chi.Router) {
			r.Get("/", s.handleListCosts)
			r.Post("/", s.handleCreateCost)
			r.Put("/{id}", s.handleUpdateCost)
			r.Delete("/{id}", s.handleDeleteCost)
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/charts/{kind}", s.handleCharts)
		r.Post("/sync", s.handleSync)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
