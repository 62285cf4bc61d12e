// Package adminserver exposes a ParallelPool's health, stats, and
// live events over HTTP: a surface an operator or an orchestrator's
// liveness probe talks to, never a path pages flow through. Every
// route is read-only except POST /flush, which flushes all shards and
// is gated by the admin token when one is configured.
package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/halvardsen/pagepool/pkg/adminauth"
	"github.com/halvardsen/pagepool/pkg/bufferpool"
	"github.com/halvardsen/pagepool/pkg/config"
)

// Server is the admin HTTP surface in front of a ParallelPool.
type Server struct {
	cfg       *config.Config
	pool      *bufferpool.ParallelPool
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
	hub       *EventHub
	exporter  *PrometheusExporter
}

// New builds a Server for pool per cfg. If cfg.EnableEvents is set, a
// live event hub is wired up and subscribed to the pool via
// bufferpool.EventSink. If cfg.EnableGraphQL is set, a read-only
// GraphQL introspection endpoint is mounted.
func New(cfg *config.Config, pool *bufferpool.ParallelPool) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		pool:      pool,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		exporter:  NewPrometheusExporter(pool, "pagepool"),
	}

	if cfg.EnableEvents {
		s.hub = NewEventHub()
		pool.SetEventSink(s.hub)
	}

	s.setupMiddleware()
	s.setupRoutes()

	if cfg.EnableGraphQL {
		if err := s.setupGraphQLRoutes(); err != nil {
			return nil, fmt.Errorf("adminserver: failed to setup graphql routes: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)

	if s.cfg.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.jsonContentType(s.handleHealthz))
	s.router.Get("/stats", s.jsonContentType(s.handleStats))
	s.router.Get("/metrics", s.handleMetrics)

	auth := adminauth.Middleware(s.cfg.AdminTokenHash, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handleFlushAll(w, r)
	}))
	s.router.Post("/flush", auth.ServeHTTP)

	if s.hub != nil {
		s.router.Get("/ws/events", s.hub.eventsHandler())
	}
}

func (s *Server) setupGraphQLRoutes() error {
	h, err := newGraphQLHandler(s.pool)
	if err != nil {
		return err
	}
	s.router.Post("/graphql", h.ServeHTTP)
	s.router.Get("/graphiql", graphiQLHandler())
	return nil
}

func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.AllowedOrigins) > 0 {
			origin = s.cfg.AllowedOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"shards": s.pool.ShardCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.pool.Stats())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.exporter.WriteMetrics(w); err != nil {
		http.Error(w, fmt.Sprintf("error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) handleFlushAll(w http.ResponseWriter, r *http.Request) {
	s.pool.FlushAll()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "flushed"})
}

// Start runs the server until it errors or receives SIGINT/SIGTERM,
// in which case it shuts down gracefully and returns nil.
func (s *Server) Start() error {
	log.Printf("pagepool admin server starting on http://%s:%d", s.cfg.Host, s.cfg.Port)
	log.Printf("shards: %d, frames per shard: %d", s.cfg.ShardCount, s.cfg.PoolSize)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("adminserver: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Printf("received signal: %v", sig)
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server and flushes every shard.
func (s *Server) Shutdown() error {
	log.Println("shutting down admin server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Printf("admin server shutdown error: %v", err)
	}
	s.pool.FlushAll()
	return nil
}
