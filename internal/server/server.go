// Package server exposes the poller over HTTP for headless use: the current
// state as JSON, the two device commands, an on-demand poll, a websocket
// that pushes every new state, and the Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclealek/SmartHome/internal/logger"
	"github.com/unclealek/SmartHome/internal/poller"
)

const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Controller is the poller surface served over HTTP. *poller.Poller
// satisfies it.
type Controller interface {
	State() poller.State
	Tick(ctx context.Context) (poller.State, bool)
	SetLight(ctx context.Context, on bool) error
	ResetMode(ctx context.Context) error
	Subscribe() (<-chan poller.State, func())
}

// Config holds the dependencies for creating a Server.
type Config struct {
	Controller Controller
	Logger     *logger.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Server routes requests to the poller and owns the http.Server lifecycle.
type Server struct {
	ctrl    Controller
	log     *logger.Logger
	metrics http.Handler
	router  *chi.Mux

	mu         sync.Mutex
	httpServer *http.Server
	// stop ends long-lived websocket streams, which Shutdown does not track.
	stop context.CancelFunc
}

// New validates cfg and mounts every route.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("server: controller is required")
	}
	s := &Server{
		ctrl:    cfg.Controller,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		router:  chi.NewRouter(),
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.routes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/poll", s.handlePoll)
		r.Post("/light", s.handleLight)
		r.Post("/reset", s.handleReset)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// normalizeAddr accepts "8080" or ":8080".
func normalizeAddr(addr string) string {
	if addr == "" || strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

// Run listens on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Run(addr string) error {
	base, stop := context.WithCancel(context.Background())
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return base },
		Addr:              normalizeAddr(addr),
		Handler:           s.router,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.mu.Lock()
	s.httpServer, s.stop = srv, stop
	s.mu.Unlock()

	s.log.Infow("http server listening", "addr", srv.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, allowing in-flight requests to
// complete. Websocket streams are closed first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, stop := s.httpServer, s.stop
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	stop()
	return srv.Shutdown(ctx)
}
