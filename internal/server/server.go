// Package server exposes built-in agents and the match coordinator over
// HTTP, with websocket streams for spectators.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saolsen/gameplay/internal/auth"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/store"
)

// Options configure a Server.
type Options struct {
	// Validator guards match creation. Nil disables authentication.
	Validator auth.Validator
	// FailOpen admits requests while the validator is unavailable.
	FailOpen bool
	// Gatherer backs /metrics. Nil omits the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end of a coordinator.
type Server struct {
	coord    *match.Coordinator
	bots     *bot.Service
	resolver *match.Resolver
	logger   *log.Logger
	upgrader websocket.Upgrader
	router   *gin.Engine

	// How often a spectator of an idle match re-reads it from the store.
	resyncEvery time.Duration

	mu   sync.Mutex
	http *http.Server

	// Matches started over HTTP run under ctx until Shutdown.
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewServer creates a server for coord that hosts bots at /agent.
func NewServer(coord *match.Coordinator, bots *bot.Service, logger *log.Logger, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		coord:    coord,
		bots:     bots,
		resolver: &match.Resolver{Bots: bots, Logger: logger},
		logger:   logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			// Spectator streams are read-only and public.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		resyncEvery: pingPeriod,
		ctx:         ctx,
		cancel:      cancel,
	}
	if opts.Validator == nil {
		opts.Validator = auth.NewNoopValidator()
	}
	s.router = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/agent", s.handleListAgents)
	r.POST("/agent", s.handleDecide)

	matches := r.Group("/matches")
	matches.GET("", s.handleListMatches)
	matches.POST("", auth.Middleware(opts.Validator, opts.FailOpen, s.logger), s.handleCreateMatch)
	matches.GET("/:id", s.handleGetMatch)
	matches.GET("/:id/turns", s.handleListTurns)
	matches.GET("/:id/watch", s.handleWatch)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve serves on l until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("Starting server", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and interrupts running matches, leaving
// them in progress so Resume can pick them up later.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("Server stopped")
	return err
}

// Wait blocks until every match started by the server has stopped running.
func (s *Server) Wait() { s.running.Wait() }

// run plays a match in the background.
func (s *Server) run(id string, participants []match.Participant) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		m, err := s.coord.Run(s.ctx, id, participants)
		switch {
		case errors.Is(err, context.Canceled):
			s.logger.Info("Match interrupted", "match", id)
		case err != nil:
			s.logger.Error("Match failed", "match", id, "error", err)
		default:
			s.logger.Debug("Match done", "match", id, "turns", m.Turns)
		}
	}()
}

// Resume restarts every unfinished match whose players can all be resolved.
// It reports how many were restarted.
func (s *Server) Resume(ctx context.Context) (int, error) {
	ms, err := s.coord.Store().ListMatches(ctx, store.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("list matches: %w", err)
	}
	n := 0
	for _, m := range ms {
		if m.Status.Over || s.coord.Running(m.ID) {
			continue
		}
		participants, err := s.resolver.ResolveAll(m.Players)
		if err != nil {
			s.logger.Warn("Cannot resume match", "match", m.ID, "error", err)
			continue
		}
		s.run(m.ID, participants)
		n++
	}
	if n > 0 {
		s.logger.Info("Resumed matches", "count", n)
	}
	return n, nil
}
