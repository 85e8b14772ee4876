package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/config"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/randutil"
	"github.com/saolsen/gameplay/internal/server"
)

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Config string  `short:"c" long:"config" default:"gameplay.hcl" env:"GAMEPLAY_CONFIG" help:"Path to HCL configuration file"`
	Addr   string  `short:"a" long:"addr" env:"GAMEPLAY_ADDR" help:"Server address to bind to (overrides config)"`
	Seed   *uint64 `help:"Deterministic RNG seed for the built-in bots (optional)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}
	logger := g.Logger(cfg.LogLevel())

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coord := match.New(st, quartz.NewReal(), logger, cfg.Match(), match.NewMetrics(reg))
	bots := bot.NewService(randutil.New(int64(seed)), logger)
	srv := server.NewServer(coord, bots, logger, server.Options{
		Validator: cfg.Validator(),
		FailOpen:  cfg.Auth.FailOpen,
		Gatherer:  reg,
	})

	logger.Info("Starting gameplay server",
		"addr", addr,
		"store", cfg.Store.Backend,
		"turn_timeout", cfg.TurnTimeout(),
		"max_turns", cfg.Server.MaxTurns,
		"seed", seed)

	if _, err := srv.Resume(ctx); err != nil {
		logger.Warn("Failed to resume matches", "error", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.Start(addr)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
