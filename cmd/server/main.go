package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	jwttoken "atelier/internal/jwt_token"
	"atelier/internal/platform/config"
	"atelier/internal/platform/httpserver"
	"atelier/internal/platform/logger"
	"atelier/internal/platform/middleware"
	"atelier/internal/registry/handler"
	registrymetrics "atelier/internal/registry/metrics"
	"atelier/internal/registry/service"
)

// main loads configuration, wires the registry and serves HTTP until a
// termination signal arrives.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "atelier: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	infra, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	sink, err := buildSink(ctx, cfg, infra, log)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg, infra)
	if err != nil {
		return err
	}

	registry := service.New(st,
		service.WithLogger(log),
		service.WithMetrics(registrymetrics.New(reg)),
		service.WithSink(sink),
		service.WithOwnerIndexLimit(cfg.Registry.OwnerIndexLimit),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	auth := middleware.RequireCaller(jwttoken.NewCallerValidator(jwtService), log)

	r := newRouter(log, reg, infra, handler.New(registry, auth, log))

	srv := httpserver.New(cfg.Server, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting atelier registry",
			"addr", cfg.Server.Addr,
			"store", cfg.Registry.Store,
			"sinks", cfg.Registry.Sinks,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
