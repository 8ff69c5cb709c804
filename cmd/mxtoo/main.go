package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oleksiiilienko/mxtoo/internal/config"
	"github.com/oleksiiilienko/mxtoo/internal/hub"
	"github.com/oleksiiilienko/mxtoo/internal/logging"
	"github.com/oleksiiilienko/mxtoo/internal/sampler"
	"github.com/oleksiiilienko/mxtoo/internal/server"
	"github.com/oleksiiilienko/mxtoo/internal/telemetry"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mxtoo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewDefaultLogger().WithLevel(cfg.LogLevel)

	policy, err := sampler.ParsePolicy(cfg.OnSampleError)
	if err != nil {
		return err
	}

	h := hub.New()

	var metrics *telemetry.Metrics
	var observer sampler.Observer
	if cfg.MetricsEnabled {
		metrics = telemetry.NewMetrics(h)
		observer = metrics
	}

	smp := sampler.New(sampler.NewSystemHost(), h, sampler.Options{
		IdleInterval: cfg.IdleInterval,
		Policy:       policy,
		Logger:       logger.With("sampler"),
		Observer:     observer,
	})
	srv := server.New(cfg, h, smp, metrics, logger.With("server"))

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr(), err)
	}
	fmt.Printf("Listening on %s\n", ln.Addr())
	logger.Info("mxtoo started",
		logging.String("version", version),
		logging.String("public_dir", cfg.PublicDir),
		logging.String("policy", policy.String()))

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := smp.Run(ctx)
		var fatal *sampler.FatalError
		if errors.As(err, &fatal) {
			return err
		}
		// under the stop policy the server keeps running and /healthz reports it
		return nil
	})

	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", err)
		}
		if err := srv.Wait(shutdownCtx); err != nil {
			logger.Error("waiting for viewers", err)
		}
		return nil
	})

	return g.Wait()
}
