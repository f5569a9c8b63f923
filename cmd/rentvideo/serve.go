// cmd/rentvideo/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rentvideo/internal/httpapi"
	"rentvideo/internal/rental"
	"rentvideo/internal/seed"
	"rentvideo/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Long: `Migrates the schema, seeds sample data when enabled, and serves the API
until SIGINT or SIGTERM. The overdue sweeper runs alongside when
rental.overdue_sweep_interval is positive.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Seed.Enabled {
		if err := runSeed(ctx, a); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(a.deps(logger)),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting rentvideo", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})

	if interval := cfg.OverdueSweepInterval(); interval > 0 {
		sweeper := rental.NewSweeper(a.rentals, interval, logger)
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	return g.Wait()
}

func runSeed(ctx context.Context, a *app) error {
	data, err := seed.Default()
	if err != nil {
		return err
	}
	res, err := seed.Run(ctx, data, a.accounts, a.catalog, logger)
	if err != nil {
		return err
	}
	if res.Users > 0 || res.Videos > 0 {
		logger.Info("seed complete", zap.Int("users", res.Users), zap.Int("videos", res.Videos))
	}
	return nil
}
