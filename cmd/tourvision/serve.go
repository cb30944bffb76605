package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/api"
	"github.com/kdimtricp/tourvision/internal/database"
)

func serveCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	app := &api.App{
		Tours:           database.NewTourRepository(p.db),
		Clips:           database.NewClipRepository(p.db),
		Usage:           database.NewUsageRepository(p.db),
		Runner:          p.service,
		Metrics:         p.metrics.Handler(),
		Logger:          logger,
		DefaultProperty: cfg.PropertyCode,
		RunContext:      ctx,
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("database", cfg.Ledger.DatabasePath))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	// ctx is cancelled, so a background run stops at its next blocking call
	p.service.Wait()
	return nil
}
