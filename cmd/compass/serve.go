package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/api"
	"github.com/newthinker/compass/internal/app"
	"github.com/newthinker/compass/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the COMPASS API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger("")
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if !debug && cfg.Log.Level != "" {
		log = newLogger(cfg.Log.Level)
		defer log.Sync()
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	st, err := buildStack(cfg, log, reg, overrides{})
	if err != nil {
		return fmt.Errorf("wiring engine: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    metricsPath,
	}, st.engine, reg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	refs, err := watchlist(cfg.Watchlist.Assets)
	if err != nil {
		return err
	}
	notifiers, err := newNotifiers(cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("creating notifiers: %w", err)
	}
	watcher := app.New(st.engine, cfg.Watchlist.Interval, log)
	watcher.SetWatchlist(refs)
	watcher.SetNotifiers(notifiers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting COMPASS server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("sources", st.sources.Names()),
		zap.Int("watchlist", len(refs)),
		zap.Strings("notifiers", notifiers.Names()),
	)

	go func() {
		if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("watch loop stopped", zap.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down COMPASS server", zap.Any("watch_stats", watcher.Stats()))
	watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
