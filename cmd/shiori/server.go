package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/watcher"
	"github.com/hyperjump/shiori/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

var serverDebug bool

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API and the inbox watcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, loadedPath, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err := utils.NewLogger(cfg.Debug || serverDebug)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		if loadedPath == "" {
			logger.Info("no config file found, using defaults")
		} else {
			logger.Info("loaded config", zap.String("path", loadedPath))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		comps, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer comps.Close()

		inbox := watcher.NewInbox(comps.Pipeline, cfg.Server.MaxUploadBytes, logger)
		w := watcher.New(cfg.Watch.Directories, cfg.Watch.RecursiveOrDefault(), inbox.HandleFunc(ctx),
			watcher.WithExtensions(watcher.Extensions...),
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExistingFiles()

		srv := server.NewServer(comps.Pipeline, comps.Engine, comps.Storage, comps.Registry, cfg,
			server.WithLogger(logger),
			server.WithMetrics(comps.Metrics),
			server.WithWatch(w, loadedPath),
		)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().BoolVar(&serverDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serverCmd)
}
