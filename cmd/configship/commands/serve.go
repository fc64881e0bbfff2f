package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/configship/internal/api"
	"github.com/TimurManjosov/configship/internal/config"
	"github.com/TimurManjosov/configship/internal/logging"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/internal/source"
	"github.com/TimurManjosov/configship/internal/telemetry"
	"github.com/TimurManjosov/configship/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation sidecar",
	Long: `Run the configship sidecar: keep a snapshot refreshed from its source and
serve evaluation requests over HTTP.

Configuration comes from environment variables and an optional .env file
(SOURCE_PATH or SOURCE_URL, ENVIRONMENT_ID, COLLECTION_ID, APP_HTTP_ADDR, ...).

Example:
  SOURCE_PATH=config.json ENVIRONMENT_ID=production configship serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		logger := logging.New(cfg.LogLevel)
		telemetry.Init()

		var src source.Source
		if cfg.SourcePath != "" {
			fs := source.NewFileSource(cfg.SourcePath, logger)
			if cfg.WatchFiles {
				src = fs
			} else {
				src = pollOnly{fs}
			}
		} else {
			src = source.NewHTTPSource(cfg.SourceURL, cfg.APIKey, cfg.EnvironmentID, cfg.CollectionID)
		}

		store := snapshot.NewStore()
		refresher := source.NewRefresher(src, store, cfg.EnvironmentID, cfg.CollectionID, cfg.PollInterval, logger)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// initial snapshot
		if err := refresher.Refresh(ctx); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		snap, _ := store.Current()
		logger.Info("snapshot loaded",
			"environment", snap.EnvironmentID,
			"features", len(snap.Features),
			"properties", len(snap.Properties),
			"etag", snap.ETag)

		refreshDone := make(chan error, 1)
		go func() {
			refreshDone <- refresher.Run(ctx)
		}()

		if len(cfg.WebhookURLs) > 0 {
			dispatcher := webhook.NewDispatcher(cfg.WebhookURLs, cfg.WebhookSecret, logger)
			dispatcher.Start()
			defer dispatcher.Close()
			go webhook.NewNotifier(store, dispatcher).Run(ctx)
		}

		srvAPI := api.NewServer(store, cfg.RateLimitPerIP, cfg.ServeAPIKey, logger)
		srv := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      srvAPI.Router(),
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		}
		serveDone := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.HTTPAddr)
			serveDone <- srv.ListenAndServe()
		}()

		// graceful shutdown
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-stop:
		case err := <-serveDone:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
		case err := <-refreshDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("refresher: %w", err)
			}
		}

		cancel()
		ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShut()
		_ = srv.Shutdown(ctxShut)
		logger.Info("stopped")

		return nil
	},
}

// pollOnly hides the Watch method of a file source so the refresher sticks to
// its poll ticker.
type pollOnly struct {
	source.Source
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
