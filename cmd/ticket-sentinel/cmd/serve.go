package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/ticket-sentinel/internal/api"
	"github.com/fieldops/ticket-sentinel/internal/config"
	"github.com/fieldops/ticket-sentinel/internal/engine"
	"github.com/fieldops/ticket-sentinel/internal/notify"
	"github.com/fieldops/ticket-sentinel/internal/quota"
	"github.com/fieldops/ticket-sentinel/internal/store"
	"github.com/fieldops/ticket-sentinel/pkg/logger"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and escalation scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s, err := store.NewPostgresStore(
		ctx, cfg.Database.DSN(), quota.NewGuard(cfg.Quota.DailyCap), cfg.Database.PoolSize,
	)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer s.Close()

	var notifier notify.Notifier = notify.NewNoOpNotifier(log)
	if cfg.Notifications.Webhook.Enabled {
		notifier = notify.NewWebhookNotifier(
			cfg.Notifications.Webhook.URL,
			notify.WithHeaders(cfg.Notifications.Webhook.Headers),
			notify.WithRateLimit(
				cfg.Notifications.Webhook.RatePerSecond,
				cfg.Notifications.Webhook.RateBurst,
			),
		)
	}

	eng := engine.NewEngine(s,
		engine.WithLogger(log),
		engine.WithNotifier(notifier),
		engine.WithFailedLoginThreshold(cfg.Rules.FailedLoginThreshold),
		engine.WithFailedLoginWindow(cfg.Rules.FailedLoginWindow),
		engine.WithStaleAfter(cfg.Escalation.StaleAfter),
		engine.WithNotifyFloor(domain.Severity(cfg.Notifications.MinSeverity)),
	)

	sched, err := engine.NewScheduler(eng, cfg.Escalation.SweepInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	srv := api.New(&cfg.Server, s, eng, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	// Let a running sweep finish before exiting.
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
	}

	log.Info("stopped")
	return nil
}
