package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/ticket-sentinel/internal/config"
	"github.com/fieldops/ticket-sentinel/internal/engine"
	"github.com/fieldops/ticket-sentinel/internal/quota"
	"github.com/fieldops/ticket-sentinel/internal/store"
	"github.com/fieldops/ticket-sentinel/pkg/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one escalation sweep and exit",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s, err := store.NewPostgresStore(
		ctx, cfg.Database.DSN(), quota.NewGuard(cfg.Quota.DailyCap), cfg.Database.PoolSize,
	)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer s.Close()

	eng := engine.NewEngine(s,
		engine.WithLogger(log),
		engine.WithStaleAfter(cfg.Escalation.StaleAfter),
	)

	escalated, err := eng.RunEscalationSweep(ctx)
	if err != nil {
		return err
	}

	log.Info("sweep finished", "escalated", escalated)
	return nil
}
