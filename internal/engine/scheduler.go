package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the escalation sweep on a fixed interval. The sweep is
// otherwise stateless; anything that wants a one-shot run calls
// RunEscalationSweep directly.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a Scheduler that sweeps every sweepInterval.
func NewScheduler(
	eng *Engine,
	sweepInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if _, err := c.AddFunc(
		"@every "+sweepInterval.String(),
		s.runSweep,
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled sweeps.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for a running sweep to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	s.log.Info("scheduled escalation sweep starting")
	if _, err := s.engine.RunEscalationSweep(ctx); err != nil {
		s.log.Error("scheduled escalation sweep failed", "error", err)
	}
}
