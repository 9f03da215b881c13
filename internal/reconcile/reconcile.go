// Package reconcile periodically compares stored balances against the
// approved ledger history and reports accounts that drifted.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/calivra/calivra_bank/internal/ledger"
)

// Job runs a single reconciliation pass.
type Job struct {
	ledger  ledger.Ledger
	logger  *slog.Logger
	timeout time.Duration
}

func NewJob(l ledger.Ledger, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{ledger: l, logger: logger, timeout: time.Minute}
}

// Run reconciles every account and logs each drift found.
func (j *Job) Run(ctx context.Context) ([]ledger.Drift, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	drifts, err := j.ledger.Reconcile(ctx)
	if err != nil {
		j.logger.Error("reconcile failed", "error", err)
		return nil, err
	}
	for _, d := range drifts {
		j.logger.Warn("balance drift",
			slog.String("account_id", d.AccountID),
			slog.String("balance", d.Balance.StringFixed(2)),
			slog.String("expected", d.Expected.StringFixed(2)),
		)
	}
	j.logger.Info("reconcile completed", "drifts", len(drifts), "duration", time.Since(start))
	return drifts, nil
}

// Scheduler runs the job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
}

// NewScheduler parses spec (standard cron or @every descriptors) and
// registers the job. The scheduler does not start until Start is called.
func NewScheduler(spec string, job *Job, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	if _, err := c.AddFunc(spec, func() { _, _ = job.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, job: job}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running pass to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
