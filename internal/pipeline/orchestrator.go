package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the background jobs: the market sync loop and, when
// configured, the retention cron.
type Orchestrator struct {
	sync          *MarketSync
	retention     *Retention
	syncInterval  time.Duration
	retentionCron string
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator. retention may be nil.
func NewOrchestrator(sync *MarketSync, retention *Retention, syncInterval time.Duration, retentionCron string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sync:          sync,
		retention:     retention,
		syncInterval:  syncInterval,
		retentionCron: retentionCron,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until ctx is cancelled or a job fails with a non-context
// error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline starting",
		slog.Duration("sync_interval", o.syncInterval),
		slog.String("retention_cron", o.retentionCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.sync.RunLoop(ctx, o.syncInterval)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("market sync: %w", err)
	})

	if o.retention != nil && o.retentionCron != "" {
		g.Go(func() error {
			err := o.retention.RunCron(ctx, o.retentionCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("retention: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline stopped")
	return nil
}
