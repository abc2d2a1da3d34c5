package service

import (
	"context"
	"time"

	"github.com/medflow/drug-warehouse/pkg/logger"
)

// StatusScheduler refreshes batch statuses and the stock gauges periodically,
// so expiry transitions surface between requests too.
type StatusScheduler struct {
	inventory *InventoryService
	interval  time.Duration
	logger    *logger.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewStatusScheduler creates a new status scheduler
func NewStatusScheduler(inventory *InventoryService, interval time.Duration, log *logger.Logger) *StatusScheduler {
	return &StatusScheduler{
		inventory: inventory,
		interval:  interval,
		logger:    log.WithComponent("status_scheduler"),
	}
}

// Start starts the scheduler in a background goroutine
func (s *StatusScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("status scheduler started")

		// Run an initial sweep immediately
		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("status scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler and waits for a running cycle to finish
func (s *StatusScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *StatusScheduler) runCycle(ctx context.Context) {
	start := time.Now()

	// Dashboard sweeps every batch and sets the stock gauges
	dash, err := s.inventory.Dashboard(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("status sweep failed")
		}
		return
	}

	s.logger.Debug().
		Dur("duration", time.Since(start)).
		Int64("expiring_soon", dash.ExpiringSoon).
		Int64("expired", dash.Expired).
		Msg("status sweep completed")
}
