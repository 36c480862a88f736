package ticker

import (
	"context"
	"fmt"
	"log"
	"time"

	"pisowifi-backend/config"
	"pisowifi-backend/internal/notification"
	"pisowifi-backend/internal/store"
)

// Service ages down the balance of every active device on a fixed interval.
// It runs independently of any request: each tick is one atomic batch pass
// over the store, and devices whose balance reaches zero are deactivated in
// that same pass and handed to the notification worker pool.
type Service struct {
	cfg        *config.Config
	store      store.Store
	workerPool *notification.WorkerPool
}

// NewService creates a new decrement ticker service.
func NewService(cfg *config.Config, s store.Store, workerPool *notification.WorkerPool) *Service {
	return &Service{
		cfg:        cfg,
		store:      s,
		workerPool: workerPool,
	}
}

// Run starts the tick loop and blocks until the context is cancelled or the
// store fails. A persistence fault is returned rather than retried: silently
// skipping a tick would let devices run past their balance, so the caller is
// expected to treat the error as fatal.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Ticker.Enabled {
		log.Println("Decrement ticker is disabled. Not starting.")
		return nil
	}
	log.Printf("Starting decrement ticker (every %s, -%ds per tick)...",
		s.cfg.Ticker.Interval, s.cfg.Ticker.DecrementSeconds)

	if s.workerPool != nil {
		s.workerPool.Start(ctx)
	}

	timer := time.NewTimer(s.cfg.Ticker.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Decrement ticker shutting down.")
			return nil
		case <-timer.C:
			if err := s.TickOnce(ctx); err != nil {
				return fmt.Errorf("decrement tick failed: %w", err)
			}
			timer.Reset(s.cfg.Ticker.Interval)
		}
	}
}

// TickOnce performs a single batch decrement pass and dispatches expiry
// notifications for devices that ran out of time in this pass.
func (s *Service) TickOnce(ctx context.Context) error {
	mutated, expired, err := s.store.DecrementActive(ctx, int64(s.cfg.Ticker.DecrementSeconds))
	if err != nil {
		return err
	}

	if mutated > 0 {
		log.Printf("Decremented %d devices (%d expired)", mutated, len(expired))
	}

	if s.workerPool != nil {
		for _, mac := range expired {
			s.workerPool.Dispatch(mac)
		}
	}
	return nil
}
