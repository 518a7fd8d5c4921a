package service

import (
	"context"
	"time"

	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sweepLockKey = "lock:stock-ledger:sweep"

// ExpirySweeper reclaims lapsed cart holds on a timer, routing each one
// through the same release path manual releases use. Re-entrant by
// construction: a line already cleared no longer matches the scan, and the
// reserved decrement floors at zero. Correctness never depends on a single
// process staying alive; holds carry their own expiry.
type ExpirySweeper struct {
	reservations ReservationService
	carts        repository.CartRepository
	locker       *cache.Locker // nil: single-instance deployment
	log          *zap.Logger
	interval     time.Duration
	batchSize    int
}

func NewExpirySweeper(
	reservations ReservationService,
	carts repository.CartRepository,
	locker *cache.Locker,
	log *zap.Logger,
	interval time.Duration,
	batchSize int,
) *ExpirySweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ExpirySweeper{
		reservations: reservations,
		carts:        carts,
		locker:       locker,
		log:          log,
		interval:     interval,
		batchSize:    batchSize,
	}
}

// Sweep releases every lapsed cart hold it can find and returns how many
// lines it reclaimed. Safe to call from an external scheduler as well as
// the internal ticker.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.Acquire(ctx, sweepLockKey, token, s.interval)
		if err != nil {
			// Lock is duplicate-work avoidance, not correctness; sweep anyway.
			s.log.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		} else if !ok {
			return 0, nil // another instance is sweeping
		} else {
			defer func() {
				if err := s.locker.Release(context.Background(), sweepLockKey, token); err != nil {
					s.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	lines, err := s.carts.ExpiredLines(ctx, time.Now(), s.batchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, line := range lines {
		if err := s.reservations.ReleaseExpiredLine(ctx, line); err != nil {
			s.log.Warn("failed to release expired hold",
				zap.String("cart_line_id", line.ID.String()), zap.Error(err))
			continue
		}
		released++
	}
	return released, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("released expired cart holds", zap.Int("count", n))
			}
		}
	}
}
