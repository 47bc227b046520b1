package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/damoang/angple-qualitygate/internal/common"
	"github.com/damoang/angple-qualitygate/internal/metrics"
	"github.com/damoang/angple-qualitygate/internal/repository"
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

const sweepBatchSize = 100

// ExpirySweeper periodically expires review entries whose window closed
type ExpirySweeper struct {
	queue     *repository.ApprovalQueueRepository
	approvals *ApprovalService
	interval  time.Duration
	now       func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewExpirySweeper creates a sweeper; call Start to run it
func NewExpirySweeper(queue *repository.ApprovalQueueRepository, approvals *ApprovalService, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		queue:     queue,
		approvals: approvals,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		stop:      make(chan struct{}),
	}
}

// Start runs the sweep loop in the background
func (s *ExpirySweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.Sweep(context.Background()); err != nil {
					logger.GetLogger().Error().Err(err).Msg("expiry sweep failed")
				}
			}
		}
	}()
	logger.GetLogger().Info().Dur("interval", s.interval).Msg("expiry sweeper started")
}

// Stop halts the loop and waits for an in-flight sweep
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	logger.GetLogger().Info().Msg("expiry sweeper stopped")
}

// Sweep expires every pending entry past its deadline and returns how many
// it closed. Entries resolved by a reviewer in the meantime are skipped.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	entries, err := s.queue.ListExpired(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, e := range entries {
		err := s.approvals.Expire(ctx, e.PostID)
		switch {
		case err == nil:
			expired++
			metrics.ExpiredReviews.Inc()
		case errors.Is(err, common.ErrAlreadyResolved), errors.Is(err, common.ErrNotFound):
		default:
			logger.WithPost(e.TenantID, e.PostID).Error().Err(err).Msg("failed to expire review entry")
		}
	}
	return expired, nil
}
