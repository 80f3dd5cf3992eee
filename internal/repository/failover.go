package repository

import (
	"context"
	"sync/atomic"
	"time"

	"portal/internal/domain"
	"portal/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverFlashRepository writes to primary until it fails, then to fallback,
// probing primary again once per recoveryInterval.
type FailoverFlashRepository struct {
	primary   domain.FlashRepository
	fallback  domain.FlashRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverFlashRepository(primary, fallback domain.FlashRepository, logger *zerolog.Logger) *FailoverFlashRepository {
	return &FailoverFlashRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverFlashRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary flash repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverFlashRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverFlashRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary flash repository recovered")
	}
}

func (r *FailoverFlashRepository) Push(ctx context.Context, sessionID string, flash models.Flash) error {
	if r.usePrimary() {
		err := r.primary.Push(ctx, sessionID, flash)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Push(ctx, sessionID, flash)
}

// Pop drains both stores so flashes pushed during an outage are not lost.
func (r *FailoverFlashRepository) Pop(ctx context.Context, sessionID string) ([]models.Flash, error) {
	var flashes []models.Flash
	if r.usePrimary() {
		got, err := r.primary.Pop(ctx, sessionID)
		if err == nil {
			r.recovered()
			flashes = append(flashes, got...)
		} else {
			r.markDown(err)
		}
	}

	got, err := r.fallback.Pop(ctx, sessionID)
	if err != nil {
		return flashes, err
	}
	return append(flashes, got...), nil
}
