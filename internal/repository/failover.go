package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCarCache serves from primary until it fails, then from fallback.
// The primary is retried once recoveryAfter has passed since the last failure.
type FailoverCarCache struct {
	primary       domain.CarCache
	fallback      domain.CarCache
	logger        *zerolog.Logger
	isDown        atomic.Bool
	lastCheck     atomic.Int64
	recoveryAfter time.Duration
}

func NewFailoverCarCache(primary, fallback domain.CarCache, logger *zerolog.Logger) *FailoverCarCache {
	return &FailoverCarCache{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		recoveryAfter: time.Minute,
	}
}

func (c *FailoverCarCache) markDown(err error) {
	if !c.isDown.Swap(true) {
		c.logger.Error().Err(err).Msg("primary car cache failed, falling back to memory")
	}
	c.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried on this call.
func (c *FailoverCarCache) usePrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, c.lastCheck.Load())) > c.recoveryAfter
}

func (c *FailoverCarCache) recovered() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("primary car cache recovered")
	}
}

func (c *FailoverCarCache) GetAvailable(ctx context.Context) ([]*models.Car, bool, error) {
	if c.usePrimary() {
		cars, ok, err := c.primary.GetAvailable(ctx)
		if err == nil {
			c.recovered()
			return cars, ok, nil
		}
		c.markDown(err)
	}
	return c.fallback.GetAvailable(ctx)
}

func (c *FailoverCarCache) SetAvailable(ctx context.Context, cars []*models.Car) error {
	if c.usePrimary() {
		err := c.primary.SetAvailable(ctx, cars)
		if err == nil {
			c.recovered()
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.SetAvailable(ctx, cars)
}

// Invalidate always clears both caches, even while the primary is marked down.
func (c *FailoverCarCache) Invalidate(ctx context.Context) error {
	fallbackErr := c.fallback.Invalidate(ctx)
	if err := c.primary.Invalidate(ctx); err != nil {
		c.markDown(err)
	}
	return fallbackErr
}
