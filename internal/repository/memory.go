package repository

import (
	"context"
	"sync"
	"time"

	"rentcars/internal/models"
)

type MemoryCarCache struct {
	mu        sync.RWMutex
	cars      []*models.Car
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryCarCache(ttl time.Duration) *MemoryCarCache {
	return &MemoryCarCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCarCache) GetAvailable(_ context.Context) ([]*models.Car, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cars == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	out := make([]*models.Car, len(c.cars))
	for i, car := range c.cars {
		cp := *car
		out[i] = &cp
	}
	return out, true, nil
}

func (c *MemoryCarCache) SetAvailable(_ context.Context, cars []*models.Car) error {
	snapshot := make([]*models.Car, len(cars))
	for i, car := range cars {
		cp := *car
		snapshot[i] = &cp
	}

	c.mu.Lock()
	c.cars = snapshot
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCarCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.cars = nil
	c.mu.Unlock()
	return nil
}
