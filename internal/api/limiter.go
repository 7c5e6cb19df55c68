package api

import (
	"sync"

	"rentcars/internal/config"
	"rentcars/internal/models"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client key.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	if cfg.RPS == 0 {
		cfg.RPS = models.RateLimitRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = models.RateLimitBurst
	}
	return &rateLimiter{cfg: cfg}
}

func (l *rateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
