package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/goodbooks-api/internal/config"
	"github.com/listenupapp/goodbooks-api/internal/logger"
	"github.com/listenupapp/goodbooks-api/internal/metrics"
	"github.com/listenupapp/goodbooks-api/internal/ratelimit"
)

// LimiterHandle wraps the configured rate limiter with shutdown capability.
// Limiter is nil when rate limiting is off.
type LimiterHandle struct {
	ratelimit.Limiter
	stop func() error
}

// Shutdown implements do.Shutdownable.
func (h *LimiterHandle) Shutdown() error {
	if h.stop == nil {
		return nil
	}
	return h.stop()
}

// ProvideLimiter provides the request limiter selected by ratelimit.backend.
func ProvideLimiter(i do.Injector) (*LimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	rl := cfg.RateLimit

	switch rl.Backend {
	case config.LimiterOff:
		log.Info("Rate limiting disabled")
		return &LimiterHandle{}, nil

	case config.LimiterTokenBucket:
		limiter := ratelimit.New(float64(rl.Requests)/rl.Window.Seconds(), rl.Burst)
		log.Info("Rate limiter initialized", "backend", rl.Backend, "requests", rl.Requests, "window", rl.Window, "burst", rl.Burst)
		return &LimiterHandle{
			Limiter: limiter,
			stop: func() error {
				limiter.Stop()
				return nil
			},
		}, nil

	case config.LimiterRedis:
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(ratelimit.RedisOptions{
			Addr:     rl.Redis.Addr,
			Password: rl.Redis.Password,
			DB:       rl.Redis.DB,
			Prefix:   rl.Redis.Prefix,
			Limit:    rl.Requests,
			Window:   rl.Window,
		})
		if err != nil {
			return nil, err
		}

		// Not fatal: requests are denied until redis answers.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := limiter.Ping(ctx); err != nil {
			log.Warn("Redis rate limiter unreachable at startup", "addr", rl.Redis.Addr, "error", err)
		}

		log.Info("Rate limiter initialized", "backend", rl.Backend, "addr", rl.Redis.Addr, "requests", rl.Requests, "window", rl.Window)
		return &LimiterHandle{Limiter: limiter, stop: limiter.Close}, nil

	default:
		limiter, err := ratelimit.NewFixedWindowLimiter(rl.Requests, rl.Window)
		if err != nil {
			return nil, err
		}
		log.Info("Rate limiter initialized", "backend", rl.Backend, "requests", rl.Requests, "window", rl.Window)
		return &LimiterHandle{Limiter: limiter}, nil
	}
}

// ProvideMetrics provides the Prometheus-backed metrics registry.
func ProvideMetrics(do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
