package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a request from a given client key is allowed
// right now. Keys are typically client IPs.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps a token bucket per client key in process memory.
type LocalLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perMinute int
	cleanup   *time.Ticker
	done      chan struct{}
}

// NewLocalLimiter builds an in-process limiter allowing perMinute
// requests per client key, with burst capacity of the same size.
func NewLocalLimiter(perMinute int) *LocalLimiter {
	l := &LocalLimiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: perMinute,
		cleanup:   time.NewTicker(5 * time.Minute),
		done:      make(chan struct{}),
	}
	go l.cleanupStaleClients()
	return l
}

func (l *LocalLimiter) Allow(_ context.Context, key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (l *LocalLimiter) cleanupStaleClients() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			stale := time.Now().Add(-15 * time.Minute)
			for key, c := range l.clients {
				if c.lastSeen.Before(stale) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop terminates the background cleanup loop.
func (l *LocalLimiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}

// windowCounter is the slice of the Redis client the fixed-window
// limiter uses.
type windowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter counts requests in fixed one-minute windows shared
// across server instances. It fails open when Redis is unreachable.
type RedisLimiter struct {
	counter   windowCounter
	perMinute int
	logger    *slog.Logger
}

// NewRedisLimiter builds a distributed fixed-window limiter.
func NewRedisLimiter(counter windowCounter, perMinute int, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{counter: counter, perMinute: perMinute, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	window := time.Now().Unix() / 60
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	count, err := l.counter.IncrWindow(ctx, redisKey, time.Minute)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, allowing request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}
	return count <= int64(l.perMinute)
}
