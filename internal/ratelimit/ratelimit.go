// Package ratelimit throttles requests per client address with token buckets.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/biolink/internal/logger"
	"github.com/patric-chuzhbe/biolink/internal/models"
)

type clientIPGetter interface {
	GetClientIP(request *http.Request) (net.IP, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// Limiter keeps one token bucket per client address. Buckets of clients
// that stay away are dropped by EvictIdle.
type Limiter struct {
	limit    rate.Limit
	burst    int
	clientIP clientIPGetter
	limiters sync.Map // map[string]*bucket
	onReject func()
	now      func() time.Time
}

type Option func(*Limiter)

// WithOnReject registers a callback run for every rejected request.
func WithOnReject(callback func()) Option {
	return func(l *Limiter) {
		l.onReject = callback
	}
}

// New allows rps events per second per client with the given burst.
func New(rps float64, burst int, clientIP clientIPGetter, opts ...Option) *Limiter {
	l := &Limiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		clientIP: clientIP,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Limiter) get(key string) *bucket {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*bucket)
	}
	v, _ := l.limiters.LoadOrStore(key, &bucket{
		limiter: rate.NewLimiter(l.limit, l.burst),
	})

	return v.(*bucket)
}

// Allow takes a token from the bucket of key.
func (l *Limiter) Allow(key string) bool {
	b := l.get(key)
	now := l.now()
	b.lastSeen.Store(now.UnixNano())

	return b.limiter.AllowN(now, 1)
}

// EvictIdle drops the buckets of clients not seen for longer than idle and
// reports how many were dropped. idle should be at least the time a bucket
// needs to refill, otherwise a client could reset its budget by waiting.
func (l *Limiter) EvictIdle(idle time.Duration) int {
	deadline := l.now().Add(-idle).UnixNano()
	evicted := 0
	l.limiters.Range(func(key, value any) bool {
		if value.(*bucket).lastSeen.Load() < deadline {
			l.limiters.Delete(key)
			evicted++
		}
		return true
	})

	return evicted
}

// RefillTime is how long an empty bucket takes to become full again.
func (l *Limiter) RefillTime() time.Duration {
	if l.limit <= 0 {
		return 0
	}

	return time.Duration(float64(l.burst) / float64(l.limit) * float64(time.Second))
}

// Run calls EvictIdle every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := l.EvictIdle(idle); evicted > 0 {
					logger.Log.Debugw("evicted idle rate limit buckets", "count", evicted)
				}
			}
		}
	}()
}

// Middleware answers 429 with a JSON failure result once a client runs out of tokens.
func (l *Limiter) Middleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		key := "unknown"
		if ip, err := l.clientIP.GetClientIP(request); err == nil {
			key = ip.String()
		}

		if !l.Allow(key) {
			if l.onReject != nil {
				l.onReject()
			}
			response.Header().Set("Content-Type", "application/json")
			response.Header().Set("Retry-After", "1")
			response.WriteHeader(http.StatusTooManyRequests)
			err := json.NewEncoder(response).Encode(models.Result{
				Success: false,
				Message: "Too many login attempts",
			})
			if err != nil {
				logger.Log.Debugln("Error encoding the rate limit response: ", zap.Error(err))
			}

			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
