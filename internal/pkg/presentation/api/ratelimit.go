package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/metrics"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type loginLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *cache.Cache
}

func newLoginLimiter(requestsPerMinute, burst int) *loginLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}

	return &loginLimiter{
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		limiters: cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (l *loginLimiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(client); ok {
		l.limiters.SetDefault(client, v)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.SetDefault(client, limiter)
	return limiter
}

func (l *loginLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}

		if !l.get(client).Allow() {
			metrics.LoginAttempts.WithLabelValues("throttled").Inc()
			w.Header().Set("Retry-After", "60")
			writeErrorMessage(w, http.StatusTooManyRequests, "Too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}
