package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket. Limiting lives server-side on
// purpose: anything enforced in the browser is under the attacker's control.
type RateLimiter struct {
	visitors sync.Map // ip -> *visitor
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows sustained `perSecond` requests with bursts of `burst`
// per client IP, and evicts idle entries in the background.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{limit: rate.Limit(perSecond), burst: burst}
	go rl.cleanup()
	return rl
}

// Handler is the chi middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RealIP middleware runs first, so RemoteAddr is proxy-aware.
		ip := r.RemoteAddr

		v, _ := rl.visitors.LoadOrStore(ip, &visitor{
			limiter:  rate.NewLimiter(rl.limit, rl.burst),
			lastSeen: time.Now(),
		})

		vis := v.(*visitor)
		vis.lastSeen = time.Now()

		if !vis.limiter.Allow() {
			http.Error(w, `{"code": "resource-exhausted", "message": "Rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.visitors.Range(func(key, value interface{}) bool {
			if time.Since(value.(*visitor).lastSeen) > 3*time.Minute {
				rl.visitors.Delete(key)
			}
			return true
		})
	}
}
