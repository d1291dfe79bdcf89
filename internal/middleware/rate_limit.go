package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/baharkarakas/checkflow/internal/api/httpx"
)

type tokenBucket struct {
	tokens int
	last   time.Time
}

// limiter keeps one token bucket per caller: the authenticated party when
// known, otherwise the remote IP.
type limiter struct {
	mu      sync.Mutex
	rate    int
	buckets map[string]*tokenBucket
}

func newLimiter(rps int) *limiter {
	return &limiter{rate: rps, buckets: map[string]*tokenBucket{}}
}

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.rate, last: now}
		l.buckets[key] = b
	}
	if refill := int(now.Sub(b.last).Seconds() * float64(l.rate)); refill > 0 {
		b.tokens = min(b.tokens+refill, l.rate)
		b.last = now
	}
	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(rps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(callerKey(r), time.Now()) {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if p, ok := PartyFrom(r.Context()); ok {
		return "party:" + strconv.FormatInt(p.ID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
