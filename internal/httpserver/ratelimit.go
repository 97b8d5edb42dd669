package httpserver

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL bounds how long an idle client keeps its bucket. Entries
// are swept lazily on access, so the map does not grow with every IP the
// server has ever seen.
const limiterIdleTTL = 10 * time.Minute

type ipLimiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	perSecond float64
	burst     int
	idleTTL   time.Duration

	mu        sync.Mutex
	entries   map[string]*ipLimiterEntry
	lastSweep time.Time
}

func newIPLimiters(perSecond float64, idleTTL time.Duration) *ipLimiters {
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &ipLimiters{
		perSecond: perSecond,
		burst:     burst,
		idleTTL:   idleTTL,
		entries:   make(map[string]*ipLimiterEntry),
	}
}

func (l *ipLimiters) allowAt(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) >= l.idleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &ipLimiterEntry{lim: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RateLimitByIP returns a middleware applying a token-bucket limiter per
// client IP. Used on the auth and translate routes, which are the ones an
// anonymous or misbehaving client can hammer.
func RateLimitByIP(perSecond float64) func(http.Handler) http.Handler {
	limiters := newIPLimiters(perSecond, limiterIdleTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// middleware.RealIP has already rewritten RemoteAddr.
			if !limiters.allowAt(r.RemoteAddr, time.Now()) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
