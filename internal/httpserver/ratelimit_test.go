package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	status := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 at 1 rps, then limited.
	assert.Equal(t, http.StatusOK, status("10.0.0.1"))
	assert.Equal(t, http.StatusOK, status("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, status("10.0.0.1"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, status("10.0.0.2"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	l := newIPLimiters(1, time.Minute)
	base := time.Now()

	l.allowAt("10.0.0.1", base)
	l.allowAt("10.0.0.2", base)
	assert.Equal(t, 2, l.size())

	// Client 2 stays active; a later request past the idle window triggers
	// the sweep, dropping only the stale bucket.
	l.allowAt("10.0.0.2", base.Add(30*time.Second))
	l.allowAt("10.0.0.3", base.Add(61*time.Second))
	assert.Equal(t, 2, l.size())
}
