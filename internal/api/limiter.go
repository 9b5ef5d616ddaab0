package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"salonbook/internal/config"

	"golang.org/x/time/rate"
)

// clientLimiter is a token bucket per client key.
type clientLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	cfg      config.APIRateLimitConfig
}

func newClientLimiter(cfg config.APIRateLimitConfig) *clientLimiter {
	return &clientLimiter{cfg: cfg}
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS > 0 && !l.getLimiter(clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *clientLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

// clientKey identifies the caller by API key, then by remote host.
func clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeaderDefault)); apiKey != "" {
		return "key:" + apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}
