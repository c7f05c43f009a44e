package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/technosupport/fleetwatch/internal/ratelimit"
)

type RateLimitConfig struct {
	GlobalIP ratelimit.LimitConfig `yaml:"global_ip"`
	Login    ratelimit.LimitConfig `yaml:"login"`
}

type RateLimit struct {
	limiter *ratelimit.Limiter
	config  RateLimitConfig
}

func NewRateLimit(l *ratelimit.Limiter, c RateLimitConfig) *RateLimit {
	return &RateLimit{limiter: l, config: c}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

// Global enforces the per-IP limit on every request. Limiter outages fail
// open for the API at large and closed for auth endpoints.
func (m *RateLimit) Global(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ip:%s", m.limiter.HashIP(clientIP(r)))
		decision, err := m.limiter.Check(r.Context(), key, m.config.GlobalIP)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
				log.Printf("ratelimit: limiter unavailable, failing closed for auth: %v", err)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
			log.Printf("ratelimit: limiter unavailable, failing open: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if !decision.Allowed {
			writeRateLimitHeaders(w, decision)
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login throttles credential attempts per IP before any password check runs.
func (m *RateLimit) Login(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("login:%s", m.limiter.HashIP(clientIP(r)))
		decision, err := m.limiter.Check(r.Context(), key, m.config.Login)
		if err != nil {
			log.Printf("ratelimit: login limiter unavailable, failing closed: %v", err)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		if !decision.Allowed {
			writeRateLimitHeaders(w, decision)
			http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
