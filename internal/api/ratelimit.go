package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
)

// Probes and scrapes are never throttled.
var rateLimitExempt = map[string]bool{
	"/healthz":            true,
	"/metrics":            true,
	"/metrics/prometheus": true,
}

// rateLimit throttles requests per client IP and returns 429 Too Many Requests when the
// limit is exceeded. A limiter failure denies the request.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateLimitExempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		key := s.clientIP(r)
		decision, err := s.opts.Limiter.Take(r.Context(), key)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", "error", err, "ip", key)
		}

		if decision.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		if !decision.Allowed {
			s.metrics.RateLimited()
			s.logger.Warn("Rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
			)
			writeError(w, &APIError{
				status:  http.StatusTooManyRequests,
				headers: http.Header{"Retry-After": []string{strconv.Itoa(retryAfter(decision.RetryAfter))}},
				Code:    string(domainerrors.CodeRateLimited),
				Message: "too many requests, please retry later",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter rounds a wait up to whole seconds, at least one.
func retryAfter(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// clientIP identifies the caller for rate limiting and logs. Forwarding headers are
// only honored behind a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	if s.opts.TrustProxy {
		return getClientIP(r)
	}
	return remoteHost(r.RemoteAddr)
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteHost(r.RemoteAddr)
}

// remoteHost strips the port from RemoteAddr.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
