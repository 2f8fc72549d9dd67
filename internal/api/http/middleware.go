package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/ClementLG/UrlShortener/internal/ratelimit"
	"github.com/ClementLG/UrlShortener/pkg/response"
)

// clientIP derives the rate-limit identity for a request. Exactly one proxy
// hop is trusted: the first X-Forwarded-For entry wins, then X-Real-IP, then
// the direct peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

// rateLimit rejects requests whose client identity has exhausted any tier of
// the limiter's policy for this route.
func rateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, tier := l.Allow(clientIP(r))
			if !ok {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.RateLimitExceededResponse(tier.String()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
