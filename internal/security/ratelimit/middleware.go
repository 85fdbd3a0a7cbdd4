package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Middleware rejects requests over the per-client budget with 429.
// Operational endpoints are exempt.
func Middleware(limiter Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			if !limiter.Allow(r.Context(), key) {
				log.Warn("rate limit exceeded",
					slog.String("client", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Trop de requêtes, veuillez réessayer plus tard"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller: first X-Forwarded-For hop when
// present, else the remote address without port.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
