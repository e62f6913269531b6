package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/series-locker/backend/internal/store"
	"github.com/series-locker/backend/internal/web"
)

// RateLimit enforces a fixed request budget per source address per hour. If
// the counter backend is unreachable the request is let through; the limiter
// is protection, not a dependency.
func RateLimit(counter *store.RateCounter, max int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			n, err := counter.Incr(r.Context(), ip)
			if err != nil {
				slog.Warn("rate limiter unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(max) {
				web.JSON(w, http.StatusTooManyRequests, map[string]string{
					"status":  "fail",
					"message": "You have reached the request limit for this IP. Try again in an hour.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
