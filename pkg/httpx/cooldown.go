package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

// CooldownMiddleware admits one request per window for each key in
// category. Limiter errors fail open so a Redis outage does not take the
// API down with it.
func CooldownMiddleware(l ratelimit.Limiter, category string, window time.Duration, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			blocked, err := l.Check(ctx, category, key, window)
			if err != nil {
				log.Warn("cooldown check failed, allowing request", "category", category, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if blocked {
				w.Header().Set("Retry-After", strconv.Itoa(max(int(window.Seconds()), 1)))
				log.Info("cooldown active", "category", category, "key", key)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Slow down. Please try again shortly.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
