package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// PermissionRefresh re-derives the session user whenever a request enters a
// permission-sensitive prefix, throttled so route churn cannot hammer the
// backend. Refresh failures are logged and never surfaced to the caller.
func PermissionRefresh(refresh func(context.Context) error, prefixes []string, throttle time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if throttle <= 0 {
		throttle = 30 * time.Second
	}

	var mu sync.Mutex
	var lastRefresh time.Time

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if matchesPrefix(r.URL.Path, prefixes) {
				mu.Lock()
				due := time.Since(lastRefresh) >= throttle
				if due {
					lastRefresh = time.Now()
				}
				mu.Unlock()

				if due {
					go func() {
						if err := refresh(context.Background()); err != nil {
							logger.Warn("permission refresh failed", "path", r.URL.Path, "error", err)
						}
					}()
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
