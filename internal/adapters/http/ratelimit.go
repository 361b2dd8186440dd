package httpadapter

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window limiter keyed by client IP. A client over the
// limit is blocked for blockFor. A nil client disables limiting, and Redis
// errors let traffic through.
func RateLimit(rdb *redis.Client, limit int, window, blockFor time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := keyPrefix + ":ip:" + ip
			blockKey := key + ":blocked"

			if blocked, _ := rdb.Get(ctx, blockKey).Result(); blocked == "1" {
				ttl, _ := rdb.TTL(ctx, blockKey).Result()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, envelope{Status: "error", Message: "too many requests, try again in " + ttl.String()})
				return
			}

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, window)
			}
			if count > int64(limit) {
				rdb.Set(ctx, blockKey, "1", blockFor)
				w.Header().Set("Retry-After", strconv.Itoa(int(blockFor.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, envelope{Status: "error", Message: "too many requests, blocked for " + blockFor.String()})
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}
