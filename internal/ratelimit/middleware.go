package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/mdfasadik-dev/pnh-agro-api/internal/common"
)

// Middleware throttles public pricing endpoints per client IP.
type Middleware struct {
	Limiter *limiter.Limiter
	KeyFunc func(*http.Request) string
	OnError func(error)
}

// New builds a redis-backed limiter allowing perMinute requests per key.
func New(client *redis.Client, perMinute int, prefix string) (*Middleware, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	return &Middleware{
		Limiter: limiter.New(store, rate),
		KeyFunc: common.ClientIP,
	}, nil
}

// Handle enforces the limit before delegating to the next handler. Limiter
// store failures fail open so a redis outage never blocks checkout.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := ""
		if m.KeyFunc != nil {
			key = m.KeyFunc(r)
		}
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := m.Limiter.Get(r.Context(), key)
		if err != nil {
			if m.OnError != nil {
				m.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
