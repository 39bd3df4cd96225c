// Package ratelimit throttles requests per client IP.
package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"proofpass/pkg/platform/middleware/metadata"
	"proofpass/pkg/requestcontext"
)

const keyPrefix = "proofpass:ratelimit"

// Notifier is told about every rejected request.
type Notifier interface {
	IncRateLimited()
}

// New returns a per-IP limiter allowing perMinute requests. With a nil redis
// client counters live in process memory.
func New(perMinute int64, client redis.UniversalClient, notifier Notifier, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if perMinute <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", perMinute)
	}
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}

	var store limiter.Store
	if client != nil {
		s, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: keyPrefix})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limit store: %w", err)
		}
		store = s
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: keyPrefix, CleanUpInterval: time.Minute})
	}

	mw := stdlib.NewMiddleware(limiter.New(store, rate),
		stdlib.WithKeyGetter(clientKey),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			if notifier != nil {
				notifier.IncRateLimited()
			}
			logger.WarnContext(r.Context(), "rate limit exceeded",
				"client_ip", clientKey(r),
				"request_id", requestcontext.RequestID(r.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many requests"}`))
		}),
	)
	return mw.Handler, nil
}

func clientKey(r *http.Request) string {
	if ip := requestcontext.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return metadata.ClientIPFromRequest(r)
}
