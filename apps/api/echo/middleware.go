package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mahadhurio_http_requests_total",
			Help: "Number of HTTP requests processed, by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mahadhurio_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds, by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mahadhurio_rate_limited_requests_total",
			Help: "Number of capture requests rejected by the rate limiter.",
		},
	)
)

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			// route template, not the raw URL; keeps label cardinality bounded
			path := ctx.Path()
			if path == "" {
				path = ctx.Request().URL.Path
			}
			method := ctx.Request().Method
			status := ctx.Response().Status
			if err != nil {
				if herr, ok := err.(*echo.HTTPError); ok {
					status = herr.Code
				}
			}

			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

var errRateLimited = echo.NewHTTPError(http.StatusTooManyRequests, "too many capture attempts, try again later")

// rateLimitMiddleware caps requests per client IP over a fixed window.
// Redis being down must not take captures down with it, so it fails open.
func rateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rctx := ctx.Request().Context()
			key := fmt.Sprintf("ratelimit:capture:%s", ctx.RealIP())

			pipe := rdb.TxPipeline()
			incr := pipe.Incr(rctx, key)
			pipe.ExpireNX(rctx, key, window)
			if _, err := pipe.Exec(rctx); err != nil {
				ctx.Logger().Errorf("rate limiter unavailable: %v", err)
				return next(ctx)
			}

			if incr.Val() > int64(limit) {
				rateLimitedTotal.Inc()
				return errRateLimited
			}
			return next(ctx)
		}
	}
}
