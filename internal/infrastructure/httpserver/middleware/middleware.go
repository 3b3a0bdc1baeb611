package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Logging     *LoggingMiddleware
	Metrics     *MetricsMiddleware
	ClientToken *ClientTokenMiddleware
	Throttle    *ThrottleMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	limiter ports.AbuseLimiter,
	minuteQuota int,
	hourQuota int,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		Logging:     NewLoggingMiddleware(logger),
		Metrics:     NewMetricsMiddleware(requestsTotal, requestDuration),
		ClientToken: NewClientTokenMiddleware(),
		Throttle:    NewThrottleMiddleware(limiter, minuteQuota, hourQuota, logger),
	}
}
