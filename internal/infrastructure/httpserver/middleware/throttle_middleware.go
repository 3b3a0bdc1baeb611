package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/internal/core/ports"
	"github.com/casamapa/casamapa/internal/infrastructure/httpserver/helpers"
)

// ThrottleMiddleware applies the coarse per-minute and per-hour abuse
// windows to mutating requests. The limiter only counts; this middleware
// owns the allow/deny decision. Counting errors fail open.
type ThrottleMiddleware struct {
	limiter     ports.AbuseLimiter
	minuteQuota int64
	hourQuota   int64
	logger      *logrus.Logger
}

func NewThrottleMiddleware(limiter ports.AbuseLimiter, minuteQuota, hourQuota int, logger *logrus.Logger) *ThrottleMiddleware {
	return &ThrottleMiddleware{
		limiter:     limiter,
		minuteQuota: int64(minuteQuota),
		hourQuota:   int64(hourQuota),
		logger:      logger,
	}
}

func (m *ThrottleMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			default:
				return next(c)
			}

			token, err := helpers.GetClientToken(c)
			if err != nil {
				// No identity resolved; nothing to count against.
				return next(c)
			}

			ctx := c.Request().Context()
			minute, err := m.limiter.MinuteCount(ctx, token, "write")
			if err != nil {
				return next(c)
			}
			if m.minuteQuota > 0 && minute > m.minuteQuota {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"client_token": token, "count": minute}).Warn("throttle: minute quota exceeded")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
			}

			hour, err := m.limiter.HourCount(ctx, token, "write")
			if err != nil {
				return next(c)
			}
			if m.hourQuota > 0 && hour > m.hourQuota {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"client_token": token, "count": hour}).Warn("throttle: hour quota exceeded")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "hourly limit reached, try again later")
			}

			return next(c)
		}
	}
}
