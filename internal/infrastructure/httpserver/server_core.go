package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/configs"
	"github.com/casamapa/casamapa/internal/core/ports"
	"github.com/casamapa/casamapa/internal/infrastructure/cache"
	customMiddleware "github.com/casamapa/casamapa/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

// QueryCacheWithStats is the cache contract the handlers need: the port
// plus the stats snapshot exposed on /api/cache/stats.
type QueryCacheWithStats interface {
	ports.QueryCache
	Stats() cache.Stats
}

type ServerDeps struct {
	Cache          QueryCacheWithStats
	Presence       ports.PresenceDirectory
	Limiter        ports.AbuseLimiter
	Notes          ports.NoteRepository
	HealthCheckers []ports.HealthChecker
	CacheTTLs      configs.CacheConfig
	Quotas         configs.RateLimitConfig
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	cache          QueryCacheWithStats
	presence       ports.PresenceDirectory
	limiter        ports.AbuseLimiter
	notes          ports.NoteRepository
	ttls           configs.CacheConfig
	quotas         configs.RateLimitConfig
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		cache:          deps.Cache,
		presence:       deps.Presence,
		limiter:        deps.Limiter,
		notes:          deps.Notes,
		ttls:           deps.CacheTTLs,
		quotas:         deps.Quotas,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.Limiter,
			deps.Quotas.MinuteQuota,
			deps.Quotas.HourQuota,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
