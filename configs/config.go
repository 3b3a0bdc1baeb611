package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Presence  PresenceConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig describes the redundant backend pool and per-category TTLs.
// BackendURLs may be empty, in which case the cache runs purely on the
// in-process fallback store.
type CacheConfig struct {
	BackendURLs []string
	DialTimeout time.Duration
	ReadTimeout time.Duration
	PingPeriod  time.Duration

	ViewportTTL time.Duration
	TopNTTL     time.Duration
	PopularTTL  time.Duration
	ReactionTTL time.Duration
	DefaultTTL  time.Duration
}

type RateLimitConfig struct {
	DailyQuota         int
	MinuteQuota        int
	HourQuota          int
	CooldownSeconds    int
	DuplicateThreshold int
	DuplicateWindow    time.Duration
	KeyPrefix          string
}

type PresenceConfig struct {
	SessionTTL         time.Duration
	MessageLogTTL      time.Duration
	MessageLogCapacity int
	MaxMessageLength   int
	PrivateRoomTTL     time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "3000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 45*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "casamapa"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			BackendURLs: getURLListEnv("REDIS_URLS", "REDIS_URL"),
			DialTimeout: getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout: getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			PingPeriod:  getDurationEnv("REDIS_PING_PERIOD", 15*time.Second),
			ViewportTTL: getDurationEnv("CACHE_VIEWPORT_TTL", 10*time.Minute),
			TopNTTL:     getDurationEnv("CACHE_TOP_TTL", 5*time.Minute),
			PopularTTL:  getDurationEnv("CACHE_POPULAR_TTL", 10*time.Minute),
			ReactionTTL: getDurationEnv("CACHE_REACTION_TTL", 3*time.Minute),
			DefaultTTL:  getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			DailyQuota:         getIntEnv("RATE_LIMIT_DAILY", 10),
			MinuteQuota:        getIntEnv("RATE_LIMIT_MINUTE", 15),
			HourQuota:          getIntEnv("RATE_LIMIT_HOUR", 60),
			CooldownSeconds:    getIntEnv("RATE_LIMIT_COOLDOWN_SECONDS", 5),
			DuplicateThreshold: getIntEnv("RATE_LIMIT_DUPLICATE_THRESHOLD", 3),
			DuplicateWindow:    getDurationEnv("RATE_LIMIT_DUPLICATE_WINDOW", 10*time.Minute),
			KeyPrefix:          getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
		Presence: PresenceConfig{
			SessionTTL:         getDurationEnv("PRESENCE_SESSION_TTL", 24*time.Hour),
			MessageLogTTL:      getDurationEnv("PRESENCE_MESSAGE_LOG_TTL", 24*time.Hour),
			MessageLogCapacity: getIntEnv("PRESENCE_MESSAGE_LOG_CAPACITY", 100),
			MaxMessageLength:   getIntEnv("PRESENCE_MAX_MESSAGE_LENGTH", 200),
			PrivateRoomTTL:     getDurationEnv("PRESENCE_PRIVATE_ROOM_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getURLListEnv reads a comma or space separated list of URLs from the first
// key, falling back to a single URL under the second key. An empty result
// means no remote backends are configured.
func getURLListEnv(listKey, singleKey string) []string {
	raw := os.Getenv(listKey)
	if raw == "" {
		raw = os.Getenv(singleKey)
	}
	var urls []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
