package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	Notify    NotifyConfig
	Liveness  LivenessConfig
	Telegram  TelegramConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AssistantConfig bounds the automated-reply attempt. An empty URL means
// no assistant is reachable and every attempt fails toward escalation.
type AssistantConfig struct {
	URL            string
	TimeoutSeconds int
	MinConfidence  float64
}

// NotifyConfig controls notification delivery behavior.
type NotifyConfig struct {
	SendTimeoutSeconds      int
	OperatorCacheTTLSeconds int
	DefaultLocale           string
}

// LivenessConfig drives the background probe loops.
type LivenessConfig struct {
	Enabled          bool
	TargetURL        string
	IntervalsMinutes []int
	TimeoutSeconds   int
	FailureThreshold int
}

// TelegramConfig holds chat transport credentials. An empty token selects
// the log-only transport.
type TelegramConfig struct {
	BotToken string
	APIBase  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	minConfidence, err := strconv.ParseFloat(getEnv("ASSISTANT_MIN_CONFIDENCE", "0.55"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ASSISTANT_MIN_CONFIDENCE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Assistant: AssistantConfig{
			URL:            os.Getenv("ASSISTANT_URL"),
			TimeoutSeconds: getEnvAsInt("ASSISTANT_TIMEOUT_SECONDS", 20),
			MinConfidence:  minConfidence,
		},
		Notify: NotifyConfig{
			SendTimeoutSeconds:      getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
			OperatorCacheTTLSeconds: getEnvAsInt("NOTIFY_OPERATOR_CACHE_TTL_SECONDS", 60),
			DefaultLocale:           getEnv("NOTIFY_DEFAULT_LOCALE", "it"),
		},
		Liveness: LivenessConfig{
			Enabled:          getEnvAsBool("LIVENESS_ENABLED", true),
			TargetURL:        getEnv("LIVENESS_TARGET_URL", ""),
			IntervalsMinutes: getEnvAsIntSlice("LIVENESS_INTERVALS_MINUTES", []int{4, 6, 8}),
			TimeoutSeconds:   getEnvAsInt("LIVENESS_TIMEOUT_SECONDS", 30),
			FailureThreshold: getEnvAsInt("LIVENESS_FAILURE_THRESHOLD", 3),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			APIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the assistant call timeout.
func (a AssistantConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SendTimeout returns the per-recipient delivery timeout.
func (n NotifyConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// OperatorCacheTTL returns the recipient-set cache TTL.
func (n NotifyConfig) OperatorCacheTTL() time.Duration {
	if n.OperatorCacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(n.OperatorCacheTTLSeconds) * time.Second
}

// Intervals returns the probe intervals as durations.
func (l LivenessConfig) Intervals() []time.Duration {
	out := make([]time.Duration, 0, len(l.IntervalsMinutes))
	for _, m := range l.IntervalsMinutes {
		if m <= 0 {
			continue
		}
		out = append(out, time.Duration(m)*time.Minute)
	}
	if len(out) == 0 {
		out = []time.Duration{4 * time.Minute, 6 * time.Minute, 8 * time.Minute}
	}
	return out
}

// ProbeTimeout returns the per-probe HTTP timeout.
func (l LivenessConfig) ProbeTimeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsIntSlice(key string, fallback []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, parsed)
	}
	return out
}
