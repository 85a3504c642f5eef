package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	PublicBaseURL string
	CronSecret    string

	Observability ObservabilityEnvConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBLogQueries      bool

	Billing   BillingEnvConfig
	Reminder  ReminderEnvConfig
	Scheduler SchedulerEnvConfig
	Email     EmailConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ObservabilityEnvConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelEndpoint  string
	OtelProtocol  string
	SamplingRatio float64
}

type BillingEnvConfig struct {
	TaxRate  string
	Timezone string
}

type ReminderEnvConfig struct {
	DefaultEnabled    bool
	DefaultDaysBefore int
	DefaultDaysAfter  int
	SendTimeout       time.Duration
}

type SchedulerEnvConfig struct {
	Enabled  bool
	Interval time.Duration
}

type EmailConfig struct {
	Provider     string
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled         bool
	PublicRate      float64
	PublicBurst     int
	CronRate        float64
	CronBurst       int
	DispatchLockTTL time.Duration
}

const (
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
	EmailProviderNoop   = "noop"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "barix"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		NodeID:        int64(getenvInt("SNOWFLAKE_NODE_ID", 0)),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_BASE_URL", "http://localhost:8080")), "/"),
		CronSecret:    strings.TrimSpace(getenv("CRON_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBLogQueries:      getenvBool("DATABASE_LOG_QUERIES", false),

		Observability: ObservabilityEnvConfig{
			LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "json")),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OtelProtocol:  strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Billing: BillingEnvConfig{
			TaxRate:  strings.TrimSpace(getenv("BILLING_TAX_RATE", "")),
			Timezone: strings.TrimSpace(getenv("BILLING_TIMEZONE", "UTC")),
		},
		Reminder: ReminderEnvConfig{
			DefaultEnabled:    getenvBool("REMINDER_DEFAULT_ENABLED", true),
			DefaultDaysBefore: getenvInt("REMINDER_DEFAULT_DAYS_BEFORE", 3),
			DefaultDaysAfter:  getenvInt("REMINDER_DEFAULT_DAYS_AFTER", 3),
			SendTimeout:       getenvDuration("REMINDER_SEND_TIMEOUT", 10*time.Second),
		},
		Scheduler: SchedulerEnvConfig{
			Enabled:  getenvBool("SCHEDULER_ENABLED", false),
			Interval: getenvDuration("SCHEDULER_INTERVAL", 15*time.Minute),
		},
		Email: EmailConfig{
			Provider:     strings.ToLower(strings.TrimSpace(getenv("EMAIL_PROVIDER", EmailProviderNoop))),
			From:         strings.TrimSpace(getenv("EMAIL_FROM", "Barix Billing <billing@barix.app>")),
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			ResendAPIKey: strings.TrimSpace(getenv("RESEND_API_KEY", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			PublicRate:      getenvFloat("RATE_LIMIT_PUBLIC_RATE", 1),
			PublicBurst:     getenvInt("RATE_LIMIT_PUBLIC_BURST", 30),
			CronRate:        getenvFloat("RATE_LIMIT_CRON_RATE", 0.1),
			CronBurst:       getenvInt("RATE_LIMIT_CRON_BURST", 2),
			DispatchLockTTL: getenvDuration("REMINDER_DISPATCH_LOCK_TTL", 10*time.Minute),
		},
	}

	return cfg
}

// SnowflakeNode returns the configured id node, or one numbered fallback
// when SNOWFLAKE_NODE_ID is unset. Each process kind gets its own default so
// a single-host deployment never mints colliding ids.
func (c Config) SnowflakeNode(fallback int64) (*snowflake.Node, error) {
	id := c.NodeID
	if id <= 0 {
		id = fallback
	}
	return snowflake.NewNode(id)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Location resolves the billing timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Billing.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
