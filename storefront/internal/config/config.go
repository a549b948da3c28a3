package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	LogLevel        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// RedisAddr empty disables the cart cache and keeps pending checkout
	// markers in process memory, which only works with a single instance.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MongoURI empty keeps cart state in process memory.
	MongoURI         string
	MongoDBName      string
	MongoMaxPoolSize int
	MongoMinPoolSize int

	// Journal is disabled when Postgres.Host is empty.
	Postgres       Postgres
	MigrationsPath string

	// KafkaBrokers empty disables lifecycle events.
	KafkaBrokers []string
	KafkaTopic   string

	OrderAPIURL   string
	PaymentAPIURL string
	CatalogAPIURL string

	ConfirmDelay       time.Duration
	PendingCheckoutTTL time.Duration

	SessionCookieName   string
	SessionCookieSecure bool
	SessionCookieMaxAge time.Duration

	OTLPEndpoint string
}

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "50060"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDBName:      getEnv("MONGO_DB_NAME", "storefront"),
		MongoMaxPoolSize: getEnvInt("MONGO_MAX_POOL_SIZE", 100),
		MongoMinPoolSize: getEnvInt("MONGO_MIN_POOL_SIZE", 5),

		Postgres: Postgres{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},
		MigrationsPath: getEnv("MIGRATIONS_PATH", "storefront/internal/journal/migrations"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-checkout-events"),

		OrderAPIURL:   getEnv("ORDER_API_URL", "http://localhost:8081"),
		PaymentAPIURL: getEnv("PAYMENT_API_URL", "http://localhost:8082"),
		CatalogAPIURL: getEnv("CATALOG_API_URL", "http://localhost:8083"),

		ConfirmDelay:       getEnvDuration("CONFIRM_DELAY", 1500*time.Millisecond),
		PendingCheckoutTTL: getEnvDuration("PENDING_CHECKOUT_TTL", 24*time.Hour),

		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "sid"),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		SessionCookieMaxAge: getEnvDuration("SESSION_COOKIE_MAX_AGE", 30*24*time.Hour),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
