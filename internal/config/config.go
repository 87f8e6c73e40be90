package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Temporal  TemporalConfig
	Redis     RedisConfig
	Refund    RefundConfig
	Booking   BookingConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	LogLevel    string
}

type DatabaseConfig struct {
	DSN                string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

type TemporalConfig struct {
	Address   string
	Namespace string
	TaskQueue string
}

// RedisConfig is optional; an empty Addr disables idempotency keys
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type RefundConfig struct {
	UserPlatformURL string
	Timeout         time.Duration
}

type BookingConfig struct {
	PaymentWindow           time.Duration
	UserRefundPercent       float64
	MaxDepartureCapacity    int
	CancellationConcurrency int
}

type SchedulerConfig struct {
	CompletionSweepSpec string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			DSN:                getEnv("DATABASE_DSN", "booking_user:booking_pass@tcp(localhost:3306)/trip_booking?parseTime=true"),
			MaxOpenConnections: getEnvAsInt("DATABASE_MAX_OPEN_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Temporal: TemporalConfig{
			Address:   getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnv("TEMPORAL_TASK_QUEUE", "trip-booking-task-queue"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Refund: RefundConfig{
			UserPlatformURL: getEnv("USER_PLATFORM_URL", "http://localhost:3000"),
			Timeout:         getEnvAsDuration("REFUND_TIMEOUT", 10*time.Second),
		},
		Booking: BookingConfig{
			PaymentWindow:           getEnvAsDuration("PAYMENT_WINDOW", 15*time.Minute),
			UserRefundPercent:       getEnvAsFloat("USER_REFUND_PERCENT", 100),
			MaxDepartureCapacity:    getEnvAsInt("MAX_DEPARTURE_CAPACITY", 100),
			CancellationConcurrency: getEnvAsInt("CANCELLATION_CONCURRENCY", 4),
		},
		Scheduler: SchedulerConfig{
			CompletionSweepSpec: getEnv("COMPLETION_SWEEP_SPEC", "0 0 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.Refund.UserPlatformURL == "" {
		return fmt.Errorf("USER_PLATFORM_URL is required")
	}
	if c.Booking.UserRefundPercent < 0 || c.Booking.UserRefundPercent > 100 {
		return fmt.Errorf("USER_REFUND_PERCENT must be between 0 and 100, got %v", c.Booking.UserRefundPercent)
	}
	if c.Booking.MaxDepartureCapacity < 1 {
		return fmt.Errorf("MAX_DEPARTURE_CAPACITY must be positive")
	}
	if c.Booking.PaymentWindow <= 0 {
		return fmt.Errorf("PAYMENT_WINDOW must be positive")
	}
	if c.Booking.CancellationConcurrency < 1 {
		c.Booking.CancellationConcurrency = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid number value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return d
}
