package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Mongo    MongoConfig
	Auth     AuthConfig
	Razorpay RazorpayConfig
	Reaper   ReaperConfig
	Redis    RedisConfig
	Events   EventsConfig
}

type ServiceConfig struct {
	Name     string
	Env      string
	LogLevel string
	LogFile  string
}

type ServerConfig struct {
	Addr             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	PaymentRateLimit float64 // requests per second per client
	PaymentRateBurst int
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret  string
	CookieName string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
	Currency  string
}

type ReaperConfig struct {
	Interval       time.Duration
	PendingTimeout time.Duration
	BatchSize      int
	LockTTL        time.Duration
}

type RedisConfig struct {
	// Addr is optional; when empty the reaper runs without a distributed lock.
	Addr     string
	Password string
	DB       int
}

type EventsConfig struct {
	// TopicARN is optional; when set order events are forwarded to SNS.
	TopicARN string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:     getEnv("SERVICE_NAME", "minishop-fashion"),
			Env:      getEnv("ENV", "dev"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogFile:  getEnv("LOG_FILE", ""),
		},
		Server: ServerConfig{
			Addr:             getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:      getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:     getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			PaymentRateLimit: getEnvFloat("PAYMENT_RATE_LIMIT", 1),
			PaymentRateBurst: getEnvInt("PAYMENT_RATE_BURST", 5),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "minishop"),
		},
		Auth: AuthConfig{
			JWTSecret:  strings.TrimSpace(getEnv("JWT_SECRET", "")),
			CookieName: getEnv("AUTH_COOKIE_NAME", "token"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Timeout:   getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
			Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
		},
		Reaper: ReaperConfig{
			Interval:       getEnvDuration("REAPER_INTERVAL", time.Hour),
			PendingTimeout: getEnvDuration("REAPER_PENDING_TIMEOUT", 24*time.Hour),
			BatchSize:      getEnvInt("REAPER_BATCH_SIZE", 200),
			LockTTL:        getEnvDuration("REAPER_LOCK_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Events: EventsConfig{
			TopicARN: getEnv("ORDER_EVENTS_TOPIC_ARN", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Razorpay.KeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if c.Razorpay.KeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment: %s", strings.Join(missing, ", "))
	}
	if c.Reaper.Interval <= 0 || c.Reaper.PendingTimeout <= 0 {
		return fmt.Errorf("config: reaper interval and pending timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		fmt.Printf("Warning: invalid duration for %s, using default\n", key)
	}
	return defaultValue
}
