package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Cart      CartConfig
	Checkout  CheckoutConfig
	Kafka     KafkaConfig
	Admin     AdminConfig
}

type AppConfig struct {
	Name            string
	Env             string
	Port            string
	Debug           bool
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	Timezone     string
	MaxIdleConns int
	MaxOpenConns int
	LogLevel     string
}

type JWTConfig struct {
	Secret       string
	Expiry       time.Duration
	CookieName   string
	CookieSecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type LogConfig struct {
	Level    string
	Encoding string
}

// CartConfig controls the lifetime of idle carts
type CartConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// CheckoutConfig controls what checkout accepts and how long storage may take
type CheckoutConfig struct {
	PaymentMethods []string
	StorageTimeout time.Duration
	IdempotencyTTL time.Duration
}

// KafkaConfig enables SaleRecorded events when Brokers is non-empty
type KafkaConfig struct {
	Brokers    []string
	SalesTopic string
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

// Load reads .env (when present) into the process environment, then resolves
// every setting through viper with its default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Env:             v.GetString("APP_ENV"),
			Port:            v.GetString("APP_PORT"),
			Debug:           v.GetBool("APP_DEBUG"),
			ShutdownTimeout: v.GetDuration("APP_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			Name:         v.GetString("DB_NAME"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			Timezone:     v.GetString("DB_TIMEZONE"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			LogLevel:     v.GetString("DB_LOG_LEVEL"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			Expiry:       time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
			CookieName:   v.GetString("JWT_COOKIE_NAME"),
			CookieSecure: v.GetBool("JWT_COOKIE_SECURE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: v.GetInt("RATE_LIMIT_DURATION"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
		Cart: CartConfig{
			IdleTTL:       v.GetDuration("CART_IDLE_TTL"),
			SweepInterval: v.GetDuration("CART_SWEEP_INTERVAL"),
		},
		Checkout: CheckoutConfig{
			PaymentMethods: splitList(v.GetString("CHECKOUT_PAYMENT_METHODS")),
			StorageTimeout: v.GetDuration("CHECKOUT_STORAGE_TIMEOUT"),
			IdempotencyTTL: v.GetDuration("CHECKOUT_IDEMPOTENCY_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("KAFKA_BROKERS")),
			SalesTopic: v.GetString("KAFKA_SALES_TOPIC"),
		},
		Admin: AdminConfig{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "caja-api")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "caja")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "America/Argentina/Buenos_Aires")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 12)
	v.SetDefault("JWT_COOKIE_NAME", "token")
	v.SetDefault("JWT_COOKIE_SECURE", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_DURATION", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "")
	v.SetDefault("CART_IDLE_TTL", "2h")
	v.SetDefault("CART_SWEEP_INTERVAL", "1m")
	v.SetDefault("CHECKOUT_PAYMENT_METHODS", "efectivo,debito,credito,transferencia")
	v.SetDefault("CHECKOUT_STORAGE_TIMEOUT", "10s")
	v.SetDefault("CHECKOUT_IDEMPOTENCY_TTL", "24h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_SALES_TOPIC", "caja.sales")
	v.SetDefault("ADMIN_NAME", "Administrador")
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.App.Env == "production" && c.JWT.Secret == "change-this-secret-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Cart.IdleTTL <= 0 {
		return fmt.Errorf("CART_IDLE_TTL must be positive, got %s", c.Cart.IdleTTL)
	}
	if c.Cart.SweepInterval <= 0 {
		return fmt.Errorf("CART_SWEEP_INTERVAL must be positive, got %s", c.Cart.SweepInterval)
	}
	if c.Checkout.StorageTimeout <= 0 {
		return fmt.Errorf("CHECKOUT_STORAGE_TIMEOUT must be positive, got %s", c.Checkout.StorageTimeout)
	}
	if len(c.Checkout.PaymentMethods) == 0 {
		return fmt.Errorf("CHECKOUT_PAYMENT_METHODS must list at least one method")
	}
	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
