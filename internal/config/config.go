package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime configuration, injected through environment
// variables. Empty RedisAddr disables Redis features (rate limiting, stock
// cache); empty KafkaBrokers disables event publishing.
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	AdminEmail    string
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration

	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	LoginRateLimit     int
	LoginRateWindow    time.Duration
	StockCacheTTL      time.Duration

	// StorePhone is the WhatsApp number checkout links point at.
	StorePhone string
}

// Load reads and validates the configuration, falling back to defaults.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "joias.db"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "joias-order-events"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "joias-notifier"),
		AdminEmail:         getEnv("ADMIN_EMAIL", "admin@searajoias.local"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           12 * time.Hour,
		CheckoutRateLimit:  30,
		CheckoutRateWindow: time.Minute,
		LoginRateLimit:     10,
		LoginRateWindow:    time.Minute,
		StockCacheTTL:      time.Hour,
		StorePhone:         getEnv("STORE_PHONE", "554996824477"),
	}

	if cfg.AdminPassword == "" {
		return AppConfig{}, fmt.Errorf("ADMIN_PASSWORD must be set")
	}
	if cfg.JWTSecret == "" {
		return AppConfig{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if len(cfg.KafkaBrokers) > 0 {
		if cfg.KafkaTopic == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
		}
		if cfg.KafkaGroupID == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
		}
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	ttlHours, err := getEnvInt("TOKEN_TTL_HOUR", int(cfg.TokenTTL.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid TOKEN_TTL_HOUR: %w", err)
	}
	if ttlHours <= 0 {
		return AppConfig{}, fmt.Errorf("TOKEN_TTL_HOUR must be > 0")
	}
	cfg.TokenTTL = time.Duration(ttlHours) * time.Hour

	checkoutLimit, err := getEnvInt("CHECKOUT_RATE_LIMIT", cfg.CheckoutRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CHECKOUT_RATE_LIMIT: %w", err)
	}
	if checkoutLimit <= 0 {
		return AppConfig{}, fmt.Errorf("CHECKOUT_RATE_LIMIT must be > 0")
	}
	cfg.CheckoutRateLimit = checkoutLimit

	loginLimit, err := getEnvInt("LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if loginLimit <= 0 {
		return AppConfig{}, fmt.Errorf("LOGIN_RATE_LIMIT must be > 0")
	}
	cfg.LoginRateLimit = loginLimit

	stockTTLMin, err := getEnvInt("STOCK_CACHE_TTL_MIN", int(cfg.StockCacheTTL.Minutes()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid STOCK_CACHE_TTL_MIN: %w", err)
	}
	if stockTTLMin <= 0 {
		return AppConfig{}, fmt.Errorf("STOCK_CACHE_TTL_MIN must be > 0")
	}
	cfg.StockCacheTTL = time.Duration(stockTTLMin) * time.Minute

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
