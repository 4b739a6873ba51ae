package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LeaveAllotment is the balance a ledger is created with and reset to.
type LeaveAllotment struct {
	Remaining int
	Sick      int
	Emergency int
	Total     int
}

func (a LeaveAllotment) Validate() error {
	if a.Remaining < 0 || a.Sick < 0 || a.Emergency < 0 || a.Total < 0 {
		return fmt.Errorf("leave allotment must not be negative: %+v", a)
	}
	return nil
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type Config struct {
	Port        string
	JWTSecret   string
	Database    DatabaseConfig
	RedisAddr   string
	KafkaBroker string

	LeaveDefaults LeaveAllotment
	LedgerTTL     time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int
	OutboxPollInterval time.Duration
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:      getEnv("PORT", "3000"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),
	}

	var err error
	if cfg.LeaveDefaults, err = loadLeaveDefaults(); err != nil {
		return Config{}, err
	}
	if cfg.LedgerTTL, err = getDuration("LEAVE_LEDGER_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = getDuration("OUTBOX_POLL_INTERVAL", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSecond, err = getFloat("RATE_LIMIT_PER_SECOND", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadLeaveDefaults() (LeaveAllotment, error) {
	var (
		a   LeaveAllotment
		err error
	)
	if a.Remaining, err = getInt("LEAVE_DEFAULT_REMAINING", 8); err != nil {
		return a, err
	}
	if a.Sick, err = getInt("LEAVE_DEFAULT_SICK", 5); err != nil {
		return a, err
	}
	if a.Emergency, err = getInt("LEAVE_DEFAULT_EMERGENCY", 3); err != nil {
		return a, err
	}
	if a.Total, err = getInt("LEAVE_DEFAULT_TOTAL", 16); err != nil {
		return a, err
	}
	return a, a.Validate()
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
