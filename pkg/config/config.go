package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	Authority AuthorityConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// URL empty means run on the in-memory pass store (dev/kiosk mode).
	URL         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
}

// AuthorityConfig points at an optional external validation authority.
// When BaseURL is empty, validation runs against the local pass ledger.
type AuthorityConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ClientConfig drives the staff scanner loop (cmd/scanclient).
type ClientConfig struct {
	ServerURL    string
	DeviceID     string
	ScanInterval time.Duration
	Cooldown     time.Duration
	HTTPTimeout  time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    getInt("DB_MAX_CONNS", 10),
			MinConns:    getInt("DB_MIN_CONNS", 1),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-only-secret-change-in-prod"),
		},
		Authority: AuthorityConfig{
			BaseURL: getEnv("AUTHORITY_URL", ""),
			Timeout: getDuration("AUTHORITY_TIMEOUT", 5*time.Second),
		},
		Client: ClientConfig{
			ServerURL:    getEnv("SCAN_SERVER_URL", "http://localhost:8080"),
			DeviceID:     getEnv("SCAN_DEVICE_ID", "gate-1"),
			ScanInterval: getDuration("SCAN_INTERVAL", 800*time.Millisecond),
			Cooldown:     getDuration("SCAN_COOLDOWN", 2500*time.Millisecond),
			HTTPTimeout:  getDuration("SCAN_HTTP_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
