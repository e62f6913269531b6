package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded once at startup and passed
// by reference into the components that need it.
type Config struct {
	Env  string
	Port string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret     string
	JWTExpires    time.Duration
	JWTCookieDays int

	RateLimitMax int

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	HostURL string
}

// Production reports whether the service runs in production mode. It gates
// the Secure cookie flag and hides error internals from clients.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Env:           getenv("APP_ENV", "development"),
		Port:          getenv("PORT", "8000"),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "series_locker"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		JWTSecret:     getenv("JWT_SECRET", ""),
		JWTExpires:    getduration("JWT_EXPIRES_IN", 90*24*time.Hour),
		JWTCookieDays: getint("JWT_COOKIE_EXPIRES_IN", 90),
		RateLimitMax:  getint("RATE_LIMIT_MAX", 1000),
		SMTPHost:      getenv("SMTP_HOST", ""),
		SMTPPort:      getenv("SMTP_PORT", "587"),
		SMTPUser:      getenv("SMTP_USER", ""),
		SMTPPassword:  getenv("SMTP_PASSWORD", ""),
		EmailFrom:     getenv("EMAIL_FROM", "Series Locker <hello@serieslocker.app>"),
		HostURL:       getenv("HOST_URL", "http://localhost:3000/"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
