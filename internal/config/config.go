package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBPath string
	Port   int

	RequestTimeout   time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	RequestDelay     time.Duration
	Workers          int
	FreshnessDays    int
	ListingFreshness time.Duration

	UseBrowser bool
	Headless   bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env vars")
	}

	return &Config{
		DBPath: getEnv("DB_PATH", ""),
		Port:   getEnvInt("PORT", 8080),

		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECS", 30)) * time.Second,
		RetryAttempts:    getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBackoff:     time.Duration(getEnvInt("RETRY_BACKOFF_MS", 1000)) * time.Millisecond,
		RequestDelay:     time.Duration(getEnvInt("REQUEST_DELAY_MS", 250)) * time.Millisecond,
		Workers:          getEnvInt("WORKERS", 1),
		FreshnessDays:    getEnvInt("FRESHNESS_DAYS", 7),
		ListingFreshness: time.Duration(getEnvInt("LISTING_FRESHNESS_HOURS", 24)) * time.Hour,

		UseBrowser: getEnvBool("USE_BROWSER", false),
		Headless:   getEnvBool("HEADLESS", true),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
