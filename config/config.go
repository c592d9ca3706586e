package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the process reads from the environment. All
// external collaborators (database, Google Maps, Gemini) are addressed here so
// the rest of the code never touches os.Getenv.
type Config struct {
	Environment string
	Port        string

	DatabaseURL string
	JWTSecret   string

	GoogleMapsAPIKey string
	GeminiAPIKey     string

	// AllowedOrigins is the CORS allow-list for browser clients.
	AllowedOrigins []string

	// Poller tuning. Zero values fall back to the defaults below.
	UserPollInitialDelay time.Duration
	UserPollInterval     time.Duration
	UserPollMaxAttempts  int
	ProviderPollInterval time.Duration
}

const (
	defaultPort                 = "5000"
	defaultUserPollInitialDelay = 8 * time.Second
	defaultUserPollInterval     = 4 * time.Second
	defaultUserPollMaxAttempts  = 45
	defaultProviderPollInterval = 3 * time.Second
)

// Load reads .env when present, then the process environment. DATABASE_URL and
// JWT_SECRET are mandatory; everything else has a workable default.
func Load() (*Config, error) {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment:          getEnv("ENV", "development"),
		Port:                 getEnv("PORT", defaultPort),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		GoogleMapsAPIKey:     os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		AllowedOrigins:       splitList(os.Getenv("ALLOWED_ORIGINS")),
		UserPollInitialDelay: getDuration("USER_POLL_INITIAL_DELAY", defaultUserPollInitialDelay),
		UserPollInterval:     getDuration("USER_POLL_INTERVAL", defaultUserPollInterval),
		UserPollMaxAttempts:  getInt("USER_POLL_MAX_ATTEMPTS", defaultUserPollMaxAttempts),
		ProviderPollInterval: getDuration("PROVIDER_POLL_INTERVAL", defaultProviderPollInterval),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
