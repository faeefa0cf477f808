// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ewhitt/stratus/internal/session"
	"github.com/ewhitt/stratus/internal/weather"
)

// Defaults for everything not set in the environment. Nothing is
// mandatory; the zero configuration runs against the public open-meteo
// endpoints on :8080.
const (
	defaultListenAddr  = ":8080"
	defaultHTTPTimeout = 10 * time.Second
)

// Config holds runtime settings for the bot.
type Config struct {
	ListenAddr string

	GeocodeURL  string
	ForecastURL string
	HTTPTimeout time.Duration

	GeocodeCacheSize int

	SessionIdleTimeout time.Duration
	ReapInterval       time.Duration

	StartRateCapacity int
	StartRateRefill   int
	StartRatePeriod   time.Duration
}

// Load reads configuration, trying .env files in conventional spots
// first so local runs need no exported environment.
func Load() *Config {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	return &Config{
		ListenAddr:         getEnv("STRATUS_LISTEN_ADDR", defaultListenAddr),
		GeocodeURL:         getEnv("STRATUS_GEOCODE_URL", weather.DefaultGeocodeURL),
		ForecastURL:        getEnv("STRATUS_FORECAST_URL", weather.DefaultForecastURL),
		HTTPTimeout:        getDuration("STRATUS_HTTP_TIMEOUT", defaultHTTPTimeout),
		GeocodeCacheSize:   getInt("STRATUS_GEOCODE_CACHE_SIZE", weather.DefaultGeocodeCacheSize),
		SessionIdleTimeout: getDuration("STRATUS_SESSION_IDLE_TIMEOUT", session.DefaultIdleTimeout),
		ReapInterval:       getDuration("STRATUS_REAP_INTERVAL", time.Minute),
		StartRateCapacity:  getInt("STRATUS_START_RATE_CAPACITY", session.DefaultStartCapacity),
		StartRateRefill:    getInt("STRATUS_START_RATE_REFILL", session.DefaultStartRefill),
		StartRatePeriod:    getDuration("STRATUS_START_RATE_PERIOD", session.DefaultStartPeriod),
	}
}

// getEnv returns the variable's value or a default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// getInt parses an integer variable, keeping the default on bad input.
func getInt(key string, defaultVal int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// getDuration parses a duration variable, keeping the default on bad
// input.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
