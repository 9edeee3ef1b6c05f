package config

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	LogLevel  string
	LogFormat string

	// OpenWeatherMap serves current conditions, forecasts and, unless a
	// Google key is set, geocoding.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherRPS     float64
	OpenWeatherBurst   int

	GoogleGeocoderAPIKey string
	GeocodeCacheTTL      time.Duration

	HTTPTimeout      time.Duration
	WeatherTimeout   time.Duration
	NarrativeTimeout time.Duration

	OpenRouterAPIKey     string
	NarrativeBaseURL     string
	NarrativeModel       string
	NarrativeMaxTokens   int
	NarrativeTemperature float32

	// Recent-locations log. DatabaseURL wins over SQLitePath; with neither
	// the log is kept in memory.
	DatabaseURL      string
	SQLitePath       string
	RecentMaxHistory int           // memory store only (0 = unlimited)
	RecentMaxAge     time.Duration // 0 = keep forever
	RecentLogTimeout time.Duration
	PruneInterval    time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                 getenvDefault("PORT", "8080"),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		LogFormat:            getenvDefault("LOG_FORMAT", "text"),
		OpenWeatherAPIKey:    os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL:   getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		OpenRouterAPIKey:     os.Getenv("OPENROUTER_API_KEY"),
		NarrativeBaseURL:     getenvDefault("NARRATIVE_BASE_URL", "https://openrouter.ai/api/v1"),
		NarrativeModel:       getenvDefault("NARRATIVE_MODEL", "openrouter/auto"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           os.Getenv("SQLITE_PATH"),
	}

	var err error
	if cfg.OpenWeatherRPS, err = getenvFloat("OPENWEATHER_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherBurst, err = getenvInt("OPENWEATHER_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.NarrativeMaxTokens, err = getenvInt("NARRATIVE_MAX_TOKENS", 200); err != nil {
		return nil, err
	}
	temperature, err := getenvFloat("NARRATIVE_TEMPERATURE", 0.8)
	if err != nil {
		return nil, err
	}
	cfg.NarrativeTemperature = float32(temperature)
	if cfg.RecentMaxHistory, err = getenvInt("RECENT_MAX_HISTORY", 200); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"GEOCODE_CACHE_TTL", "1h", &cfg.GeocodeCacheTTL},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"WEATHER_TIMEOUT", "15s", &cfg.WeatherTimeout},
		{"NARRATIVE_TIMEOUT", "20s", &cfg.NarrativeTimeout},
		{"RECENT_MAX_AGE", "720h", &cfg.RecentMaxAge},
		{"RECENT_LOG_TIMEOUT", "5s", &cfg.RecentLogTimeout},
		{"PRUNE_INTERVAL", "60m", &cfg.PruneInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// NewLogger creates a slog.Logger from LogLevel and LogFormat.
func (c *AppConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
