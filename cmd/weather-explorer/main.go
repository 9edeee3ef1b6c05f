package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-explorer/internal/api/http"
	"github.com/i474232898/weather-explorer/internal/app"
	"github.com/i474232898/weather-explorer/internal/config"
	"github.com/i474232898/weather-explorer/internal/narrative"
	"github.com/i474232898/weather-explorer/internal/scheduler"
	"github.com/i474232898/weather-explorer/internal/state"
	"github.com/i474232898/weather-explorer/internal/store"
	"github.com/i474232898/weather-explorer/internal/weather"
	"github.com/i474232898/weather-explorer/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logg)

	if cfg.OpenWeatherAPIKey == "" {
		logg.Warn("OPENWEATHER_API_KEY is not set; weather requests will fail")
	}
	if cfg.OpenRouterAPIKey == "" {
		logg.Warn("OPENROUTER_API_KEY is not set; narratives will use the fallback text")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Recent-locations log.
	recent, kind, err := store.Open(ctx, store.Options{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		MaxHistory:  cfg.RecentMaxHistory,
		MaxAge:      cfg.RecentMaxAge,
	})
	if err != nil {
		logg.Error("failed to open recent-locations store", "error", err)
		os.Exit(1)
	}
	defer recent.Close()
	logg.Info("recent-locations store ready", "kind", kind)

	// Provider with resilience (rate limit + backoff + circuit breaker).
	owm := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherBaseURL,
		RPS:     cfg.OpenWeatherRPS,
		Burst:   cfg.OpenWeatherBurst,
		Backoff: providers.DefaultBackoff,
	})

	var geocoder weather.Geocoder = owm
	if cfg.GoogleGeocoderAPIKey != "" {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
		logg.Info("using google geocoder for city search")
	}
	geocoder = providers.NewCachedGeocoder(geocoder, cfg.GeocodeCacheTTL)

	weatherClient := weather.NewClient(geocoder, owm, recent, logg).WithLogTimeout(cfg.RecentLogTimeout)
	defer weatherClient.Wait()

	narrativeClient := narrative.NewClient(narrative.Config{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.NarrativeBaseURL,
		Model:       cfg.NarrativeModel,
		MaxTokens:   cfg.NarrativeMaxTokens,
		Temperature: cfg.NarrativeTemperature,
	}, httpClient, logg)

	appState := state.New()
	orchestrator := app.New(weatherClient, narrativeClient, appState, app.Config{
		WeatherTimeout:   cfg.WeatherTimeout,
		NarrativeTimeout: cfg.NarrativeTimeout,
	}, logg)

	// Scheduler that periodically prunes the recent-locations log.
	sched := scheduler.New(recent, cfg.PruneInterval, cfg.RecentMaxAge, logg)
	if err := sched.Start(); err != nil {
		logg.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	fiberApp := fiber.New(fiber.Config{
		AppName:               "weather-explorer",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.WeatherTimeout + cfg.NarrativeTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	fiberApp.Use(logger.New())
	fiberApp.Use(recover.New())
	fiberApp.Use(cors.New())

	// Basic health endpoint
	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-explorer",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(fiberApp, httpapi.Deps{
		Orchestrator: orchestrator,
		State:        appState,
		Weather:      weatherClient,
		Narrative:    narrativeClient,
		Recent:       recent,
	})

	go func() {
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			logg.Error("fiber server stopped", "error", err)
		}
	}()
	logg.Info("listening", "port", cfg.Port)

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error("error during shutdown", "error", err)
	}
}
