package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
)

const defaultLogTimeout = 5 * time.Second

// Client resolves a place name or coordinate into normalized current
// conditions and a daily forecast.
type Client struct {
	geocoder   Geocoder
	provider   Provider
	locations  LocationLog
	logTimeout time.Duration
	logger     *slog.Logger

	pending sync.WaitGroup
}

// NewClient creates a new Client. locations may be nil, in which case
// resolved locations are not recorded.
func NewClient(geocoder Geocoder, provider Provider, locations LocationLog, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		geocoder:   geocoder,
		provider:   provider,
		locations:  locations,
		logTimeout: defaultLogTimeout,
		logger:     logger.With("component", "weather-client"),
	}
}

// WithLogTimeout bounds each recent-location write.
func (c *Client) WithLogTimeout(d time.Duration) *Client {
	if d > 0 {
		c.logTimeout = d
	}
	return c
}

// FetchByCity geocodes name and fetches weather for the first candidate.
func (c *Client) FetchByCity(ctx context.Context, name string) (Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Report{}, ErrInvalidCity
	}

	places, err := c.geocoder.Geocode(ctx, name)
	if err != nil {
		c.logger.Error("geocoding failed", "city", name, "error", err)
		return Report{}, classify(ctx, fmt.Errorf("geocode %q: %w", name, err))
	}
	if len(places) == 0 {
		return Report{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	place := places[0]
	label := place.Name
	if label == "" {
		label = name
	}

	c.logger.Debug("resolved city", "city", name, "lat", place.Point.Lat, "lon", place.Point.Lon)

	return c.fetch(ctx, place.Point, label)
}

// FetchByCoords fetches weather for an already resolved point.
func (c *Client) FetchByCoords(ctx context.Context, p geo.Point) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	return c.fetch(ctx, p, "")
}

// Wait blocks until in-flight recent-location writes have finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

func (c *Client) fetch(ctx context.Context, p geo.Point, label string) (Report, error) {
	var (
		wg          sync.WaitGroup
		conditions  Conditions
		samples     []Sample
		currentErr  error
		forecastErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		conditions, currentErr = c.provider.Current(ctx, p)
	}()

	go func() {
		defer wg.Done()
		samples, forecastErr = c.provider.Forecast(ctx, p)
	}()

	wg.Wait()

	if currentErr != nil {
		c.logger.Error("current conditions fetch failed",
			"provider", c.provider.Name(),
			"lat", p.Lat,
			"lon", p.Lon,
			"error", currentErr,
		)
		return Report{}, classify(ctx, fmt.Errorf("current conditions: %w", currentErr))
	}
	if forecastErr != nil {
		c.logger.Error("forecast fetch failed",
			"provider", c.provider.Name(),
			"lat", p.Lat,
			"lon", p.Lon,
			"error", forecastErr,
		)
		return Report{}, classify(ctx, fmt.Errorf("forecast: %w", forecastErr))
	}

	report := Report{
		Current:  NormalizeCurrent(conditions, label, p),
		Forecast: DailyForecast(samples, MaxForecastDays),
	}

	c.recordLocation(report.Current)

	return report, nil
}

// recordLocation writes to the location log without holding up the caller.
// Failures, including panics in the log implementation, stop here.
func (c *Client) recordLocation(current CurrentWeather) {
	if c.locations == nil {
		return
	}

	entry := RecentLocation{
		CityName:  current.Location,
		Latitude:  current.Coordinates.Lat,
		Longitude: current.Coordinates.Lon,
		CreatedAt: time.Now().UTC(),
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("recent location log panicked", "location", entry.CityName, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.logTimeout)
		defer cancel()

		if err := c.locations.Record(ctx, entry); err != nil {
			c.logger.Warn("failed to save recent location", "location", entry.CityName, "error", err)
		}
	}()
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
