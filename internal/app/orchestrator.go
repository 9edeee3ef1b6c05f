package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/state"
	"github.com/i474232898/weather-explorer/internal/weather"
)

// NarrativeFallback is stored in place of a narrative that could not be generated.
const NarrativeFallback = "Weather narrative temporarily unavailable."

var (
	// ErrSuperseded is returned to the caller of a request that a newer
	// request replaced before it finished. Nothing further was written.
	ErrSuperseded = errors.New("request superseded by a newer request")
	// ErrNothingToRetry is returned by Retry before any request was made.
	ErrNothingToRetry = errors.New("no previous request to retry")
)

// WeatherFetcher is the Weather Client contract used by the orchestrator.
type WeatherFetcher interface {
	FetchByCoords(ctx context.Context, p geo.Point) (weather.Report, error)
	FetchByCity(ctx context.Context, name string) (weather.Report, error)
}

// NarrativeGenerator is the Narrative Client contract used by the orchestrator.
type NarrativeGenerator interface {
	Generate(ctx context.Context, current weather.CurrentWeather, forecast []weather.ForecastDay) (string, error)
}

type Config struct {
	WeatherTimeout   time.Duration
	NarrativeTimeout time.Duration
}

// Orchestrator runs the weather then narrative sequence for a user action and
// records its progress in the store. Concurrent requests are allowed; only
// the most recent one may write.
type Orchestrator struct {
	weather   WeatherFetcher
	narrative NarrativeGenerator
	store     *state.Store
	cfg       Config
	logger    *slog.Logger

	// mu serializes token issue and every commit to the store.
	mu    sync.Mutex
	token atomic.Uint64
	last  *action
}

func New(w WeatherFetcher, n NarrativeGenerator, store *state.Store, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WeatherTimeout <= 0 {
		cfg.WeatherTimeout = 15 * time.Second
	}
	if cfg.NarrativeTimeout <= 0 {
		cfg.NarrativeTimeout = 20 * time.Second
	}
	return &Orchestrator{
		weather:   w,
		narrative: n,
		store:     store,
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
	}
}

// action is one user trigger: either a point or a city.
type action struct {
	point *geo.Point
	city  string
}

func (a action) target() string {
	if a.point != nil {
		return a.point.String()
	}
	return fmt.Sprintf("%q", a.city)
}

func (a action) fetch(ctx context.Context, w WeatherFetcher) (weather.Report, error) {
	if a.point != nil {
		return w.FetchByCoords(ctx, *a.point)
	}
	return w.FetchByCity(ctx, a.city)
}

func (a action) failureMessage(err error) string {
	switch {
	case errors.Is(err, weather.ErrTimeout):
		return fmt.Sprintf("Timed out fetching weather for %s.", a.target())
	case a.point != nil:
		return fmt.Sprintf("Failed to fetch weather data for %s. Please try again.", a.point)
	case errors.Is(err, weather.ErrNotFound):
		return fmt.Sprintf("Could not find a city named %q.", a.city)
	default:
		return fmt.Sprintf("Failed to find weather for %q.", a.city)
	}
}

// OnCoordinatesSelected fetches weather and a narrative for p.
func (o *Orchestrator) OnCoordinatesSelected(ctx context.Context, p geo.Point) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return o.run(ctx, action{point: &p})
}

// OnGlobeClick maps a clicked surface point to coordinates and proceeds as
// OnCoordinatesSelected. Degenerate points leave the store untouched.
func (o *Orchestrator) OnGlobeClick(ctx context.Context, x, y, z float64) error {
	p, err := geo.FromSurfacePoint(x, y, z)
	if err != nil {
		return err
	}
	return o.run(ctx, action{point: &p})
}

// OnCitySearch geocodes city and fetches weather and a narrative for it.
func (o *Orchestrator) OnCitySearch(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.ErrInvalidCity
	}
	return o.run(ctx, action{city: city})
}

// Retry re-runs the most recent action.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()

	if last == nil {
		return ErrNothingToRetry
	}
	return o.run(ctx, *last)
}

func (o *Orchestrator) run(ctx context.Context, a action) error {
	o.mu.Lock()
	token := o.token.Inc()
	o.last = &a
	o.store.Update(func(w *state.Writer) {
		w.SetError("")
		w.SetLoading(true)
		w.SetNarrativeLoading(true)
		if a.point != nil {
			w.SetSelectedLocation(*a.point)
		}
	})
	o.mu.Unlock()

	logger := o.logger.With("request", token, "target", a.target())
	logger.Debug("request started")

	wctx, cancel := context.WithTimeout(ctx, o.cfg.WeatherTimeout)
	report, err := a.fetch(wctx, o.weather)
	cancel()

	if err != nil {
		logger.Error("weather fetch failed", "error", err)
		msg := a.failureMessage(err)
		if !o.commit(token, func(w *state.Writer) {
			w.SetError(msg)
			w.SetLoading(false)
			w.SetNarrativeLoading(false)
		}) {
			return ErrSuperseded
		}
		return err
	}

	if !o.commit(token, func(w *state.Writer) {
		w.SetCurrentWeather(report.Current)
		w.SetForecast(report.Forecast)
		w.SetLoading(false)
	}) {
		logger.Debug("discarding superseded weather result")
		return ErrSuperseded
	}

	nctx, cancel := context.WithTimeout(ctx, o.cfg.NarrativeTimeout)
	text, err := o.narrative.Generate(nctx, report.Current, report.Forecast)
	cancel()

	if err != nil {
		logger.Warn("narrative generation failed", "error", err)
		text = NarrativeFallback
	}

	if !o.commit(token, func(w *state.Writer) {
		w.SetWeatherNarrative(text)
		w.SetNarrativeLoading(false)
	}) {
		logger.Debug("discarding superseded narrative")
		return ErrSuperseded
	}

	logger.Debug("request completed")
	return nil
}

// commit applies fn only if token still identifies the newest request.
// Store subscribers run while mu is held and must not call back into the
// orchestrator.
func (o *Orchestrator) commit(token uint64, fn func(w *state.Writer)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.token.Load() != token {
		return false
	}
	o.store.Update(fn)
	return true
}
