package weather

import (
	"context"
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
)

// Conditions is a provider's raw current-conditions reading, still in
// provider-native units.
type Conditions struct {
	PlaceName   string
	Temperature float64 // °C
	FeelsLike   float64 // °C
	Description string
	Humidity    int
	WindSpeedMS float64
	Icon        string
}

// Sample is one entry of a provider's time-ordered forecast series.
type Sample struct {
	Time        time.Time
	Date        string // YYYY-MM-DD as reported by the provider; derived from Time when empty
	TempMin     float64
	TempMax     float64
	Description string
	Icon        string
}

// Geocoder resolves a place name to ordered candidates.
type Geocoder interface {
	Geocode(ctx context.Context, name string) ([]Place, error)
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Current(ctx context.Context, p geo.Point) (Conditions, error)
	Forecast(ctx context.Context, p geo.Point) ([]Sample, error)
}

// LocationLog is the contract of the recent-locations log. Writes are best effort.
type LocationLog interface {
	Record(ctx context.Context, loc RecentLocation) error
}
