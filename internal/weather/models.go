package weather

import (
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionDrizzle Condition = "drizzle"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// CurrentWeather is the normalized view of current conditions at a resolved location.
type CurrentWeather struct {
	Location    string    `json:"location"`
	Temperature float64   `json:"temperature"` // °C
	FeelsLike   float64   `json:"feelsLike"`   // °C
	Description string    `json:"description"`
	Humidity    int       `json:"humidity"`  // percent
	WindSpeed   float64   `json:"windSpeed"` // km/h
	Icon        string    `json:"icon"`
	Condition   Condition `json:"condition"`
	Coordinates geo.Point `json:"coordinates"`
}

// TemperatureRange holds the daily extremes in °C.
type TemperatureRange struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// ForecastDay is one calendar day of the multi-day forecast.
type ForecastDay struct {
	Date        string           `json:"date"` // YYYY-MM-DD
	Temperature TemperatureRange `json:"temperature"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Condition   Condition        `json:"condition"`
}

// Report bundles everything a single weather fetch produces.
type Report struct {
	Current  CurrentWeather `json:"currentWeather"`
	Forecast []ForecastDay  `json:"forecast"`
}

// Place is a geocoding candidate.
type Place struct {
	Name    string    `json:"name"`
	Country string    `json:"country,omitempty"`
	Point   geo.Point `json:"point"`
}

// RecentLocation is one entry of the best-effort "recent locations" log.
type RecentLocation struct {
	ID        string    `json:"id"`
	CityName  string    `json:"city_name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}
