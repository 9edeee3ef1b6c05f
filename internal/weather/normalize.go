package weather

import (
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
)

// MaxForecastDays caps the number of days kept from the provider series.
const MaxForecastDays = 5

// KilometresPerHour converts a provider-native wind speed in m/s to km/h.
func KilometresPerHour(ms float64) float64 {
	return ms * 3.6
}

// NormalizeCurrent maps a raw provider reading onto CurrentWeather. The
// coordinates are always the resolved point, never the user's input.
func NormalizeCurrent(c Conditions, label string, point geo.Point) CurrentWeather {
	name := c.PlaceName
	if name == "" {
		name = label
	}
	if name == "" {
		name = point.String()
	}

	return CurrentWeather{
		Location:    name,
		Temperature: c.Temperature,
		FeelsLike:   c.FeelsLike,
		Description: c.Description,
		Humidity:    c.Humidity,
		WindSpeed:   KilometresPerHour(c.WindSpeedMS),
		Icon:        c.Icon,
		Condition:   ConditionFromIcon(c.Icon),
		Coordinates: point,
	}
}

// DailyForecast reduces a time-ordered sample series to at most maxDays
// entries, keeping the first sample seen for each calendar date.
func DailyForecast(samples []Sample, maxDays int) []ForecastDay {
	days := make([]ForecastDay, 0, maxDays)
	seen := make(map[string]struct{}, maxDays)

	for _, s := range samples {
		if len(days) >= maxDays {
			break
		}

		date := sampleDate(s)
		if date == "" {
			continue
		}
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}

		days = append(days, ForecastDay{
			Date: date,
			Temperature: TemperatureRange{
				Max: s.TempMax,
				Min: s.TempMin,
			},
			Description: s.Description,
			Icon:        s.Icon,
			Condition:   ConditionFromIcon(s.Icon),
		})
	}

	return days
}

func sampleDate(s Sample) string {
	if len(s.Date) >= len("2006-01-02") {
		return s.Date[:len("2006-01-02")]
	}
	if s.Time.IsZero() {
		return ""
	}
	return s.Time.UTC().Format(time.DateOnly)
}

// ConditionFromIcon derives the condition category from an OpenWeatherMap
// icon code such as "10d".
func ConditionFromIcon(icon string) Condition {
	if len(icon) < 2 {
		return ConditionUnknown
	}
	switch icon[:2] {
	case "01":
		return ConditionClear
	case "02", "03", "04":
		return ConditionCloudy
	case "09":
		return ConditionDrizzle
	case "10":
		return ConditionRain
	case "11":
		return ConditionStorm
	case "13":
		return ConditionSnow
	case "50":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}
