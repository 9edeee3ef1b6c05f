package providers

import (
	"context"
	"net/url"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-explorer/internal/common"
	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/weather"
)

// geocodeFunc matches geocoder.Geocoding so tests can stub the Google call.
type geocodeFunc func(address geocoder.Address) (geocoder.Location, error)

var setAPIKeyOnce sync.Once

// GoogleGeocoder implements weather.Geocoder on the Google Geocoding API.
type GoogleGeocoder struct {
	lookup geocodeFunc
}

// NewGoogleGeocoder configures the package-level API key used by kelvins/geocoder.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	setAPIKeyOnce.Do(func() {
		geocoder.ApiKey = apiKey
	})
	return &GoogleGeocoder{lookup: geocoder.Geocoding}
}

// Geocode returns at most one candidate. A zero-results answer is reported as
// an empty list, not an error.
func (g *GoogleGeocoder) Geocode(ctx context.Context, name string) ([]weather.Place, error) {
	type result struct {
		loc geocoder.Location
		err error
	}

	// The library concatenates the address into its request URL unescaped.
	escaped := url.QueryEscape(name)

	// The library is not context aware; abandon the call when ctx ends.
	ch := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: escaped})
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if isZeroResults(r.err) {
				return []weather.Place{}, nil
			}
			return nil, r.err
		}
		return []weather.Place{{
			Name:  name,
			Point: geo.Point{Lat: r.loc.Latitude, Lon: r.loc.Longitude},
		}}, nil
	}
}

func isZeroResults(err error) bool {
	return common.HasAny(err.Error(), "zero_results", "no results")
}
