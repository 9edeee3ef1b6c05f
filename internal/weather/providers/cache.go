package providers

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/weather-explorer/internal/common"
	"github.com/i474232898/weather-explorer/internal/weather"
)

// CachedGeocoder memoizes successful, non-empty lookups of another geocoder.
type CachedGeocoder struct {
	next  weather.Geocoder
	cache *cache.Cache
}

func NewCachedGeocoder(next weather.Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, name string) ([]weather.Place, error) {
	key := "geocode_" + common.NormalizeKey(name)
	if cached, found := g.cache.Get(key); found {
		return cached.([]weather.Place), nil
	}

	places, err := g.next.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(places) > 0 {
		g.cache.Set(key, places, cache.DefaultExpiration)
	}
	return places, nil
}
