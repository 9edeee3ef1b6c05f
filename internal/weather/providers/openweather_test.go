package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/weather"
)

var fastBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*OpenWeatherProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Backoff: fastBackoff,
	})
	return p, srv
}

func TestOpenWeatherProvider_Current(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("appid") != "test-key" || q.Get("units") != "metric" {
			t.Errorf("query = %v, want appid and metric units", q)
		}
		if q.Get("lat") != "48.856600" || q.Get("lon") != "2.352200" {
			t.Errorf("lat/lon = %q/%q", q.Get("lat"), q.Get("lon"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Paris",
			"main": {"temp": 18.2, "feels_like": 17.5, "humidity": 72},
			"wind": {"speed": 4.1},
			"weather": [{"description": "scattered clouds", "icon": "03d"}]
		}`))
	})

	got, err := p.Current(context.Background(), geo.Point{Lat: 48.8566, Lon: 2.3522})
	if err != nil {
		t.Fatalf("Current() unexpected error = %v", err)
	}

	want := weather.Conditions{
		PlaceName:   "Paris",
		Temperature: 18.2,
		FeelsLike:   17.5,
		Description: "scattered clouds",
		Humidity:    72,
		WindSpeedMS: 4.1,
		Icon:        "03d",
	}
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestOpenWeatherProvider_Forecast(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"list": [
			{"dt": 1740830400, "dt_txt": "2025-03-01 12:00:00", "main": {"temp_min": 5, "temp_max": 9}, "weather": [{"description": "light rain", "icon": "10d"}]},
			{"dt": 1740841200, "dt_txt": "2025-03-01 15:00:00", "main": {"temp_min": 6, "temp_max": 10}, "weather": []}
		]}`))
	})

	samples, err := p.Forecast(context.Background(), geo.Point{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("Forecast() unexpected error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	if samples[0].Date != "2025-03-01 12:00:00" || samples[0].Icon != "10d" || samples[0].TempMax != 9 {
		t.Errorf("samples[0] = %+v", samples[0])
	}
	if !samples[0].Time.Equal(time.Unix(1740830400, 0)) {
		t.Errorf("samples[0].Time = %v", samples[0].Time)
	}
	if samples[1].Description != "" {
		t.Errorf("samples[1].Description = %q, want empty for missing weather", samples[1].Description)
	}
}

func TestOpenWeatherProvider_Geocode(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo/1.0/direct" {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.URL.Query().Get("q") {
		case "Tokyo":
			_, _ = w.Write([]byte(`[{"name": "Tokyo", "lat": 35.6828, "lon": 139.759, "country": "JP"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	places, err := p.Geocode(context.Background(), "Tokyo")
	if err != nil {
		t.Fatalf("Geocode() unexpected error = %v", err)
	}
	if len(places) != 1 || places[0].Name != "Tokyo" || places[0].Point.Lat != 35.6828 {
		t.Errorf("Geocode() = %+v", places)
	}

	places, err = p.Geocode(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Geocode() unexpected error = %v", err)
	}
	if len(places) != 0 {
		t.Errorf("Geocode() = %+v, want no candidates", places)
	}
}

func TestOpenWeatherProvider_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.Current(context.Background(), geo.Point{})
	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *weather.UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", upstream.StatusCode)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hit %d times, want 1", n)
	}
}

func TestOpenWeatherProvider_ServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"name": "Lima", "main": {"temp": 20}}`))
	})

	got, err := p.Current(context.Background(), geo.Point{Lat: -12, Lon: -77})
	if err != nil {
		t.Fatalf("Current() unexpected error = %v", err)
	}
	if got.PlaceName != "Lima" {
		t.Errorf("PlaceName = %q", got.PlaceName)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream hit %d times, want 2", n)
	}
}

func TestOpenWeatherProvider_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Forecast(context.Background(), geo.Point{})
	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusBadGateway {
		t.Fatalf("error = %v, want 502 UpstreamError", err)
	}
	if n := hits.Load(); n != int32(fastBackoff.MaxRetries+1) {
		t.Errorf("upstream hit %d times, want %d", n, fastBackoff.MaxRetries+1)
	}
}

func TestOpenWeatherProvider_MissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{})
	if _, err := p.Current(context.Background(), geo.Point{}); err == nil {
		t.Fatal("Current() expected error without api key")
	}
}

func TestOpenWeatherProvider_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		RPS:     0.001,
		Burst:   1,
		Backoff: fastBackoff,
	})

	if _, err := p.Current(context.Background(), geo.Point{}); err != nil {
		t.Fatalf("first call unexpected error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Current(ctx, geo.Point{}); err == nil {
		t.Fatal("second call expected rate limiter error")
	}
}

func TestBreakerSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"caller cancelled", context.Canceled, true},
		{"caller deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"not found", &weather.UpstreamError{StatusCode: http.StatusNotFound}, true},
		{"too many requests", &weather.UpstreamError{StatusCode: http.StatusTooManyRequests}, false},
		{"server error", &weather.UpstreamError{StatusCode: http.StatusInternalServerError}, false},
		{"transport", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := breakerSuccess(tt.err); got != tt.want {
				t.Errorf("breakerSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOpenWeatherProvider_ClientErrorsKeepCircuitClosed(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, err := p.Current(context.Background(), geo.Point{})
		var upstream *weather.UpstreamError
		if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusNotFound {
			t.Fatalf("call %d: error = %v, want 404 UpstreamError", i, err)
		}
	}
}

func TestOpenWeatherProvider_TimeoutsKeepCircuitClosed(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"name": "Quito", "main": {"temp": 14}}`))
	})

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := p.Current(ctx, geo.Point{})
		cancel()
		if err == nil || errors.Is(err, errCircuitOpen) {
			t.Fatalf("call %d: error = %v, want a deadline error", i, err)
		}
	}

	slow.Store(false)
	got, err := p.Current(context.Background(), geo.Point{})
	if err != nil {
		t.Fatalf("Current() after timeouts unexpected error = %v", err)
	}
	if got.PlaceName != "Quito" {
		t.Errorf("PlaceName = %q", got.PlaceName)
	}
}
