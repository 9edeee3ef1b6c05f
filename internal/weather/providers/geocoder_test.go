package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/weather"
)

type countingGeocoder struct {
	places []weather.Place
	calls  int
}

func (c *countingGeocoder) Geocode(ctx context.Context, name string) ([]weather.Place, error) {
	c.calls++
	return c.places, nil
}

func TestCachedGeocoder(t *testing.T) {
	next := &countingGeocoder{places: []weather.Place{{Name: "Oslo", Point: geo.Point{Lat: 59.91, Lon: 10.75}}}}
	g := NewCachedGeocoder(next, time.Minute)

	for _, q := range []string{"Oslo", " oslo ", "OSLO"} {
		places, err := g.Geocode(context.Background(), q)
		if err != nil {
			t.Fatalf("Geocode(%q) unexpected error = %v", q, err)
		}
		if len(places) != 1 || places[0].Name != "Oslo" {
			t.Errorf("Geocode(%q) = %+v", q, places)
		}
	}
	if next.calls != 1 {
		t.Errorf("underlying geocoder called %d times, want 1", next.calls)
	}
}

func TestCachedGeocoder_EmptyResultsNotCached(t *testing.T) {
	next := &countingGeocoder{}
	g := NewCachedGeocoder(next, time.Minute)

	_, _ = g.Geocode(context.Background(), "Atlantis")
	_, _ = g.Geocode(context.Background(), "Atlantis")
	if next.calls != 2 {
		t.Errorf("underlying geocoder called %d times, want 2", next.calls)
	}
}

func TestGoogleGeocoder(t *testing.T) {
	tests := []struct {
		name      string
		lookup    geocodeFunc
		wantCount int
		wantErr   bool
	}{
		{
			name: "match",
			lookup: func(a geocoder.Address) (geocoder.Location, error) {
				if a.City != "Nairobi" {
					t.Errorf("City = %q", a.City)
				}
				return geocoder.Location{Latitude: -1.29, Longitude: 36.82}, nil
			},
			wantCount: 1,
		},
		{
			name: "zero results",
			lookup: func(a geocoder.Address) (geocoder.Location, error) {
				return geocoder.Location{}, errors.New("ZERO_RESULTS")
			},
			wantCount: 0,
		},
		{
			name: "request denied",
			lookup: func(a geocoder.Address) (geocoder.Location, error) {
				return geocoder.Location{}, errors.New("REQUEST_DENIED")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GoogleGeocoder{lookup: tt.lookup}
			places, err := g.Geocode(context.Background(), "Nairobi")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Geocode() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Geocode() unexpected error = %v", err)
			}
			if len(places) != tt.wantCount {
				t.Errorf("len(places) = %d, want %d", len(places), tt.wantCount)
			}
		})
	}
}

func TestGoogleGeocoder_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	g := &GoogleGeocoder{lookup: func(a geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := g.Geocode(ctx, "Lagos"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestGoogleGeocoder_EscapesAddress(t *testing.T) {
	var rawURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawURI = r.RequestURI
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"geometry":{"location":{"lat":48.85,"lng":2.35}}}],"status":"OK"}`))
	}))
	defer srv.Close()

	oldURL := geocoder.ApiUrl
	geocoder.ApiUrl = srv.URL + "/"
	defer func() { geocoder.ApiUrl = oldURL }()

	g := NewGoogleGeocoder("test-key")
	places, err := g.Geocode(context.Background(), "Paris&region=us")
	if err != nil {
		t.Fatalf("Geocode() unexpected error = %v", err)
	}

	if got := addressParam(t, rawURI); got != "Paris&region=us" {
		t.Errorf("address sent upstream = %q, want the full city name", got)
	}
	if strings.Contains(rawURI, "&region=") {
		t.Errorf("request %q carries an injected region parameter", rawURI)
	}
	if len(places) != 1 || places[0].Name != "Paris&region=us" {
		t.Errorf("places = %+v, want the unescaped name kept", places)
	}
}

// addressParam extracts the address value from a raw request URI.
func addressParam(t *testing.T, uri string) string {
	t.Helper()
	i := strings.Index(uri, "address=")
	if i < 0 {
		t.Fatalf("no address in request %q", uri)
	}
	v := uri[i+len("address="):]
	if j := strings.IndexByte(v, '&'); j >= 0 {
		v = v[:j]
	}
	out, err := url.QueryUnescape(v)
	if err != nil {
		t.Fatalf("unescape %q: %v", v, err)
	}
	return out
}
