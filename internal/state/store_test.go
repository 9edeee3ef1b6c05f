package state

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/weather"
)

func TestNew_EmptySnapshot(t *testing.T) {
	data, err := json.Marshal(New().Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"loading":false,"narrativeLoading":false,"error":null,"selectedLocation":null,"currentWeather":null,"forecast":null,"weatherNarrative":null}`
	if string(data) != want {
		t.Errorf("snapshot = %s\nwant %s", data, want)
	}
}

func TestSetters(t *testing.T) {
	s := New()
	p := geo.Point{Lat: 10, Lon: 20}
	cw := weather.CurrentWeather{Location: "Somewhere", Coordinates: p}

	s.SetLoading(true)
	s.SetNarrativeLoading(true)
	s.SetError("boom")
	s.SetSelectedLocation(&p)
	s.SetCurrentWeather(&cw)
	s.SetForecast([]weather.ForecastDay{{Date: "2025-01-01"}})
	s.SetWeatherNarrative("sunny")

	snap := s.Snapshot()
	if !snap.Loading || !snap.NarrativeLoading {
		t.Error("loading flags not set")
	}
	if snap.Error == nil || *snap.Error != "boom" {
		t.Errorf("Error = %v", snap.Error)
	}
	if snap.SelectedLocation == nil || *snap.SelectedLocation != p {
		t.Errorf("SelectedLocation = %v", snap.SelectedLocation)
	}
	if snap.CurrentWeather == nil || snap.CurrentWeather.Location != "Somewhere" {
		t.Errorf("CurrentWeather = %v", snap.CurrentWeather)
	}
	if len(snap.Forecast) != 1 {
		t.Errorf("Forecast = %v", snap.Forecast)
	}
	if snap.WeatherNarrative == nil || *snap.WeatherNarrative != "sunny" {
		t.Errorf("WeatherNarrative = %v", snap.WeatherNarrative)
	}

	s.SetError("")
	s.SetSelectedLocation(nil)
	if snap := s.Snapshot(); snap.Error != nil || snap.SelectedLocation != nil {
		t.Errorf("fields not reset: %+v", snap)
	}
}

func TestClear(t *testing.T) {
	s := New()
	p := geo.Point{Lat: 1, Lon: 2}
	s.SetLoading(true)
	s.SetSelectedLocation(&p)
	s.SetCurrentWeather(&weather.CurrentWeather{Location: "x"})
	s.SetForecast([]weather.ForecastDay{{Date: "2025-01-01"}})
	s.SetWeatherNarrative("text")
	s.SetError("err")

	s.Clear()

	snap := s.Snapshot()
	if snap.CurrentWeather != nil || snap.Forecast != nil || snap.WeatherNarrative != nil || snap.Error != nil {
		t.Errorf("Clear left weather-derived fields: %+v", snap)
	}
	if !snap.Loading || snap.SelectedLocation == nil {
		t.Errorf("Clear touched unrelated fields: %+v", snap)
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New()
	s.SetCurrentWeather(&weather.CurrentWeather{Location: "original"})
	s.SetForecast([]weather.ForecastDay{{Date: "2025-01-01"}})

	snap := s.Snapshot()
	snap.CurrentWeather.Location = "mutated"
	snap.Forecast[0].Date = "mutated"

	again := s.Snapshot()
	if again.CurrentWeather.Location != "original" || again.Forecast[0].Date != "2025-01-01" {
		t.Errorf("snapshot mutation leaked into store: %+v", again)
	}
}

func TestSetForecast_CopiesInput(t *testing.T) {
	s := New()
	days := []weather.ForecastDay{{Date: "2025-01-01"}}
	s.SetForecast(days)
	days[0].Date = "changed"

	if got := s.Snapshot().Forecast[0].Date; got != "2025-01-01" {
		t.Errorf("Forecast[0].Date = %q, want store to own its copy", got)
	}
}

func TestSubscribe(t *testing.T) {
	s := New()

	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	s.SetLoading(true)
	s.Update(func(w *Writer) {
		w.SetLoading(false)
		w.SetWeatherNarrative("batched")
	})

	if len(seen) != 2 {
		t.Fatalf("got %d notifications, want 2", len(seen))
	}
	if !seen[0].Loading {
		t.Error("first notification should see Loading = true")
	}
	if seen[1].Loading || seen[1].WeatherNarrative == nil {
		t.Errorf("batched notification = %+v", seen[1])
	}

	unsubscribe()
	unsubscribe()
	s.SetLoading(true)
	if len(seen) != 2 {
		t.Errorf("notified after unsubscribe, got %d notifications", len(seen))
	}
}

func TestSubscribe_DeliversInMutationOrder(t *testing.T) {
	s := New()

	var (
		mu      sync.Mutex
		last    *Snapshot
		calls   int
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			close(entered)
			<-release
		}

		mu.Lock()
		last = &snap
		mu.Unlock()
	})

	firstDone := make(chan struct{})
	go func() {
		s.SetLoading(true)
		close(firstDone)
	}()
	<-entered

	secondDone := make(chan struct{})
	go func() {
		s.SetLoading(false)
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatal("second mutation finished while the first notification was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-firstDone
	<-secondDone

	mu.Lock()
	defer mu.Unlock()
	if last == nil || last.Loading {
		t.Errorf("last notification = %+v, want Loading = false", last)
	}
	if s.Snapshot().Loading {
		t.Error("store Loading = true, want false")
	}
}

func TestSubscribe_CallbackMayReadAndUnsubscribe(t *testing.T) {
	s := New()

	var (
		unsubscribe func()
		seen        []bool
	)
	unsubscribe = s.Subscribe(func(snap Snapshot) {
		seen = append(seen, s.Snapshot().Loading)
		unsubscribe()
	})

	s.SetLoading(true)
	s.SetLoading(false)

	if len(seen) != 1 || !seen[0] {
		t.Errorf("seen = %v, want one notification reading Loading = true", seen)
	}
}
