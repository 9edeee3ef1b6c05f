package state

import (
	"sync"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/weather"
)

// Snapshot is a read-only copy of the application state. Nil pointers and
// nil slices serialize as null.
type Snapshot struct {
	Loading          bool                    `json:"loading"`
	NarrativeLoading bool                    `json:"narrativeLoading"`
	Error            *string                 `json:"error"`
	SelectedLocation *geo.Point              `json:"selectedLocation"`
	CurrentWeather   *weather.CurrentWeather `json:"currentWeather"`
	Forecast         []weather.ForecastDay   `json:"forecast"`
	WeatherNarrative *string                 `json:"weatherNarrative"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Error != nil {
		v := *s.Error
		out.Error = &v
	}
	if s.SelectedLocation != nil {
		v := *s.SelectedLocation
		out.SelectedLocation = &v
	}
	if s.CurrentWeather != nil {
		v := *s.CurrentWeather
		out.CurrentWeather = &v
	}
	if s.Forecast != nil {
		out.Forecast = append(make([]weather.ForecastDay, 0, len(s.Forecast)), s.Forecast...)
	}
	if s.WeatherNarrative != nil {
		v := *s.WeatherNarrative
		out.WeatherNarrative = &v
	}
	return out
}

// Store holds the single shared application state. All mutation goes through
// its setters; every mutation notifies subscribers with a fresh snapshot.
type Store struct {
	// notifyMu orders mutations together with their notifications, so
	// subscribers see snapshots in mutation order.
	notifyMu sync.Mutex

	mu          sync.RWMutex
	state       Snapshot
	subscribers map[int]func(Snapshot)
	nextID      int
}

// New returns an empty store.
func New() *Store {
	return &Store{subscribers: make(map[int]func(Snapshot))}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription.
//
// fn runs synchronously on the mutating goroutine, before the next mutation
// can start. It may read Snapshot and unsubscribe, but it must not mutate the
// store or call code that does (such as the orchestrator); that deadlocks.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) SetLoading(v bool) {
	s.update(func(st *Snapshot) { st.Loading = v })
}

func (s *Store) SetNarrativeLoading(v bool) {
	s.update(func(st *Snapshot) { st.NarrativeLoading = v })
}

// SetError stores a user-facing message. An empty message clears it.
func (s *Store) SetError(msg string) {
	s.update(func(st *Snapshot) { st.Error = optional(msg) })
}

func (s *Store) SetSelectedLocation(p *geo.Point) {
	s.update(func(st *Snapshot) {
		st.SelectedLocation = nil
		if p != nil {
			v := *p
			st.SelectedLocation = &v
		}
	})
}

func (s *Store) SetCurrentWeather(w *weather.CurrentWeather) {
	s.update(func(st *Snapshot) {
		st.CurrentWeather = nil
		if w != nil {
			v := *w
			st.CurrentWeather = &v
		}
	})
}

// SetForecast replaces the forecast. A nil slice stores null.
func (s *Store) SetForecast(days []weather.ForecastDay) {
	s.update(func(st *Snapshot) {
		st.Forecast = nil
		if days != nil {
			st.Forecast = append(make([]weather.ForecastDay, 0, len(days)), days...)
		}
	})
}

// SetWeatherNarrative stores the narrative text. An empty string clears it.
func (s *Store) SetWeatherNarrative(text string) {
	s.update(func(st *Snapshot) { st.WeatherNarrative = optional(text) })
}

// Clear nulls every weather-derived field and the error in one step.
func (s *Store) Clear() {
	s.update(func(st *Snapshot) {
		st.CurrentWeather = nil
		st.Forecast = nil
		st.WeatherNarrative = nil
		st.Error = nil
	})
}

// Update applies several field writes as one mutation with a single
// notification. fn must not call back into the store.
func (s *Store) Update(fn func(w *Writer)) {
	s.update(func(st *Snapshot) { fn(&Writer{st: st}) })
}

func (s *Store) update(mutate func(*Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.state)
	snap := s.state.clone()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
}

// Writer exposes the setters inside a Store.Update batch.
type Writer struct {
	st *Snapshot
}

func (w *Writer) SetLoading(v bool)          { w.st.Loading = v }
func (w *Writer) SetNarrativeLoading(v bool) { w.st.NarrativeLoading = v }
func (w *Writer) SetError(msg string)        { w.st.Error = optional(msg) }

func (w *Writer) SetSelectedLocation(p geo.Point) {
	w.st.SelectedLocation = &p
}

func (w *Writer) SetCurrentWeather(cw weather.CurrentWeather) {
	w.st.CurrentWeather = &cw
}

func (w *Writer) SetForecast(days []weather.ForecastDay) {
	w.st.Forecast = nil
	if days != nil {
		w.st.Forecast = append(make([]weather.ForecastDay, 0, len(days)), days...)
	}
}

func (w *Writer) SetWeatherNarrative(text string) { w.st.WeatherNarrative = optional(text) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
