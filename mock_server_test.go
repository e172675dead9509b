package vibrio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// Canned fixture values served by the mock, matching the documented test
// beatmap 1001682 with DT.
var (
	fixtureDifficulty = DifficultyAttributes{
		Mods:                 []Mod{ModDoubleTime},
		StarRating:           9.7,
		MaxCombo:             3220,
		AimDifficulty:        4.5,
		SpeedDifficulty:      3.9,
		SpeedNoteCount:       1400.5,
		FlashlightDifficulty: 0,
		SliderFactor:         0.98,
		ApproachRate:         10.3,
		OverallDifficulty:    10.1,
		DrainRate:            5,
		HitCircleCount:       1646,
		SliderCount:          995,
		SpinnerCount:         4,
	}

	fixturePerformance = PerformanceAttributes{
		Total:              1304.35,
		Aim:                600.1,
		Speed:              500.2,
		Accuracy:           180.3,
		Flashlight:         0,
		EffectiveMissCount: 3.2,
	}
)

// recordedRequest captures one request the mock received, for routing
// assertions.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Files  []string
}

// mockVibrio fakes the Vibrio HTTP API in-process. This allows facade tests
// to run without the real server executable.
type mockVibrio struct {
	ts *httptest.Server

	mu       sync.Mutex
	beatmaps map[int][]byte
	cached   map[int]bool
	requests []recordedRequest
}

// newMockVibrio creates a mock server pre-seeded with the standard fixture
// beatmap.
func newMockVibrio(t *testing.T) *mockVibrio {
	t.Helper()

	m := newMockVibrioCore()
	m.ts = httptest.NewServer(m.handler())
	t.Cleanup(m.ts.Close)
	return m
}

func newMockVibrioCore() *mockVibrio {
	return &mockVibrio{
		beatmaps: map[int][]byte{
			1001682: []byte("osu file format v14\n\n[Metadata]\nBeatmapID:1001682\n"),
		},
		cached: make(map[int]bool),
	}
}

// handler builds the mock's route table.
func (m *mockVibrio) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/beatmaps/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		id, _ := strconv.Atoi(r.PathValue("id"))
		m.mu.Lock()
		cached := m.cached[id]
		m.mu.Unlock()
		if !cached {
			http.Error(w, fmt.Sprintf("no beatmap %d in cache", id), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/beatmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		id, _ := strconv.Atoi(r.PathValue("id"))
		m.mu.Lock()
		data, ok := m.beatmaps[id]
		if ok {
			m.cached[id] = true
		}
		m.mu.Unlock()
		if !ok {
			http.Error(w, fmt.Sprintf("no beatmap %d", id), http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	})
	mux.HandleFunc("DELETE /api/beatmaps/cache", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		m.mu.Lock()
		m.cached = make(map[int]bool)
		m.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/difficulty/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		id, _ := strconv.Atoi(r.PathValue("id"))
		m.mu.Lock()
		_, ok := m.beatmaps[id]
		m.mu.Unlock()
		if !ok {
			http.Error(w, fmt.Sprintf("no beatmap %d", id), http.StatusNotFound)
			return
		}
		writeJSON(w, fixtureDifficulty)
	})
	mux.HandleFunc("POST /api/difficulty", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		writeJSON(w, fixtureDifficulty)
	})
	mux.HandleFunc("GET /api/performance/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		id, _ := strconv.Atoi(r.PathValue("id"))
		m.mu.Lock()
		_, ok := m.beatmaps[id]
		m.mu.Unlock()
		if !ok {
			http.Error(w, fmt.Sprintf("no beatmap %d", id), http.StatusNotFound)
			return
		}
		writeJSON(w, fixturePerformance)
	})
	mux.HandleFunc("POST /api/performance/replay/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		writeJSON(w, fixturePerformance)
	})
	mux.HandleFunc("POST /api/performance/replay", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		writeJSON(w, fixturePerformance)
	})
	mux.HandleFunc("GET /api/performance", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		writeJSON(w, fixturePerformance)
	})
	mux.HandleFunc("POST /api/performance", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		writeJSON(w, fixturePerformance)
	})

	return mux
}

// record stores the request's routing-relevant parts, including multipart
// field names when present.
func (m *mockVibrio) record(r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
	}
	if err := r.ParseMultipartForm(1 << 20); err == nil && r.MultipartForm != nil {
		for field := range r.MultipartForm.File {
			rec.Files = append(rec.Files, field)
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.mu.Unlock()
}

// recorded returns a copy of all requests seen so far.
func (m *mockVibrio) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// last returns the most recent request, failing the test when none was made.
func (m *mockVibrio) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := m.recorded()
	if len(reqs) == 0 {
		t.Fatal("mock server received no requests")
	}
	return reqs[len(reqs)-1]
}

// lazer returns a facade wired directly to the mock, bypassing process
// spawning.
func (m *mockVibrio) lazer() *Lazer {
	l := &Lazer{
		ProbeInterval:  DefaultProbeInterval,
		StartupTimeout: DefaultStartupTimeout,
		Logger:         slog.Default(),
	}
	l.session = NewSession(m.ts.URL)
	return l
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
