package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
)

// fakeResolver hands out results pushed on its channel.
type fakeResolver struct {
	results     chan acquire.Result
	calls       atomic.Int32
	ignoreCtx   bool
	sawCanceled atomic.Bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{results: make(chan acquire.Result, 4)}
}

func (f *fakeResolver) Resolve(ctx context.Context) acquire.Result {
	f.calls.Add(1)
	if f.ignoreCtx {
		r := <-f.results
		f.sawCanceled.Store(ctx.Err() != nil)
		return r
	}
	select {
	case r := <-f.results:
		return r
	case <-ctx.Done():
		return acquire.Result{Err: ctx.Err()}
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 21, 14, 0, 0, 0, time.UTC)}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func envResult(cat catalog.Category, city string) acquire.Result {
	day := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	return acquire.Result{Env: acquire.Environment{
		Location:    acquire.Location{City: city, Method: acquire.MethodIP, Coordinates: &acquire.Coordinates{Lat: 1, Lon: 2}},
		HasLocation: true,
		Condition:   acquire.Condition{Category: cat},
		HasWeather:  true,
		Window: astro.SunWindow{
			Date:    "2024-06-21",
			Sunrise: day.Add(5 * time.Hour),
			Sunset:  day.Add(21 * time.Hour),
			Source:  astro.SourceAPI,
		},
	}}
}

func TestManager_ManualDefaults(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	defer m.Close()

	s := m.Snapshot()
	if s.Mode != ModeManual || s.Weather != catalog.Clear {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	pos := s.Positions(time.Now())
	if !pos.Sun.Visible || pos.Sun.Phase != 0.5 || pos.Moon.Visible {
		t.Errorf("afternoon positions = %+v", pos)
	}
	if s.TimeOfDay(time.Now()) != astro.Afternoon {
		t.Errorf("TimeOfDay = %q", s.TimeOfDay(time.Now()))
	}
}

func TestManager_SetSelection(t *testing.T) {
	var changes atomic.Int32
	m := NewManager(DefaultConfig(), nil, WithOnChange(func(Snapshot) { changes.Add(1) }))
	defer m.Close()

	if err := m.SetWeather(catalog.Stormy); err != nil {
		t.Fatalf("SetWeather: %v", err)
	}
	if err := m.SetTimeOfDay(astro.Night); err != nil {
		t.Fatalf("SetTimeOfDay: %v", err)
	}
	if err := m.SetWeather("hail"); err == nil {
		t.Error("expected error for unknown weather")
	}

	s := m.Snapshot()
	if s.Weather != catalog.Stormy || s.Selection.TimeOfDay != astro.Night {
		t.Errorf("selection = %+v", s.Selection)
	}
	if got := changes.Load(); got != 2 {
		t.Errorf("onChange called %d times, want 2", got)
	}
	if !s.Positions(time.Now()).StarsVisible {
		t.Error("night should show stars")
	}
}

func TestManager_EnableSmartAppliesEnvironment(t *testing.T) {
	r := newFakeResolver()
	clock := newClock()
	m := NewManager(DefaultConfig(), r, WithClock(clock.Now))
	defer m.Close()

	r.results <- envResult(catalog.Snowy, "Oslo")
	if err := m.EnableSmart(context.Background()); err != nil {
		t.Fatalf("EnableSmart: %v", err)
	}
	waitFor(t, "environment", func() bool {
		s := m.Snapshot()
		return !s.Loading && s.Weather == catalog.Snowy
	})

	s := m.Snapshot()
	if s.Location == nil || s.Location.City != "Oslo" {
		t.Errorf("Location = %+v", s.Location)
	}
	if s.Window.Source != astro.SourceAPI {
		t.Errorf("Window = %+v", s.Window)
	}
	// 14:00 inside a 05:00-21:00 window is daytime on the continuous arc.
	pos := s.Positions(clock.Now())
	if !pos.Sun.Visible || pos.Sun.Phase <= 0.5 {
		t.Errorf("positions = %+v", pos)
	}

	// A manual change while SMART is remembered but not shown.
	if err := m.SetWeather(catalog.Foggy); err != nil {
		t.Fatal(err)
	}
	s = m.Snapshot()
	if s.Weather != catalog.Snowy || s.Selection.Weather != catalog.Foggy {
		t.Errorf("weather = %q selection = %q", s.Weather, s.Selection.Weather)
	}
}

func TestManager_DisableSmartDropsLateResult(t *testing.T) {
	r := newFakeResolver()
	r.ignoreCtx = true
	m := NewManager(DefaultConfig(), r)

	if err := m.EnableSmart(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "resolve start", func() bool { return r.calls.Load() == 1 })

	m.DisableSmart()
	r.results <- envResult(catalog.Stormy, "Late")
	m.Close()

	if !r.sawCanceled.Load() {
		t.Error("in-flight resolve should see a cancelled context")
	}
	s := m.Snapshot()
	if s.Mode != ModeManual {
		t.Errorf("Mode = %q", s.Mode)
	}
	if s.Weather != catalog.Clear || s.Location != nil || s.Environment != nil {
		t.Errorf("late result leaked into state: %+v", s)
	}
	if !s.Window.IsZero() {
		t.Errorf("window should be cleared, got %+v", s.Window)
	}
}

// countingResolver answers every call at once.
type countingResolver struct {
	calls atomic.Int32
}

func (c *countingResolver) Resolve(ctx context.Context) acquire.Result {
	c.calls.Add(1)
	return envResult(catalog.Cloudy, "Bergen")
}

func TestManager_DisableSmartStopsRefreshSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the refresh schedule")
	}
	r := &countingResolver{}
	cfg := DefaultConfig()
	cfg.RefreshSchedule = "@every 1s"
	m := NewManager(cfg, r)
	defer m.Close()

	if err := m.EnableSmart(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The first call is the immediate resolve; later ones come from the schedule.
	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := r.calls.Load(); got < 3 {
		t.Fatalf("scheduled refresh did not run: %d calls", got)
	}

	m.DisableSmart()
	// Let a tick that fired just before the switch finish.
	time.Sleep(100 * time.Millisecond)
	before := r.calls.Load()

	m.mu.RLock()
	stopped := m.cron == nil
	m.mu.RUnlock()
	if !stopped {
		t.Error("refresh schedule still installed after DisableSmart")
	}

	time.Sleep(2500 * time.Millisecond)
	if after := r.calls.Load(); after != before {
		t.Errorf("Resolve calls went from %d to %d after DisableSmart", before, after)
	}
}

func TestManager_ErrorKeepsPreviousAndExpires(t *testing.T) {
	r := newFakeResolver()
	clock := newClock()
	m := NewManager(DefaultConfig(), r, WithClock(clock.Now))
	defer m.Close()

	r.results <- envResult(catalog.Rainy, "Leeds")
	if err := m.EnableSmart(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first resolve", func() bool { return m.Snapshot().Weather == catalog.Rainy && !m.Snapshot().Loading })
	first := m.Snapshot().LastRefresh

	clock.Advance(time.Minute)
	r.results <- acquire.Result{Err: fmt.Errorf("resolve environment: %w", acquire.ErrNoLocation)}
	if !m.Refresh() {
		t.Fatal("Refresh should start in smart mode")
	}
	waitFor(t, "second resolve", func() bool {
		s := m.Snapshot()
		return !s.Loading && s.LastRefresh.After(first)
	})

	s := m.Snapshot()
	if s.LastError == "" {
		t.Error("expected LastError after a failed resolve")
	}
	if s.Weather != catalog.Rainy || s.Location == nil || s.Location.City != "Leeds" {
		t.Errorf("previous environment not kept: weather=%q location=%+v", s.Weather, s.Location)
	}

	clock.Advance(6 * time.Second)
	if got := m.Snapshot().LastError; got != "" {
		t.Errorf("LastError after TTL = %q, want cleared", got)
	}
}

func TestManager_MissingKeyIsConfigError(t *testing.T) {
	r := newFakeResolver()
	m := NewManager(DefaultConfig(), r)
	defer m.Close()

	res := envResult(catalog.Clear, "Lima")
	res.Env.HasWeather = false
	res.Partial = fmt.Errorf("weather: %w", acquire.ErrMissingAPIKey)
	r.results <- res

	if err := m.EnableSmart(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "config error", func() bool { return m.Snapshot().ConfigError != "" })

	s := m.Snapshot()
	if s.LastError != "" {
		t.Errorf("partial failure should not set LastError: %q", s.LastError)
	}
	if s.Location == nil || s.Window.IsZero() {
		t.Error("location and sun times should still apply")
	}

	m.DisableSmart()
	if got := m.Snapshot().ConfigError; got != "" {
		t.Errorf("manual mode should not show config error, got %q", got)
	}
}

func TestManager_RefreshManualIsNoop(t *testing.T) {
	r := newFakeResolver()
	m := NewManager(DefaultConfig(), r)
	defer m.Close()

	if m.Refresh() {
		t.Error("Refresh in manual mode should do nothing")
	}
	if r.calls.Load() != 0 {
		t.Error("resolver should not be called")
	}
}

func TestManager_EnableSmartErrors(t *testing.T) {
	if err := NewManager(DefaultConfig(), nil).EnableSmart(context.Background()); !errors.Is(err, ErrNoResolver) {
		t.Errorf("err = %v, want ErrNoResolver", err)
	}

	cfg := DefaultConfig()
	cfg.RefreshSchedule = "every now and then"
	m := NewManager(cfg, newFakeResolver())
	defer m.Close()
	if err := m.EnableSmart(context.Background()); err == nil {
		t.Error("expected error for a bad schedule")
	}
	if m.Mode() != ModeManual {
		t.Error("mode should stay manual after a failed enable")
	}
}

type memoryStore struct {
	mu    sync.Mutex
	pref  Preference
	ok    bool
	saves int
}

func (s *memoryStore) LoadPreference() (Preference, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref, s.ok, nil
}

func (s *memoryStore) SavePreference(p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pref, s.ok = p, true
	s.saves++
	return nil
}

func TestManager_StoreRoundTrip(t *testing.T) {
	store := &memoryStore{
		pref: Preference{Selection: Selection{Weather: catalog.Snowy, TimeOfDay: astro.Dawn}, Mode: ModeSmart},
		ok:   true,
	}
	r := newFakeResolver()
	r.results <- envResult(catalog.Cloudy, "Bergen")

	m := NewManager(DefaultConfig(), r, WithStore(store))
	defer m.Close()

	if got := m.Snapshot().Selection; got.Weather != catalog.Snowy || got.TimeOfDay != astro.Dawn {
		t.Errorf("loaded selection = %+v", got)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Mode() != ModeSmart {
		t.Error("remembered smart mode should be restored by Start")
	}

	m.DisableSmart()
	if err := m.SetTimeOfDay(astro.Evening); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.pref.Mode != ModeManual || store.pref.Selection.TimeOfDay != astro.Evening {
		t.Errorf("saved preference = %+v", store.pref)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" SMART "); err != nil || m != ModeSmart {
		t.Errorf("ParseMode = %q, %v", m, err)
	}
	if _, err := ParseMode("auto"); err == nil {
		t.Error("expected error")
	}
}
