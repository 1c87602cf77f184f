package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/theme"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "skyline.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreference_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadPreference(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	first := theme.Preference{
		Selection: theme.Selection{Weather: catalog.Rainy, TimeOfDay: astro.Dawn},
		Mode:      theme.ModeManual,
	}
	if err := s.SavePreference(first); err != nil {
		t.Fatalf("SavePreference: %v", err)
	}
	second := theme.Preference{
		Selection: theme.Selection{Weather: catalog.Foggy, TimeOfDay: astro.Night},
		Mode:      theme.ModeSmart,
	}
	if err := s.SavePreference(second); err != nil {
		t.Fatalf("SavePreference again: %v", err)
	}

	got, ok, err := s.LoadPreference()
	if err != nil || !ok {
		t.Fatalf("LoadPreference: ok=%v err=%v", ok, err)
	}
	if got != second {
		t.Errorf("got %+v, want %+v", got, second)
	}

	var rows int64
	s.db.Model(&Preference{}).Count(&rows)
	if rows != 1 {
		t.Errorf("preference rows = %d, want 1", rows)
	}
}

func TestSunCache(t *testing.T) {
	s := openTestStore(t)
	day := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	key := acquire.SunKey(day, acquire.Coordinates{Lat: 51.5, Lon: -0.12})

	if _, ok := s.Get(key); ok {
		t.Fatal("empty cache returned a window")
	}

	w := astro.SunWindow{
		Date:    "2024-06-21",
		Sunrise: day.Add(3*time.Hour + 43*time.Minute),
		Sunset:  day.Add(20*time.Hour + 21*time.Minute),
		Source:  astro.SourceAPI,
	}
	s.Put(key, w)
	s.Put(key, w) // upsert, not a duplicate

	got, ok := s.Get(key)
	if !ok {
		t.Fatal("window not cached")
	}
	if got.Date != w.Date || got.Source != w.Source || !got.Sunrise.Equal(w.Sunrise) || !got.Sunset.Equal(w.Sunset) {
		t.Errorf("got %+v, want %+v", got, w)
	}

	n, err := s.PruneSunWindows("2024-06-22")
	if err != nil || n != 1 {
		t.Errorf("PruneSunWindows = %d, %v", n, err)
	}
	if _, ok := s.Get(key); ok {
		t.Error("pruned window still cached")
	}
}

func TestSunCache_UsedByAcquirer(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	paris := acquire.Coordinates{Lat: 48.86, Lon: 2.35}

	a := acquire.New(
		acquire.WithFallbackLocation(acquire.Location{City: "Paris", Coordinates: &paris}),
		acquire.WithSunCache(s),
		acquire.WithClock(func() time.Time { return now }),
		acquire.WithObserver(s.ObserveEnvironment),
	)
	res := a.Resolve(context.Background())
	if res.Err != nil {
		t.Fatalf("Resolve: %v", res.Err)
	}

	obs, err := s.RecentObservations(10)
	if err != nil {
		t.Fatalf("RecentObservations: %v", err)
	}
	if len(obs) != 1 || obs[0].City != "Paris" || obs[0].Method != string(acquire.MethodFallback) {
		t.Errorf("observations = %+v", obs)
	}
	if obs[0].SunSource != astro.SourceComputed {
		t.Errorf("sun source = %q, want computed", obs[0].SunSource)
	}
}

func TestObservations_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		env := acquire.Environment{
			ResolvedAt:  base.Add(time.Duration(i) * time.Hour),
			Location:    acquire.Location{City: "Oslo", Method: acquire.MethodIP},
			HasLocation: true,
			Condition:   acquire.Condition{Category: catalog.Snowy, TempC: float64(-i)},
			HasWeather:  true,
			Warnings:    []string{"a", "b"},
		}
		if err := s.SaveObservation(env); err != nil {
			t.Fatalf("SaveObservation: %v", err)
		}
	}

	obs, err := s.RecentObservations(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations", len(obs))
	}
	if obs[0].TempC != -2 || obs[1].TempC != -1 {
		t.Errorf("order = %v, %v", obs[0].TempC, obs[1].TempC)
	}
	if obs[0].Warnings != "a; b" {
		t.Errorf("warnings = %q", obs[0].Warnings)
	}
}
