package astro

import (
	"math"
	"testing"
	"time"
)

func TestFallbackWindow(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	day := time.Date(2025, 7, 14, 15, 30, 0, 0, loc)

	w := FallbackWindow(day)

	if w.Date != "2025-07-14" {
		t.Errorf("Date = %q, want 2025-07-14", w.Date)
	}
	if w.Sunrise.Hour() != 6 || w.Sunset.Hour() != 18 {
		t.Errorf("got %v / %v, want 06:00 / 18:00", w.Sunrise, w.Sunset)
	}
	if w.Sunrise.Location() != loc {
		t.Errorf("sunrise zone = %v, want %v", w.Sunrise.Location(), loc)
	}
	if w.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", w.Source, SourceFallback)
	}
}

func TestSunWindow_ShiftTo(t *testing.T) {
	prev := SunWindow{
		Date:    "2025-01-09",
		Sunrise: time.Date(2025, 1, 9, 7, 47, 0, 0, time.UTC),
		Sunset:  time.Date(2025, 1, 9, 17, 21, 0, 0, time.UTC),
		Source:  SourceAPI,
	}

	got := prev.ShiftTo(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))

	if got.Date != "2025-01-10" {
		t.Errorf("Date = %q, want 2025-01-10", got.Date)
	}
	if !got.Sunrise.Equal(time.Date(2025, 1, 10, 7, 47, 0, 0, time.UTC)) {
		t.Errorf("Sunrise = %v", got.Sunrise)
	}
	if !got.Sunset.Equal(time.Date(2025, 1, 10, 17, 21, 0, 0, time.UTC)) {
		t.Errorf("Sunset = %v", got.Sunset)
	}
	if got.Source != SourcePrevious {
		t.Errorf("Source = %q, want %q", got.Source, SourcePrevious)
	}
}

func TestSunWindow_ShiftToZero(t *testing.T) {
	day := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	got := SunWindow{}.ShiftTo(day)
	if got.Source != SourceFallback {
		t.Errorf("empty window shifted to %q, want fallback", got.Source)
	}
}

func TestSunWindow_Positions(t *testing.T) {
	day := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	w := FallbackWindow(day)

	p := w.Positions(day.Add(12 * time.Hour))
	if math.Abs(p.Sun.Phase-0.5) > 1e-9 || !p.Sun.Visible || p.Moon.Visible {
		t.Errorf("noon against 06:00/18:00: got %+v", p)
	}
}

func TestSunWindow_PositionsOnDistantClock(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	w := SunWindow{
		Date:    "2025-04-02",
		Sunrise: time.Date(2025, 4, 2, 6, 10, 0, 0, kst),
		Sunset:  time.Date(2025, 4, 2, 18, 50, 0, 0, kst),
		Source:  SourceAPI,
	}

	for _, h := range []int{7, 12, 17, 22} {
		local := time.Date(2025, 4, 2, h, 0, 0, 0, kst)
		got := w.Positions(local.In(time.UTC))
		want := w.Positions(local)
		if got.TimeOfDay != want.TimeOfDay || got.Sun.Visible != want.Sun.Visible ||
			math.Abs(got.Sun.Phase-want.Sun.Phase) > 1e-9 {
			t.Errorf("%02d:00 KST on a UTC clock: got %+v, want %+v", h, got, want)
		}
	}
}

func TestSunWindow_MinutesZero(t *testing.T) {
	rise, set := SunWindow{}.Minutes(time.UTC)
	if rise != FallbackSunriseMinutes || set != FallbackSunsetMinutes {
		t.Errorf("got %v/%v, want fallback minutes", rise, set)
	}
}

func TestLocalWindow(t *testing.T) {
	// London around the June solstice: sunrise ~03:43 UTC, sunset ~20:21 UTC.
	day := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	w, ok := LocalWindow(51.5074, -0.1278, day)
	if !ok {
		t.Fatal("expected a sunrise in London in June")
	}
	if w.Source != SourceComputed {
		t.Errorf("Source = %q, want %q", w.Source, SourceComputed)
	}
	if !w.Sunrise.Before(w.Sunset) {
		t.Fatalf("sunrise %v not before sunset %v", w.Sunrise, w.Sunset)
	}

	rise := MinutesSinceMidnight(w.Sunrise)
	set := MinutesSinceMidnight(w.Sunset)
	if math.Abs(rise-(3*60+43)) > 10 {
		t.Errorf("sunrise = %v, want ~03:43 UTC", w.Sunrise)
	}
	if math.Abs(set-(20*60+21)) > 10 {
		t.Errorf("sunset = %v, want ~20:21 UTC", w.Sunset)
	}
}
