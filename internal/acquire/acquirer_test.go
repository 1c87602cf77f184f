package acquire

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
)

var testNow = time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// recorder notes the order in which stubs are called.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

type stubDevice struct {
	rec    *recorder
	coords Coordinates
	err    error
}

func (s *stubDevice) Locate(ctx context.Context) (Coordinates, error) {
	s.rec.add("device")
	return s.coords, s.err
}

type stubIP struct {
	rec *recorder
	loc Location
	err error
}

func (s *stubIP) LocateIP(ctx context.Context) (Location, error) {
	s.rec.add("ip")
	return s.loc, s.err
}

type stubGeocoder struct {
	rec *recorder
}

func (s *stubGeocoder) Reverse(ctx context.Context, c Coordinates) (string, string, error) {
	s.rec.add("geocode")
	return "Paris", "FR", nil
}

type stubWeather struct {
	rec  *recorder
	cond Condition
	err  error
}

func (s *stubWeather) Name() string { return "stub" }

func (s *stubWeather) Current(ctx context.Context, c Coordinates) (Condition, error) {
	s.rec.add("weather")
	return s.cond, s.err
}

type stubSun struct {
	rec *recorder
	err error
}

func (s *stubSun) SunTimes(ctx context.Context, c Coordinates, day time.Time) (astro.SunWindow, error) {
	s.rec.add("sun")
	if s.err != nil {
		return astro.SunWindow{}, s.err
	}
	m := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return astro.SunWindow{
		Date:    astro.DateKey(day),
		Sunrise: m.Add(5 * time.Hour),
		Sunset:  m.Add(21 * time.Hour),
		Source:  astro.SourceAPI,
	}, nil
}

var (
	paris = Coordinates{Lat: 48.86, Lon: 2.35}
	seoul = Location{City: "Seoul", Country: "KR", Coordinates: &Coordinates{Lat: 37.57, Lon: 126.98}}
	rainy = Condition{ID: 500, Main: "Rain", Category: catalog.Rainy, Provider: "stub"}
)

func TestResolve_DeviceFailureFallsToIPWithoutRetry(t *testing.T) {
	rec := &recorder{}
	a := New(
		WithDevice(&stubDevice{rec: rec, err: errors.New("permission denied")}),
		WithIPLocator(&stubIP{rec: rec, loc: Location{City: "Lyon", Country: "FR", Coordinates: &paris}}),
		WithWeather(&stubWeather{rec: rec, cond: rainy}),
		WithSunTimes(&stubSun{rec: rec}),
		WithClock(testClock),
	)

	res := a.Resolve(context.Background())
	if res.Err != nil {
		t.Fatalf("Resolve: %v", res.Err)
	}
	if res.Env.Location.Method != MethodIP || res.Env.Location.City != "Lyon" {
		t.Errorf("location = %+v, want the IP result", res.Env.Location)
	}
	if got := rec.count("device"); got != 1 {
		t.Errorf("device attempted %d times, want 1", got)
	}
	if got := rec.count("ip"); got != 1 {
		t.Errorf("ip attempted %d times, want 1", got)
	}
	if len(rec.calls) < 2 || rec.calls[0] != "device" || rec.calls[1] != "ip" {
		t.Errorf("call order = %v, want device then ip", rec.calls)
	}
	if res.Partial != nil {
		t.Errorf("recovered device failure should not be reported: %v", res.Partial)
	}
}

func TestResolve_DeviceFixIsGeocoded(t *testing.T) {
	rec := &recorder{}
	a := New(
		WithDevice(&stubDevice{rec: rec, coords: paris}),
		WithIPLocator(&stubIP{rec: rec, err: errors.New("unused")}),
		WithGeocoder(&stubGeocoder{rec: rec}),
		WithWeather(&stubWeather{rec: rec, cond: rainy}),
		WithClock(testClock),
	)

	res := a.Resolve(context.Background())
	loc := res.Env.Location
	if loc.Method != MethodGPS || loc.City != "Paris" || loc.Country != "FR" {
		t.Errorf("location = %+v", loc)
	}
	if rec.count("ip") != 0 {
		t.Error("ip should not be tried after a device fix")
	}

	a.Resolve(context.Background())
	if got := rec.count("geocode"); got != 1 {
		t.Errorf("geocoder called %d times, want 1 (cached)", got)
	}
}

func TestResolve_IPFailureUsesFallback(t *testing.T) {
	rec := &recorder{}
	a := New(
		WithIPLocator(&stubIP{rec: rec, err: errors.New("offline")}),
		WithFallbackLocation(seoul),
		WithWeather(&stubWeather{rec: rec, cond: rainy}),
		WithClock(testClock),
	)

	res := a.Resolve(context.Background())
	if res.Err != nil {
		t.Fatalf("Resolve: %v", res.Err)
	}
	if res.Env.Location.Method != MethodFallback || res.Env.Location.City != "Seoul" {
		t.Errorf("location = %+v", res.Env.Location)
	}
	if got, ok := res.Env.Weather(); !ok || got != catalog.Rainy {
		t.Errorf("weather = %q, %v", got, ok)
	}
}

func TestResolve_TotalFailure(t *testing.T) {
	rec := &recorder{}
	observed := false
	a := New(
		WithDevice(&stubDevice{rec: rec, err: context.DeadlineExceeded}),
		WithIPLocator(&stubIP{rec: rec, err: errors.New("offline")}),
		WithWeather(&stubWeather{rec: rec, cond: rainy}),
		WithClock(testClock),
		WithObserver(func(Environment) { observed = true }),
	)

	res := a.Resolve(context.Background())
	if res.Err == nil {
		t.Fatal("expected terminal error")
	}
	if !errors.Is(res.Err, ErrNoLocation) {
		t.Errorf("err = %v, want ErrNoLocation", res.Err)
	}
	if rec.count("weather") != 0 {
		t.Error("weather needs a location")
	}
	if res.Env.Window.Source != astro.SourceFallback {
		t.Errorf("window source = %q, want fallback", res.Env.Window.Source)
	}
	if observed {
		t.Error("observers should not see failed resolves")
	}
}

func TestResolve_MissingKeyIsPartial(t *testing.T) {
	a := New(
		WithFallbackLocation(seoul),
		WithWeather(NewOpenWeatherClient("")),
		WithClock(testClock),
	)

	res := a.Resolve(context.Background())
	if res.Err != nil {
		t.Fatalf("location succeeded, Err = %v", res.Err)
	}
	if !errors.Is(res.Partial, ErrMissingAPIKey) {
		t.Errorf("Partial = %v, want ErrMissingAPIKey", res.Partial)
	}
	if res.Env.HasWeather {
		t.Error("HasWeather should be false")
	}
	if len(res.Env.Warnings) == 0 {
		t.Error("expected a warning")
	}
}

func TestResolve_SunWindowCachedPerDay(t *testing.T) {
	rec := &recorder{}
	a := New(
		WithFallbackLocation(Location{Coordinates: &paris}),
		WithSunTimes(&stubSun{rec: rec}),
		WithClock(testClock),
	)

	first := a.Resolve(context.Background())
	second := a.Resolve(context.Background())

	if rec.count("sun") != 1 {
		t.Errorf("sun API called %d times, want 1", rec.count("sun"))
	}
	if first.Env.Window != second.Env.Window || first.Env.Window.Source != astro.SourceAPI {
		t.Errorf("windows differ or wrong source: %+v vs %+v", first.Env.Window, second.Env.Window)
	}
}

func TestResolve_SunAPIFailureComputesLocally(t *testing.T) {
	rec := &recorder{}
	a := New(
		WithFallbackLocation(Location{Coordinates: &paris}),
		WithSunTimes(&stubSun{rec: rec, err: errors.New("503")}),
		WithClock(testClock),
	)

	w := a.Resolve(context.Background()).Env.Window
	if w.Source != astro.SourceComputed {
		t.Fatalf("source = %q, want computed", w.Source)
	}
	// Paris midsummer: sunrise around 03:45 UTC.
	if h := w.Sunrise.UTC().Hour(); h < 3 || h > 4 {
		t.Errorf("sunrise hour = %d", h)
	}
}

func TestResolve_PreviousWindowCarriesForward(t *testing.T) {
	rec := &recorder{}
	now := testNow
	loc := &stubIP{rec: rec, loc: Location{Coordinates: &paris}}
	a := New(
		WithIPLocator(loc),
		WithSunTimes(&stubSun{rec: rec}),
		WithClock(func() time.Time { return now }),
	)

	first := a.Resolve(context.Background()).Env.Window

	// Next day everything is offline.
	now = now.AddDate(0, 0, 1)
	loc.err = errors.New("offline")
	w := a.Resolve(context.Background()).Env.Window

	if w.Source != astro.SourcePrevious {
		t.Fatalf("source = %q, want previous", w.Source)
	}
	if !w.Sunrise.Equal(first.Sunrise.AddDate(0, 0, 1)) {
		t.Errorf("sunrise = %v, want %v", w.Sunrise, first.Sunrise.AddDate(0, 0, 1))
	}
}
