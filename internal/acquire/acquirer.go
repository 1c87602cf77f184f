package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/logging"
)

// Default per-stage timeouts.
const (
	DefaultDeviceTimeout = 10 * time.Second
	DefaultStageTimeout  = 10 * time.Second
)

// Acquirer runs the location, weather and sun-time stages in order. Each
// location tier is tried once per Resolve; a failed device fix goes straight
// to IP location, and a failed IP lookup goes to the configured fallback.
type Acquirer struct {
	device   DeviceLocator
	ip       IPLocator
	geocoder ReverseGeocoder
	weather  WeatherProvider
	sun      SunTimesProvider
	cache    SunCache
	fallback *Location

	deviceTimeout time.Duration
	stageTimeout  time.Duration
	log           *logging.Logger
	now           func() time.Time
	observers     []func(Environment)

	mu         sync.Mutex
	places     map[string][2]string
	lastWindow astro.SunWindow
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithDevice sets the device locator tried first.
func WithDevice(d DeviceLocator) Option {
	return func(a *Acquirer) { a.device = d }
}

// WithIPLocator sets the IP locator tried when the device has no fix.
func WithIPLocator(l IPLocator) Option {
	return func(a *Acquirer) { a.ip = l }
}

// WithGeocoder names device fixes.
func WithGeocoder(g ReverseGeocoder) Option {
	return func(a *Acquirer) { a.geocoder = g }
}

// WithWeather sets the weather provider.
func WithWeather(w WeatherProvider) Option {
	return func(a *Acquirer) { a.weather = w }
}

// WithSunTimes sets the sun times provider.
func WithSunTimes(s SunTimesProvider) Option {
	return func(a *Acquirer) { a.sun = s }
}

// WithSunCache replaces the in-memory sun window cache.
func WithSunCache(c SunCache) Option {
	return func(a *Acquirer) { a.cache = c }
}

// WithFallbackLocation sets the last-resort location.
func WithFallbackLocation(loc Location) Option {
	return func(a *Acquirer) {
		loc.Method = MethodFallback
		a.fallback = &loc
	}
}

// WithDeviceTimeout bounds the device stage.
func WithDeviceTimeout(d time.Duration) Option {
	return func(a *Acquirer) { a.deviceTimeout = d }
}

// WithStageTimeout bounds each network stage.
func WithStageTimeout(d time.Duration) Option {
	return func(a *Acquirer) { a.stageTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Acquirer) { a.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) { a.now = now }
}

// WithObserver registers fn to receive every resolved environment.
func WithObserver(fn func(Environment)) Option {
	return func(a *Acquirer) { a.observers = append(a.observers, fn) }
}

// New creates an Acquirer. Stages without a source are skipped.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		deviceTimeout: DefaultDeviceTimeout,
		stageTimeout:  DefaultStageTimeout,
		log:           logging.Discard(),
		now:           time.Now,
		places:        make(map[string][2]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = NewMemorySunCache()
	}
	return a
}

// Resolve performs one acquisition pass.
func (a *Acquirer) Resolve(ctx context.Context) Result {
	start := a.now()
	env := Environment{ResolvedAt: start}
	var partial []error

	loc, err := a.locate(ctx)
	if err != nil {
		partial = append(partial, err)
	} else {
		env.Location = loc
		env.HasLocation = true
	}

	var coords *Coordinates
	if env.HasLocation {
		coords = env.Location.Coordinates
	}

	if coords != nil {
		cond, err := a.currentWeather(ctx, *coords)
		if err != nil {
			partial = append(partial, err)
		} else {
			env.Condition = cond
			env.HasWeather = true
		}
	} else {
		partial = append(partial, fmt.Errorf("weather: %w", ErrNoLocation))
	}

	env.Window = a.sunWindow(ctx, coords, start)

	res := Result{Env: env, Duration: a.now().Sub(start)}
	if !env.HasLocation && !env.HasWeather {
		res.Err = fmt.Errorf("resolve environment: %w", errors.Join(partial...))
		a.log.Warn("resolve failed after %s: %v", res.Duration, res.Err)
		return res
	}

	for _, e := range partial {
		res.Env.Warnings = append(res.Env.Warnings, e.Error())
	}
	res.Partial = errors.Join(partial...)

	a.log.Info("resolved %s weather=%s sun=%s in %s",
		env.Location.Label(), env.Condition.Category, env.Window.Source, res.Duration)
	for _, fn := range a.observers {
		fn(res.Env)
	}
	return res
}

// locate walks device, IP, then fallback, trying each once.
func (a *Acquirer) locate(ctx context.Context) (Location, error) {
	var tiers []error

	if a.device != nil {
		dctx, cancel := context.WithTimeout(ctx, a.deviceTimeout)
		c, err := a.device.Locate(dctx)
		cancel()
		if err == nil {
			loc := Location{Method: MethodGPS, Coordinates: &c}
			loc.City, loc.Country = a.placeName(ctx, c)
			return loc, nil
		}
		a.log.Debug("device location failed: %v", err)
		tiers = append(tiers, fmt.Errorf("device: %w", err))
	}

	if a.ip != nil {
		ictx, cancel := context.WithTimeout(ctx, a.stageTimeout)
		loc, err := a.ip.LocateIP(ictx)
		cancel()
		if err == nil {
			loc.Method = MethodIP
			return loc, nil
		}
		a.log.Debug("ip location failed: %v", err)
		tiers = append(tiers, fmt.Errorf("ip: %w", err))
	}

	if a.fallback != nil {
		loc := *a.fallback
		if loc.Coordinates != nil {
			c := *loc.Coordinates
			loc.Coordinates = &c
		}
		return loc, nil
	}

	tiers = append(tiers, ErrNoLocation)
	return Location{}, fmt.Errorf("location: %w", errors.Join(tiers...))
}

// placeName reverse geocodes c, remembering answers per rounded coordinate.
// Failures leave the name blank.
func (a *Acquirer) placeName(ctx context.Context, c Coordinates) (string, string) {
	if a.geocoder == nil {
		return "", ""
	}
	key := c.Key()

	a.mu.Lock()
	if p, ok := a.places[key]; ok {
		a.mu.Unlock()
		return p[0], p[1]
	}
	a.mu.Unlock()

	gctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()
	city, country, err := a.geocoder.Reverse(gctx, c)
	if err != nil {
		a.log.Debug("reverse geocode failed: %v", err)
		return "", ""
	}

	a.mu.Lock()
	a.places[key] = [2]string{city, country}
	a.mu.Unlock()
	return city, country
}

func (a *Acquirer) currentWeather(ctx context.Context, c Coordinates) (Condition, error) {
	if a.weather == nil {
		return Condition{}, fmt.Errorf("weather: %w", ErrUnavailable)
	}
	wctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()
	cond, err := a.weather.Current(wctx, c)
	if err != nil {
		return Condition{}, fmt.Errorf("weather: %w", err)
	}
	return cond, nil
}

// sunWindow returns today's window from cache, API or local computation,
// falling back to the previous day's window shifted forward and finally to
// the fixed 06:00/18:00 window.
func (a *Acquirer) sunWindow(ctx context.Context, coords *Coordinates, now time.Time) astro.SunWindow {
	if coords != nil {
		key := SunKey(now, *coords)
		if w, ok := a.cache.Get(key); ok {
			a.remember(w)
			return w
		}

		if a.sun != nil {
			sctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
			w, err := a.sun.SunTimes(sctx, *coords, now)
			cancel()
			if err == nil {
				a.cache.Put(key, w)
				a.remember(w)
				return w
			}
			a.log.Debug("sun times lookup failed: %v", err)
		}

		if w, ok := astro.LocalWindow(coords.Lat, coords.Lon, now); ok {
			a.remember(w)
			return w
		}
	}

	a.mu.Lock()
	last := a.lastWindow
	a.mu.Unlock()
	if !last.IsZero() {
		return last.ShiftTo(now)
	}
	return astro.FallbackWindow(now)
}

func (a *Acquirer) remember(w astro.SunWindow) {
	a.mu.Lock()
	a.lastWindow = w
	a.mu.Unlock()
}
