package astro

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Fallback sunrise and sunset used when no real data is available.
const (
	FallbackSunriseMinutes = 6 * 60
	FallbackSunsetMinutes  = 18 * 60
)

// Window sources, in order of preference.
const (
	SourceAPI      = "api"
	SourceComputed = "computed"
	SourcePrevious = "previous"
	SourceFallback = "fallback"
)

// SunWindow holds one calendar day's sunrise and sunset.
type SunWindow struct {
	Date    string    `json:"date" yaml:"date"`
	Sunrise time.Time `json:"sunrise" yaml:"sunrise"`
	Sunset  time.Time `json:"sunset" yaml:"sunset"`
	Source  string    `json:"source" yaml:"source"`
}

// DateKey formats t as the calendar day used to key sun windows.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsZero reports whether the window carries no times.
func (w SunWindow) IsZero() bool {
	return w.Sunrise.IsZero() || w.Sunset.IsZero()
}

// Minutes returns sunrise and sunset as minutes since midnight in loc.
func (w SunWindow) Minutes(loc *time.Location) (sunriseMin, sunsetMin float64) {
	if w.IsZero() {
		return FallbackSunriseMinutes, FallbackSunsetMinutes
	}
	return MinutesSinceMidnight(w.Sunrise.In(loc)), MinutesSinceMidnight(w.Sunset.In(loc))
}

// Positions evaluates the continuous model for now against this window.
func (w SunWindow) Positions(now time.Time) Positions {
	rise, set := w.Minutes(now.Location())
	return Continuous(MinutesSinceMidnight(now), rise, set)
}

// ShiftTo moves the window onto another calendar day, keeping clock times.
// Used to carry yesterday's values forward when today's lookup fails.
func (w SunWindow) ShiftTo(day time.Time) SunWindow {
	if w.IsZero() {
		return FallbackWindow(day)
	}
	from := midnight(w.Sunrise)
	to := midnight(day.In(w.Sunrise.Location()))
	days := int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
	return SunWindow{
		Date:    DateKey(day),
		Sunrise: w.Sunrise.AddDate(0, 0, days),
		Sunset:  w.Sunset.AddDate(0, 0, days),
		Source:  SourcePrevious,
	}
}

// FallbackWindow returns 06:00/18:00 on day in day's zone.
func FallbackWindow(day time.Time) SunWindow {
	m := midnight(day)
	return SunWindow{
		Date:    DateKey(day),
		Sunrise: m.Add(FallbackSunriseMinutes * time.Minute),
		Sunset:  m.Add(FallbackSunsetMinutes * time.Minute),
		Source:  SourceFallback,
	}
}

// LocalWindow computes sunrise and sunset for a coordinate without any
// network access. ok is false during polar day or polar night.
func LocalWindow(lat, lon float64, day time.Time) (SunWindow, bool) {
	rise, set := sunrise.SunriseSunset(lat, lon, day.Year(), day.Month(), day.Day())
	if rise.IsZero() || set.IsZero() {
		return SunWindow{}, false
	}
	return SunWindow{
		Date:    DateKey(day),
		Sunrise: rise.In(day.Location()),
		Sunset:  set.In(day.Location()),
		Source:  SourceComputed,
	}, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
