// Package acquire resolves the real-world environment behind smart mode:
// where the user is, what the weather is doing there and when the sun rises
// and sets. Each stage has its own timeout and fallback; only a total
// failure is reported as an error.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
)

var (
	// ErrUnavailable means a source is not configured or cannot answer.
	ErrUnavailable = errors.New("source unavailable")

	// ErrMissingAPIKey means the weather provider needs a key and has none.
	ErrMissingAPIKey = errors.New("weather API key is not set")

	// ErrNoLocation means every location source failed.
	ErrNoLocation = errors.New("no location available")
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Key rounds to two decimals (about 1 km) for cache lookups.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.2f,%.2f", c.Lat, c.Lon)
}

// Method records which source produced a location.
type Method string

const (
	MethodGPS      Method = "gps"
	MethodIP       Method = "ip"
	MethodFallback Method = "fallback"
)

// Location is where the environment was resolved for.
type Location struct {
	City        string       `json:"city,omitempty" yaml:"city,omitempty"`
	Country     string       `json:"country,omitempty" yaml:"country,omitempty"`
	Method      Method       `json:"method" yaml:"method"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}

// Label is a short human description such as "Seoul, KR (ip)".
func (l Location) Label() string {
	name := l.City
	if l.Country != "" {
		if name != "" {
			name += ", "
		}
		name += l.Country
	}
	if name == "" && l.Coordinates != nil {
		name = fmt.Sprintf("%.2f, %.2f", l.Coordinates.Lat, l.Coordinates.Lon)
	}
	if name == "" {
		return string(l.Method)
	}
	return fmt.Sprintf("%s (%s)", name, l.Method)
}

// Condition is the provider's current-weather report mapped onto a category.
type Condition struct {
	ID          int              `json:"id" yaml:"id"`
	Main        string           `json:"main" yaml:"main"`
	Description string           `json:"description" yaml:"description"`
	TempC       float64          `json:"temp_c" yaml:"temp_c"`
	Provider    string           `json:"provider" yaml:"provider"`
	Category    catalog.Category `json:"category" yaml:"category"`
}

// Environment is the output of one resolve pass. HasLocation and HasWeather
// report which stages succeeded; the window is always populated.
type Environment struct {
	Location    Location        `json:"location" yaml:"location"`
	HasLocation bool            `json:"has_location" yaml:"has_location"`
	Condition   Condition       `json:"condition" yaml:"condition"`
	HasWeather  bool            `json:"has_weather" yaml:"has_weather"`
	Window      astro.SunWindow `json:"window" yaml:"window"`
	ResolvedAt  time.Time       `json:"resolved_at" yaml:"resolved_at"`
	Warnings    []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Weather returns the resolved category, if any.
func (e Environment) Weather() (catalog.Category, bool) {
	if !e.HasWeather {
		return "", false
	}
	return e.Condition.Category, true
}

// Result wraps an Environment with timing and errors, in the manner of a
// fetch result. Err is set only when both location and weather failed.
// Partial joins the stage errors that were recovered by a fallback.
type Result struct {
	Env      Environment
	Duration time.Duration
	Err      error
	Partial  error
}

// DeviceLocator reads the device's own position (GPS).
type DeviceLocator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// IPLocator approximates location from the public IP address.
type IPLocator interface {
	LocateIP(ctx context.Context) (Location, error)
}

// ReverseGeocoder names the place at a coordinate.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c Coordinates) (city, country string, err error)
}

// WeatherProvider reports the current weather at a coordinate.
type WeatherProvider interface {
	Name() string
	Current(ctx context.Context, c Coordinates) (Condition, error)
}

// SunTimesProvider looks up sunrise and sunset for a coordinate and day.
type SunTimesProvider interface {
	SunTimes(ctx context.Context, c Coordinates, day time.Time) (astro.SunWindow, error)
}

// SunCache stores sun windows by SunKey.
type SunCache interface {
	Get(key string) (astro.SunWindow, bool)
	Put(key string, w astro.SunWindow)
}

// SunKey identifies one day's window at one place.
func SunKey(day time.Time, c Coordinates) string {
	return astro.DateKey(day) + "@" + c.Key()
}
