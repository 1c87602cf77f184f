// Package astro computes where the sun and moon sit in the sky scene.
//
// Two models are provided. Discrete maps a TimeOfDay onto a fixed table of
// positions. Continuous interpolates along a half-sine arc between real (or
// fallback) sunrise and sunset times. Both return positions as fractions of
// the viewport so callers never need a canvas to test them.
package astro

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is the coarse time bucket used by the discrete model and by
// secondary effects such as star visibility.
type TimeOfDay string

const (
	Dawn      TimeOfDay = "dawn"
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimesOfDay lists every bucket in chronological order starting at dawn.
func TimesOfDay() []TimeOfDay {
	return []TimeOfDay{Dawn, Morning, Afternoon, Evening, Night}
}

// ParseTimeOfDay parses a time-of-day name. "day" and "dusk" are accepted
// as aliases for morning and evening.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dawn":
		return Dawn, nil
	case "morning", "day":
		return Morning, nil
	case "afternoon":
		return Afternoon, nil
	case "evening", "dusk":
		return Evening, nil
	case "night":
		return Night, nil
	default:
		return "", fmt.Errorf("unknown time of day %q", s)
	}
}

// Next returns the following bucket, wrapping night back to dawn.
func (t TimeOfDay) Next() TimeOfDay {
	all := TimesOfDay()
	for i, v := range all {
		if v == t {
			return all[(i+1)%len(all)]
		}
	}
	return Dawn
}

// Prev returns the preceding bucket, wrapping dawn back to night.
func (t TimeOfDay) Prev() TimeOfDay {
	all := TimesOfDay()
	for i, v := range all {
		if v == t {
			return all[(i+len(all)-1)%len(all)]
		}
	}
	return Night
}

// Valid reports whether t is one of the five known buckets.
func (t TimeOfDay) Valid() bool {
	switch t {
	case Dawn, Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}

// StarsVisible is the single star-visibility rule shared by both models.
func (t TimeOfDay) StarsVisible() bool {
	return t == Night || t == Dawn
}

const (
	minutesPerDay = 24 * 60

	// twilightMinutes is the half-width of the dawn/dusk windows around
	// sunrise and sunset.
	twilightMinutes = 60
)

// DeriveTimeOfDay buckets a clock reading against sunrise and sunset, all in
// minutes since local midnight. Dawn and evening straddle sunrise and sunset
// by an hour either side; morning runs to solar noon.
func DeriveTimeOfDay(nowMin, sunriseMin, sunsetMin float64) TimeOfDay {
	noon := (sunriseMin + sunsetMin) / 2
	switch {
	case nowMin >= sunriseMin-twilightMinutes && nowMin < sunriseMin+twilightMinutes:
		return Dawn
	case nowMin >= sunsetMin-twilightMinutes && nowMin < sunsetMin+twilightMinutes:
		return Evening
	case nowMin >= sunriseMin+twilightMinutes && nowMin < noon:
		return Morning
	case nowMin >= noon && nowMin < sunsetMin-twilightMinutes:
		return Afternoon
	default:
		return Night
	}
}

// ClockTimeOfDay buckets a wall-clock hour without any sunrise data.
func ClockTimeOfDay(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 8:
		return Dawn
	case hour >= 8 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 20:
		return Evening
	default:
		return Night
	}
}

// MinutesSinceMidnight returns t's offset from local midnight in its own zone.
func MinutesSinceMidnight(t time.Time) float64 {
	return float64(t.Hour())*60 + float64(t.Minute()) + float64(t.Second())/60
}
