package astro

import (
	"math"
	"time"
)

// synodicMonth is the mean length of a lunar cycle in days.
const synodicMonth = 29.530588853

// referenceNewMoon is a known new moon (2000-01-06 18:14 UTC).
var referenceNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// LunarPhase names one eighth of the lunar cycle.
type LunarPhase string

const (
	NewMoon        LunarPhase = "new"
	WaxingCrescent LunarPhase = "waxing_crescent"
	FirstQuarter   LunarPhase = "first_quarter"
	WaxingGibbous  LunarPhase = "waxing_gibbous"
	FullMoon       LunarPhase = "full"
	WaningGibbous  LunarPhase = "waning_gibbous"
	LastQuarter    LunarPhase = "last_quarter"
	WaningCrescent LunarPhase = "waning_crescent"
)

var lunarPhases = [8]LunarPhase{
	NewMoon, WaxingCrescent, FirstQuarter, WaxingGibbous,
	FullMoon, WaningGibbous, LastQuarter, WaningCrescent,
}

// MoonAge returns the fraction of the lunar cycle elapsed at t, in [0,1).
// 0 is new moon and 0.5 is full moon.
func MoonAge(t time.Time) float64 {
	days := t.Sub(referenceNewMoon).Hours() / 24
	age := math.Mod(days, synodicMonth) / synodicMonth
	if age < 0 {
		age++
	}
	return age
}

// MoonPhase returns the cycle fraction at t and its named octant.
// Octants are centered on the principal phases.
func MoonPhase(t time.Time) (float64, LunarPhase) {
	age := MoonAge(t)
	idx := int(math.Floor(age*8+0.5)) % 8
	return age, lunarPhases[idx]
}

// Illumination returns the lit fraction of the disc for a cycle fraction.
func Illumination(age float64) float64 {
	return (1 - math.Cos(2*math.Pi*age)) / 2
}
