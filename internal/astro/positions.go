package astro

import "math"

// Arc geometry in viewport fractions. Bodies travel left to right across
// [arcLeft, arcLeft+arcWidth], sitting at arcBase on the horizon and rising
// by arcAmplitude at mid-arc.
const (
	arcLeft      = 0.1
	arcWidth     = 0.8
	arcBase      = 0.8
	arcAmplitude = 0.6
)

// Phases for the faint moon shown around sunrise (setting) and sunset (rising).
const (
	dawnMoonPhase = 0.95
	duskMoonPhase = 0.05
)

// Position is a body's place in the scene. X and Y are fractions of the
// viewport with (0,0) at the top-left. Phase is progress along the visible
// arc: 0 just risen, 1 about to set.
type Position struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
	Phase   float64 `json:"phase"`
	Faint   bool    `json:"faint,omitempty"`
}

// Positions is the output of one astronomy update. Sun and moon are always
// derived from the same instant.
type Positions struct {
	Sun          Position  `json:"sun"`
	Moon         Position  `json:"moon"`
	TimeOfDay    TimeOfDay `json:"time_of_day"`
	StarsVisible bool      `json:"stars_visible"`
}

// OnArc places a visible body at the given phase.
func OnArc(phase float64) Position {
	phase = clamp01(phase)
	return Position{
		X:       arcLeft + arcWidth*phase,
		Y:       arcBase - arcAmplitude*math.Sin(math.Pi*phase),
		Visible: true,
		Phase:   phase,
	}
}

func faint(phase float64) Position {
	p := OnArc(phase)
	p.Faint = true
	return p
}

type discreteEntry struct {
	sun  Position
	moon Position
}

var discreteTable = map[TimeOfDay]discreteEntry{
	Dawn:      {sun: OnArc(0.05), moon: faint(dawnMoonPhase)},
	Morning:   {sun: OnArc(0.3)},
	Afternoon: {sun: OnArc(0.5)},
	Evening:   {sun: OnArc(0.95), moon: faint(duskMoonPhase)},
	Night:     {moon: OnArc(0.5)},
}

// Discrete returns the fixed positions for a time-of-day bucket. Unknown
// values are treated as afternoon.
func Discrete(tod TimeOfDay) Positions {
	entry, ok := discreteTable[tod]
	if !ok {
		tod = Afternoon
		entry = discreteTable[tod]
	}
	return Positions{
		Sun:          entry.sun,
		Moon:         entry.moon,
		TimeOfDay:    tod,
		StarsVisible: tod.StarsVisible(),
	}
}

// Continuous interpolates sun and moon along their arcs from a clock reading
// and the day's sunrise and sunset, all in minutes since local midnight.
// A sunrise later than sunset is a day that crosses the clock's midnight,
// which happens when the observer is far from the clock's zone. A window
// that cannot be read either way is replaced by 06:00/18:00.
func Continuous(nowMin, sunriseMin, sunsetMin float64) Positions {
	nowMin = wrapMinutes(nowMin)
	if sunriseMin > sunsetMin && sunsetMin >= 0 && sunriseMin < minutesPerDay {
		nowMin, sunriseMin, sunsetMin = rotateWindow(nowMin, sunriseMin, sunsetMin)
	}
	if !(sunriseMin < sunsetMin) || sunriseMin < 0 || sunsetMin > minutesPerDay {
		sunriseMin, sunsetMin = FallbackSunriseMinutes, FallbackSunsetMinutes
	}

	var out Positions
	if nowMin >= sunriseMin && nowMin <= sunsetMin {
		dayProgress := (nowMin - sunriseMin) / (sunsetMin - sunriseMin)
		out.Sun = OnArc(dayProgress)
		switch {
		case nowMin-sunriseMin <= twilightMinutes:
			out.Moon = faint(dawnMoonPhase)
		case sunsetMin-nowMin <= twilightMinutes:
			out.Moon = faint(duskMoonPhase)
		}
	} else {
		nightSpan := minutesPerDay - (sunsetMin - sunriseMin)
		elapsed := nowMin - sunsetMin
		if nowMin < sunriseMin {
			elapsed = nowMin + (minutesPerDay - sunsetMin)
		}
		out.Moon = OnArc(elapsed / nightSpan)
	}

	out.TimeOfDay = DeriveTimeOfDay(nowMin, sunriseMin, sunsetMin)
	out.StarsVisible = out.TimeOfDay.StarsVisible()
	return out
}

// rotatedSunrise is where rotateWindow places sunrise.
const rotatedSunrise = 2 * 60

// rotateWindow shifts all three readings by the same amount so sunrise lands
// at rotatedSunrise. Positions depend only on offsets from sunrise and sunset,
// so the result matches evaluating in the observer's own zone.
func rotateWindow(nowMin, sunriseMin, sunsetMin float64) (float64, float64, float64) {
	shift := sunriseMin - rotatedSunrise
	return wrapMinutes(nowMin - shift), rotatedSunrise, wrapMinutes(sunsetMin - shift)
}

func wrapMinutes(m float64) float64 {
	m = math.Mod(m, minutesPerDay)
	if m < 0 {
		m += minutesPerDay
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
