// Package particles owns the scene's particle pools: a fixed star field, a
// drifting cloud layer and the weather particles (rain, snow, fog). All
// coordinates are in viewport cells.
package particles

import (
	"math"
	"math/rand"
	"time"

	"github.com/litescript/ls-skyline/internal/catalog"
)

const (
	// Margin bounds how far outside the viewport any particle may sit.
	Margin = 16.0

	starDensity   = 25.0 // stars per 1000 cells of sky
	starSkyFrac   = 0.7  // stars occupy the upper part of the viewport
	twinkleRate   = 2.0  // radians per second
	cloudSkyFrac  = 0.45 // clouds occupy the upper part of the viewport
	cloudBaseSize = 8.0  // cloud width in cells at scale 1
	maxStep       = 0.25 // seconds; longer frames are integrated in pieces
	maxAdvance    = 5.0  // seconds; gaps beyond this (suspend, debugger) are dropped
)

// Viewport is the drawable area in cells.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the cell count.
func (v Viewport) Area() int {
	if v.Width <= 0 || v.Height <= 0 {
		return 0
	}
	return v.Width * v.Height
}

// Star is a fixed point whose brightness oscillates.
type Star struct {
	X, Y         float64
	Size         float64
	TwinklePhase float64
}

// Cloud drifts horizontally and wraps around the viewport.
type Cloud struct {
	X, Y    float64
	Scale   float64
	Speed   float64
	Opacity float64
}

// Width is the cloud's extent in cells.
func (c Cloud) Width() float64 {
	return cloudBaseSize * c.Scale
}

// Drop is a weather particle: a rain streak, snowflake or fog bank.
type Drop struct {
	X, Y   float64
	VX, VY float64
	Size   float64
}

// Field is the full particle state for one weather category and viewport.
type Field struct {
	Viewport Viewport
	Category catalog.Category
	Stars    []Star
	Clouds   []Cloud
	Drops    []Drop

	cloud catalog.CloudConfig
	drop  catalog.ParticleConfig
	rng   *rand.Rand
}

// Seed builds every pool for a category and viewport. A nil rng seeds from
// the clock.
func Seed(c catalog.Category, vp Viewport, rng *rand.Rand) *Field {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	f := &Field{Viewport: vp, rng: rng}
	f.seedStars()
	f.Reseed(c)
	return f
}

// Reseed rebuilds clouds and weather particles for a new category. The star
// field is kept because stars do not depend on weather.
func (f *Field) Reseed(c catalog.Category) {
	f.Category = c
	f.cloud = catalog.Clouds(c)
	f.drop = catalog.Particles(c)

	w, h := float64(f.Viewport.Width), float64(f.Viewport.Height)

	f.Clouds = make([]Cloud, 0, catalog.CloudCount(c, f.Viewport.Width))
	if f.Viewport.Area() > 0 {
		for i := 0; i < cap(f.Clouds); i++ {
			f.Clouds = append(f.Clouds, Cloud{
				X:       f.rng.Float64() * w,
				Y:       f.rng.Float64() * h * cloudSkyFrac,
				Scale:   0.6 + f.rng.Float64()*0.8,
				Speed:   f.cloud.Speed * f.jitter(0.4),
				Opacity: f.cloud.Opacity * f.jitter(0.15),
			})
		}
	}

	n := f.drop.Count(f.Viewport.Area())
	f.Drops = make([]Drop, n)
	for i := range f.Drops {
		f.Drops[i] = f.spawnDrop(f.rng.Float64()*w, f.rng.Float64()*h)
	}
}

func (f *Field) seedStars() {
	w, h := float64(f.Viewport.Width), float64(f.Viewport.Height)
	sky := int(float64(f.Viewport.Area()) * starSkyFrac)
	n := int(math.Round(starDensity * float64(sky) / 1000))

	f.Stars = make([]Star, n)
	for i := range f.Stars {
		f.Stars[i] = Star{
			X:            f.rng.Float64() * w,
			Y:            f.rng.Float64() * h * starSkyFrac,
			Size:         0.5 + f.rng.Float64()*1.5,
			TwinklePhase: f.rng.Float64() * 2 * math.Pi,
		}
	}
}

// jitter returns a multiplier in [1-spread, 1+spread].
func (f *Field) jitter(spread float64) float64 {
	return 1 + spread*(2*f.rng.Float64()-1)
}

func (f *Field) spawnDrop(x, y float64) Drop {
	return Drop{
		X:    x,
		Y:    y,
		VX:   f.drop.VX * f.jitter(f.drop.Jitter),
		VY:   f.drop.VY * f.jitter(f.drop.Jitter),
		Size: f.drop.Size * f.jitter(f.drop.Jitter),
	}
}

// Advance moves clouds and weather particles forward by dt and recycles
// anything that left the viewport. Population sizes never change.
func (f *Field) Advance(dt time.Duration) {
	remaining := math.Min(dt.Seconds(), maxAdvance)
	for remaining > 0 {
		step := math.Min(remaining, maxStep)
		f.step(step)
		remaining -= step
	}
}

func (f *Field) step(s float64) {
	w, h := float64(f.Viewport.Width), float64(f.Viewport.Height)
	if w <= 0 || h <= 0 {
		return
	}

	for i := range f.Clouds {
		c := &f.Clouds[i]
		c.X += c.Speed * s
		if c.X > w {
			c.X = -c.Width()
		} else if c.X < -c.Width() {
			c.X = w
		}
	}

	for i := range f.Drops {
		d := &f.Drops[i]
		d.X += d.VX * s
		d.Y += d.VY * s

		switch f.drop.Recycle {
		case catalog.EdgeRight:
			if d.X > w {
				*d = f.spawnDrop(-d.Size*f.rng.Float64(), f.rng.Float64()*h)
			}
		default:
			if d.Y > h {
				*d = f.spawnDrop(f.rng.Float64()*w, -f.rng.Float64())
				continue
			}
			// Slanted rain wraps sideways so it never drifts off for good.
			if d.X < 0 {
				d.X += w
			} else if d.X >= w {
				d.X -= w
			}
		}
	}
}

// Twinkle returns a star's opacity at clock seconds. The result depends only
// on the star and the clock so identical clock sequences give identical
// frames.
func Twinkle(s Star, clock float64) float64 {
	return 0.7 + 0.3*math.Sin(clock*twinkleRate+s.TwinklePhase)
}

// InBounds reports whether a point sits inside the viewport plus Margin.
func (v Viewport) InBounds(x, y float64) bool {
	return x >= -Margin && x <= float64(v.Width)+Margin &&
		y >= -Margin && y <= float64(v.Height)+Margin
}
