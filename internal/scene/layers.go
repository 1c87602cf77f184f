package scene

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/particles"
)

// Layer names, in draw order.
const (
	LayerSky       = "sky"
	LayerClouds    = "clouds"
	LayerStars     = "stars"
	LayerMoon      = "moon"
	LayerSun       = "sun"
	LayerParticles = "particles"
)

const (
	goldenTint   = "#ff6b47"
	daylightTint = "#ffd700"
	moonColor    = "#f4f1de"
	moonGlow     = "#c9d6ff"
	starColor    = "#ffffff"

	// Terminal cells are about twice as tall as wide.
	cellAspect = 2.0

	faintAlpha = 0.5
	glowAlpha  = 0.45
)

// Intensity is how high a body rides on its arc: 0 at the horizon, 1 at
// the apex.
func Intensity(phase float64) float64 {
	v := math.Sin(math.Pi * phase)
	if v < 0 {
		return 0
	}
	return v
}

// SunRays is the number of rays drawn around the sun.
func SunRays(phase float64) int {
	return 4 + int(math.Round(8*Intensity(phase)))
}

// GlowRadius is the halo radius in cells for the sun or moon.
func GlowRadius(phase float64) int {
	return 1 + int(math.Round(3*Intensity(phase)))
}

// SunTint is the sun's color: golden near the horizon, yellow otherwise.
func SunTint(phase float64) string {
	if phase < 0.2 || phase > 0.8 {
		return goldenTint
	}
	return daylightTint
}

var moonGlyphs = map[astro.LunarPhase]rune{
	astro.NewMoon:        '○',
	astro.WaxingCrescent: '☽',
	astro.FirstQuarter:   '◐',
	astro.WaxingGibbous:  '◕',
	astro.FullMoon:       '●',
	astro.WaningGibbous:  '◕',
	astro.LastQuarter:    '◑',
	astro.WaningCrescent: '☾',
}

// MoonGlyph returns the glyph for the moon's phase at t.
func MoonGlyph(t time.Time) rune {
	_, phase := astro.MoonPhase(t)
	if r, ok := moonGlyphs[phase]; ok {
		return r
	}
	return '●'
}

func drawSky(c *Canvas, g catalog.Gradient) {
	top, bottom := hex(g.Top), hex(g.Bottom)
	h := c.Height()
	for y := 0; y < h; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		row := top.BlendRgb(bottom, t).Clamped()
		for x := 0; x < c.Width(); x++ {
			c.SetBG(x, y, row)
		}
	}
}

func drawClouds(c *Canvas, f *particles.Field) {
	col := hex(catalog.Clouds(f.Category).Color)
	for _, cl := range f.Clouds {
		x0 := int(math.Floor(cl.X))
		y0 := int(math.Floor(cl.Y))
		w := int(math.Round(cl.Width()))
		if w < 2 {
			w = 2
		}
		// A narrow crown over a full-width base.
		for x := x0 + w/4; x < x0+w-w/4; x++ {
			c.BlendBG(x, y0, col, cl.Opacity*0.8)
		}
		for x := x0; x < x0+w; x++ {
			c.BlendBG(x, y0+1, col, cl.Opacity)
		}
	}
}

func starGlyph(size float64) rune {
	switch {
	case size > 1.6:
		return '✦'
	case size > 1.1:
		return '+'
	default:
		return '·'
	}
}

func drawStars(c *Canvas, f *particles.Field, clock float64) {
	col := hex(starColor)
	for _, s := range f.Stars {
		c.Put(int(s.X), int(s.Y), starGlyph(s.Size), col, particles.Twinkle(s, clock))
	}
}

// cellOf maps a fractional position to a cell.
func cellOf(c *Canvas, p astro.Position) (int, int) {
	x := int(math.Round(p.X * float64(c.Width()-1)))
	y := int(math.Round(p.Y * float64(c.Height()-1)))
	return x, y
}

// drawGlow blends a soft halo that fades with distance from the center.
func drawGlow(c *Canvas, cx, cy, radius int, col colorful.Color, alpha float64) {
	rx := int(math.Ceil(float64(radius) * cellAspect))
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			dx := float64(x-cx) / cellAspect
			dy := float64(y - cy)
			d := math.Hypot(dx, dy)
			if d > float64(radius) {
				continue
			}
			c.BlendBG(x, y, col, alpha*(1-d/float64(radius+1)))
		}
	}
}

func drawMoon(c *Canvas, p astro.Position, now time.Time) {
	cx, cy := cellOf(c, p)
	alpha := 1.0
	if p.Faint {
		alpha = faintAlpha
	}
	drawGlow(c, cx, cy, GlowRadius(p.Phase), hex(moonGlow), glowAlpha*0.6*alpha)
	c.Put(cx, cy, MoonGlyph(now), hex(moonColor), alpha)
}

func rayGlyph(angle float64) rune {
	// Fold to [0, π) since a ray and its opposite share a glyph.
	a := math.Mod(angle, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return '─'
	case a < 3*math.Pi/8:
		return '╲'
	case a < 5*math.Pi/8:
		return '│'
	default:
		return '╱'
	}
}

func drawSun(c *Canvas, p astro.Position) {
	cx, cy := cellOf(c, p)
	tint := hex(SunTint(p.Phase))
	glow := GlowRadius(p.Phase)

	drawGlow(c, cx, cy, glow, tint, glowAlpha)

	rays := SunRays(p.Phase)
	reach := float64(glow + 1)
	for i := 0; i < rays; i++ {
		a := 2 * math.Pi * float64(i) / float64(rays)
		x := cx + int(math.Round(math.Cos(a)*reach*cellAspect))
		y := cy + int(math.Round(math.Sin(a)*reach))
		c.Put(x, y, rayGlyph(a), tint, 0.9)
	}
	c.Put(cx, cy, '●', tint, 1)
}

func drawParticles(c *Canvas, f *particles.Field) {
	cfg := catalog.Particles(f.Category)
	if cfg.Shape == catalog.ShapeNone {
		return
	}
	col := hex(cfg.Color)

	for _, d := range f.Drops {
		x, y := int(math.Floor(d.X)), int(math.Floor(d.Y))
		switch cfg.Shape {
		case catalog.ShapeStroke:
			r := '│'
			if d.VX < -1 {
				r = '╱'
			} else if d.VX > 1 {
				r = '╲'
			}
			c.Put(x, y, r, col, cfg.Opacity)
		case catalog.ShapeDot:
			r := '·'
			if d.Size >= 2 {
				r = '*'
			}
			c.Put(x, y, r, col, cfg.Opacity)
		case catalog.ShapeBlob:
			n := int(math.Round(d.Size))
			for dx := 0; dx < n; dx++ {
				c.BlendBG(x+dx, y, col, cfg.Opacity)
			}
		}
	}
}
