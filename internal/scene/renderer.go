// Package scene composes the animated sky: gradient, clouds, stars, sun,
// moon and weather particles, drawn into a terminal cell canvas.
package scene

import (
	"math/rand"
	"time"

	"github.com/muesli/termenv"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/particles"
	"github.com/litescript/ls-skyline/internal/theme"
)

const (
	// PositionInterval is how often continuous positions are recomputed.
	PositionInterval = 2 * time.Second

	// ResizeDebounce delays reseeding until the terminal stops resizing.
	ResizeDebounce = 250 * time.Millisecond

	// Below this the animated scene is replaced by the static fallback.
	MinWidth  = 16
	MinHeight = 6
)

// StateSource supplies the theme state for each frame.
type StateSource interface {
	Snapshot() theme.Snapshot
}

// FrameStats describes one drawn frame.
type FrameStats struct {
	At        time.Time
	Render    time.Duration
	Weather   catalog.Category
	TimeOfDay astro.TimeOfDay
	Stars     int
	Clouds    int
	Drops     int
}

// FrameObserver receives stats for every drawn frame.
type FrameObserver interface {
	ObserveFrame(FrameStats)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFPS sets the target frame rate.
func WithFPS(fps int) Option {
	return func(r *Renderer) { r.governor = NewGovernor(fps) }
}

// WithSeed makes particle placement reproducible.
func WithSeed(seed int64) Option {
	return func(r *Renderer) { r.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides time.Now for resize debouncing.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithFrameObserver reports every drawn frame to o.
func WithFrameObserver(o FrameObserver) Option {
	return func(r *Renderer) { r.observer = o }
}

type positionKey struct {
	mode   theme.Mode
	tod    astro.TimeOfDay
	window string
}

// Renderer owns the particle field and canvas and draws one frame per call
// to RenderFrame. It is not safe for concurrent use.
type Renderer struct {
	src      StateSource
	governor *Governor
	rng      *rand.Rand
	now      func() time.Time
	observer FrameObserver

	viewport     particles.Viewport
	pending      particles.Viewport
	resizeAt     time.Time
	resizePend   bool
	field        *particles.Field
	canvas       *Canvas
	lastFrame    time.Time
	clock        float64
	positions    astro.Positions
	positionsAt  time.Time
	positionsKey positionKey
	order        []string
}

// NewRenderer creates a renderer reading state from src.
func NewRenderer(src StateSource, opts ...Option) *Renderer {
	r := &Renderer{
		src:      src,
		governor: NewGovernor(DefaultFPS),
		now:      time.Now,
		canvas:   NewCanvas(0, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

// Resize schedules a new viewport. The first size applies at once; later
// sizes apply once ResizeDebounce has passed without another resize.
func (r *Renderer) Resize(width, height int) {
	vp := particles.Viewport{Width: width, Height: height}
	if r.viewport.Area() == 0 {
		r.applyViewport(vp)
		return
	}
	if vp == r.viewport {
		r.resizePend = false
		return
	}
	r.pending = vp
	r.resizeAt = r.now()
	r.resizePend = true
}

func (r *Renderer) applyViewport(vp particles.Viewport) {
	r.viewport = vp
	r.canvas = NewCanvas(vp.Width, vp.Height)
	r.field = nil
	r.resizePend = false
	r.governor.Reset()
}

// Viewport returns the size currently drawn.
func (r *Renderer) Viewport() particles.Viewport {
	return r.viewport
}

// RenderFrame draws a frame for now unless the governor skips it. It
// reports whether a frame was drawn.
func (r *Renderer) RenderFrame(now time.Time) bool {
	if r.resizePend && now.Sub(r.resizeAt) >= ResizeDebounce {
		r.applyViewport(r.pending)
	}
	if r.viewport.Area() == 0 {
		return false
	}
	if !r.governor.Ready(now) {
		return false
	}
	start := time.Now()

	snap := r.src.Snapshot()
	r.syncField(snap.Weather)

	var dt time.Duration
	if !r.lastFrame.IsZero() && now.After(r.lastFrame) {
		dt = now.Sub(r.lastFrame)
	}
	r.lastFrame = now
	r.field.Advance(dt)
	r.clock += dt.Seconds()

	pos := r.updatePositions(snap, now)
	r.draw(snap.Weather, pos, now)

	if r.observer != nil {
		r.observer.ObserveFrame(FrameStats{
			At:        now,
			Render:    time.Since(start),
			Weather:   snap.Weather,
			TimeOfDay: pos.TimeOfDay,
			Stars:     len(r.field.Stars),
			Clouds:    len(r.field.Clouds),
			Drops:     len(r.field.Drops),
		})
	}
	return true
}

// syncField seeds on first use or after a resize and reseeds weather pools
// when the category changes.
func (r *Renderer) syncField(c catalog.Category) {
	switch {
	case r.field == nil:
		r.field = particles.Seed(c, r.viewport, r.rng)
	case r.field.Category != c:
		r.field.Reseed(c)
	}
}

func (r *Renderer) updatePositions(snap theme.Snapshot, now time.Time) astro.Positions {
	key := positionKey{mode: snap.Mode}
	if snap.Smart() {
		key.window = snap.Window.Date + snap.Window.Source
	} else {
		key.tod = snap.Selection.TimeOfDay
	}

	stale := key != r.positionsKey || r.positionsAt.IsZero()
	if snap.Smart() && now.Sub(r.positionsAt) >= PositionInterval {
		stale = true
	}
	if stale {
		r.positions = snap.Positions(now)
		r.positionsAt = now
		r.positionsKey = key
	}
	return r.positions
}

func (r *Renderer) draw(weather catalog.Category, pos astro.Positions, now time.Time) {
	c := r.canvas
	c.Clear()
	r.order = r.order[:0]

	drawSky(c, catalog.SkyColors(weather, pos.TimeOfDay))
	r.order = append(r.order, LayerSky)

	drawClouds(c, r.field)
	r.order = append(r.order, LayerClouds)

	if pos.StarsVisible {
		drawStars(c, r.field, r.clock)
		r.order = append(r.order, LayerStars)
	}
	if pos.Moon.Visible {
		drawMoon(c, pos.Moon, now)
		r.order = append(r.order, LayerMoon)
	}
	if pos.Sun.Visible {
		drawSun(c, pos.Sun)
		r.order = append(r.order, LayerSun)
	}

	drawParticles(c, r.field)
	r.order = append(r.order, LayerParticles)
}

// Canvas returns the last drawn frame.
func (r *Renderer) Canvas() *Canvas {
	return r.canvas
}

// View renders the last frame as a string.
func (r *Renderer) View() string {
	return r.canvas.String()
}

// DrawOrder lists the layers drawn in the last frame.
func (r *Renderer) DrawOrder() []string {
	return append([]string(nil), r.order...)
}

// Positions returns the positions used by the last frame.
func (r *Renderer) Positions() astro.Positions {
	return r.positions
}

// Field exposes the particle field, or nil before the first frame.
func (r *Renderer) Field() *particles.Field {
	return r.field
}

// FPSFor picks the frame rate for a terminal. Low-power mode or a terminal
// without true color runs at LowPowerFPS.
func FPSFor(profile termenv.Profile, lowPower bool) int {
	if lowPower || profile != termenv.TrueColor {
		return LowPowerFPS
	}
	return DefaultFPS
}

// UseStatic reports whether the static fallback should replace animation.
func UseStatic(profile termenv.Profile, width, height int) bool {
	return profile == termenv.Ascii || width < MinWidth || height < MinHeight
}
