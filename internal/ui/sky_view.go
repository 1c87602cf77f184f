package ui

import (
	"time"

	"github.com/muesli/termenv"

	"github.com/litescript/ls-skyline/internal/scene"
	"github.com/litescript/ls-skyline/internal/theme"
)

// SkyViewModel shows the animated scene, or the static fallback when the
// terminal cannot carry the animation.
type SkyViewModel struct {
	renderer *scene.Renderer
	profile  termenv.Profile
	now      func() time.Time

	width    int
	height   int
	static   bool
	snapshot theme.Snapshot
	lastAt   time.Time
}

// NewSkyViewModel creates a sky view drawing state from src at fps.
func NewSkyViewModel(src scene.StateSource, fps int, opts Options) SkyViewModel {
	ropts := []scene.Option{scene.WithFPS(fps)}
	if opts.Seed != 0 {
		ropts = append(ropts, scene.WithSeed(opts.Seed))
	}
	if opts.Observer != nil {
		ropts = append(ropts, scene.WithFrameObserver(opts.Observer))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ropts = append(ropts, scene.WithClock(now))

	return SkyViewModel{
		renderer: scene.NewRenderer(src, ropts...),
		profile:  opts.Profile,
		now:      now,
		snapshot: src.Snapshot(),
	}
}

// SetSize updates the viewport size.
func (m SkyViewModel) SetSize(width, height int) SkyViewModel {
	m.width = width
	m.height = height
	m.static = scene.UseStatic(m.profile, width, height)
	if !m.static {
		m.renderer.Resize(width, height)
	}
	return m
}

// UpdateData updates with a new theme snapshot.
func (m SkyViewModel) UpdateData(snapshot theme.Snapshot) SkyViewModel {
	m.snapshot = snapshot
	return m
}

// Frame advances the animation to now.
func (m SkyViewModel) Frame(now time.Time) SkyViewModel {
	m.lastAt = now
	if !m.static {
		m.renderer.RenderFrame(now)
	}
	return m
}

// Static reports whether the fallback is showing.
func (m SkyViewModel) Static() bool {
	return m.static
}

// View renders the sky.
func (m SkyViewModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if m.static {
		at := m.lastAt
		if at.IsZero() {
			at = m.now()
		}
		c := scene.Static(m.snapshot, at, m.width, m.height)
		if m.profile == termenv.Ascii {
			return c.Plain()
		}
		return c.String()
	}
	if m.renderer.Viewport().Area() == 0 {
		return ""
	}
	return m.renderer.View()
}
