package scene

import (
	"fmt"
	"time"

	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/theme"
)

// Static draws a non-animated scene: the sky gradient and a caption naming
// the weather and time of day. It serves terminals without color and
// viewports too small for the full scene.
func Static(snap theme.Snapshot, now time.Time, width, height int) *Canvas {
	c := NewCanvas(width, height)
	if width <= 0 || height <= 0 {
		return c
	}
	tod := snap.TimeOfDay(now)
	drawSky(c, catalog.SkyColors(snap.Weather, tod))

	pal := catalog.PaletteFor(snap.Weather, tod)
	label := pal.Label
	if label == "" {
		label = fmt.Sprintf("%s %s", snap.Weather, tod)
	}
	caption := []rune(label)
	if len(caption) > width {
		caption = caption[:width]
	}
	fg := hex(pal.Text)
	x0 := (width - len(caption)) / 2
	y := height / 2
	for i, r := range caption {
		c.Put(x0+i, y, r, fg, 1)
	}
	return c
}
