package scene

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Cell is one terminal character with its colors.
type Cell struct {
	Rune rune
	FG   colorful.Color
	BG   colorful.Color
	Set  bool
}

// Canvas is a fixed-size grid of cells, row-major.
type Canvas struct {
	width  int
	height int
	cells  []Cell
}

// NewCanvas allocates a blank canvas.
func NewCanvas(width, height int) *Canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c := &Canvas{width: width, height: height, cells: make([]Cell, width*height)}
	c.Clear()
	return c
}

// Width returns the canvas width in cells.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in cells.
func (c *Canvas) Height() int { return c.height }

// Clear resets every cell to an unset blank.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' '}
	}
}

// At returns the cell at x,y.
func (c *Canvas) At(x, y int) (Cell, bool) {
	if !c.in(x, y) {
		return Cell{}, false
	}
	return c.cells[y*c.width+x], true
}

func (c *Canvas) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// SetBG paints a cell's background and clears its glyph.
func (c *Canvas) SetBG(x, y int, bg colorful.Color) {
	if !c.in(x, y) {
		return
	}
	c.cells[y*c.width+x] = Cell{Rune: ' ', BG: bg, FG: bg, Set: true}
}

// BlendBG mixes col into the background at x,y with weight alpha.
func (c *Canvas) BlendBG(x, y int, col colorful.Color, alpha float64) {
	if !c.in(x, y) || alpha <= 0 {
		return
	}
	cell := &c.cells[y*c.width+x]
	cell.BG = cell.BG.BlendRgb(col, clampAlpha(alpha)).Clamped()
	cell.Set = true
}

// Put draws r at x,y. The glyph color is mixed toward the background by
// 1-alpha so faint glyphs fade into the sky.
func (c *Canvas) Put(x, y int, r rune, fg colorful.Color, alpha float64) {
	if !c.in(x, y) || alpha <= 0 {
		return
	}
	cell := &c.cells[y*c.width+x]
	cell.Rune = r
	cell.FG = cell.BG.BlendRgb(fg, clampAlpha(alpha)).Clamped()
	cell.Set = true
}

func clampAlpha(a float64) float64 {
	if a > 1 {
		return 1
	}
	return a
}

// String renders the canvas with ANSI colors. Adjacent cells with the same
// colors share one styled run.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		row := c.cells[y*c.width : (y+1)*c.width]
		for x := 0; x < len(row); {
			start := row[x]
			fg, bg := start.FG.Hex(), start.BG.Hex()
			var run strings.Builder
			for x < len(row) && row[x].Set == start.Set &&
				row[x].FG.Hex() == fg && row[x].BG.Hex() == bg {
				run.WriteRune(row[x].Rune)
				x++
			}
			if !start.Set {
				b.WriteString(run.String())
				continue
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fg)).
				Background(lipgloss.Color(bg))
			b.WriteString(style.Render(run.String()))
		}
		if y < c.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Plain returns the glyphs only, one line per row.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			b.WriteRune(c.cells[y*c.width+x].Rune)
		}
		if y < c.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// hex parses a catalog color, falling back to black.
func hex(s string) colorful.Color {
	col, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}
	}
	return col
}
