// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/scene"
	"github.com/litescript/ls-skyline/internal/theme"
	"github.com/litescript/ls-skyline/internal/version"
)

// Rows taken by the header and footer around the sky.
const (
	headerHeight = 2
	footerHeight = 1
)

// Msg types for Bubble Tea
type (
	// FrameMsg drives the animation; one arrives per frame interval.
	FrameMsg time.Time

	// DataUpdateMsg signals the theme state changed.
	DataUpdateMsg struct {
		Snapshot theme.Snapshot
	}

	// modeChangedMsg reports the outcome of a smart-mode toggle.
	modeChangedMsg struct {
		err error
	}
)

// Controller is the theme state the UI reads and drives.
// *theme.Manager satisfies it.
type Controller interface {
	Snapshot() theme.Snapshot
	SetWeather(c catalog.Category) error
	SetTimeOfDay(t astro.TimeOfDay) error
	ToggleSmart(ctx context.Context) error
	Refresh() bool
}

// Options tune the model for the terminal it runs in.
type Options struct {
	Profile  termenv.Profile
	FPS      int
	LowPower bool
	Seed     int64
	Observer scene.FrameObserver
	Now      func() time.Time
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	ctrl Controller
	ctx  context.Context
	now  func() time.Time

	// UI state
	width     int
	height    int
	ready     bool
	statusMsg string
	animTick  int
	interval  time.Duration

	// Sub-models
	sky SkyViewModel

	// Data snapshot (updated on DataUpdateMsg)
	snapshot theme.Snapshot
}

// New creates a new root UI model. ctx bounds background work started from
// the UI, such as smart-mode resolves.
func New(ctx context.Context, ctrl Controller, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	fps := scene.FPSFor(opts.Profile, opts.LowPower)
	if opts.FPS > 0 && opts.FPS < fps {
		fps = opts.FPS
	}

	return Model{
		ctrl:     ctrl,
		ctx:      ctx,
		now:      opts.Now,
		interval: time.Second / time.Duration(fps),
		sky:      NewSkyViewModel(ctrl, fps, opts),
		snapshot: ctrl.Snapshot(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return frameCmd(m.interval)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "w", "W", "t", "T":
			m.cycleSelection(msg.String())

		case "s":
			m.statusMsg = ""
			cmds = append(cmds, m.toggleSmart())

		case "r":
			if m.ctrl.Refresh() {
				m.statusMsg = "Refreshing..."
			} else {
				m.statusMsg = "Refresh is only available in smart mode"
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.sky = m.sky.SetSize(msg.Width, m.skyHeight())

	case FrameMsg:
		cmds = append(cmds, frameCmd(m.interval))
		m.animTick++
		m.sky = m.sky.Frame(time.Time(msg))

	case DataUpdateMsg:
		// Updates are delivered asynchronously and may arrive out of order.
		if msg.Snapshot.Version < m.snapshot.Version {
			break
		}
		m.snapshot = msg.Snapshot
		m.sky = m.sky.UpdateData(m.snapshot)
		if !m.snapshot.Loading && m.statusMsg == "Refreshing..." {
			m.statusMsg = ""
		}

	case modeChangedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Smart mode unavailable: %v", msg.err)
		}
		m.snapshot = m.ctrl.Snapshot()
		m.sky = m.sky.UpdateData(m.snapshot)
	}

	return m, tea.Batch(cmds...)
}

// cycleSelection steps the manual weather or time of day. Lower case
// steps forward, upper case back.
func (m *Model) cycleSelection(key string) {
	if m.snapshot.Smart() {
		m.statusMsg = "Manual controls are off in smart mode (s to switch)"
		return
	}

	sel := m.snapshot.Selection
	var err error
	switch key {
	case "w":
		err = m.ctrl.SetWeather(sel.Weather.Next())
	case "W":
		err = m.ctrl.SetWeather(sel.Weather.Prev())
	case "t":
		err = m.ctrl.SetTimeOfDay(sel.TimeOfDay.Next())
	case "T":
		err = m.ctrl.SetTimeOfDay(sel.TimeOfDay.Prev())
	}
	if err != nil {
		m.statusMsg = err.Error()
		return
	}
	m.statusMsg = ""
	m.snapshot = m.ctrl.Snapshot()
	m.sky = m.sky.UpdateData(m.snapshot)
}

func (m Model) toggleSmart() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return modeChangedMsg{err: ctrl.ToggleSmart(ctx)}
	}
}

func (m Model) skyHeight() int {
	h := m.height - headerHeight - footerHeight
	if h < 0 {
		return 0
	}
	return h
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.renderHeader() + "\n" + m.sky.View() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	now := m.now()
	tod := m.snapshot.TimeOfDay(now)
	pal := catalog.PaletteFor(m.snapshot.Weather, tod)
	grad := catalog.SkyColors(m.snapshot.Weather, tod)

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Muted))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Accent)).Bold(true)

	title := gradientText("ls-skyline", grad.Top, pal.Accent)
	parts := []string{
		accentStyle.Render(strings.ToUpper(string(m.snapshot.Mode))),
		dimStyle.Render(pal.Label),
	}
	if m.snapshot.Smart() {
		if m.snapshot.Location != nil {
			parts = append(parts, dimStyle.Render(m.snapshot.Location.Label()))
		}
		if w := m.snapshot.Window; !w.IsZero() {
			parts = append(parts, dimStyle.Render(fmt.Sprintf("↑%s ↓%s",
				w.Sunrise.Format("15:04"), w.Sunset.Format("15:04"))))
		}
	}

	line := "  " + title + dimStyle.Render(" v"+version.Version) + "  " + strings.Join(parts, dimStyle.Render(" · "))
	return "\n" + line
}

// gradientText colors each rune along a blend from one hex color to another.
func gradientText(text, from, to string) string {
	a, errA := colorful.Hex(from)
	b, errB := colorful.Hex(to)
	if errA != nil || errB != nil {
		return text
	}

	runes := []rune(text)
	var sb strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		c := a.BlendLab(b, t).Clamped()
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Bold(true).Render(string(r)))
	}
	return sb.String()
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Runes on either side of the shimmer highlight that pick up some shine.
const shimmerWidth = 6

func (m Model) renderFooter() string {
	pal := catalog.PaletteFor(m.snapshot.Weather, m.snapshot.TimeOfDay(m.now()))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A727"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(pal.Accent))

	// Spinner steps every third frame.
	spinner := spinnerFrames[(m.animTick/3)%len(spinnerFrames)]

	var status string
	switch {
	case m.snapshot.LastError != "":
		status = errorStyle.Render("ERROR: " + m.snapshot.LastError)
	case m.snapshot.ConfigError != "":
		status = warnStyle.Render("CONFIG: " + m.snapshot.ConfigError)
	case m.snapshot.Loading:
		status = accentStyle.Render(spinner) + " " + shimmerText("Reading the sky...", pal.Muted, pal.Accent, m.animTick)
	case m.statusMsg != "":
		status = dimStyle.Render(m.statusMsg)
	case m.snapshot.Smart() && !m.snapshot.LastRefresh.IsZero():
		status = dimStyle.Render("updated " + m.snapshot.LastRefresh.Format("15:04"))
	}

	var help string
	if m.snapshot.Smart() {
		help = dimStyle.Render("s: manual | r: refresh | q: quit")
	} else {
		help = dimStyle.Render("w/W: weather | t/T: time | s: smart | q: quit")
	}

	if status == "" {
		return "  " + help
	}
	return "  " + status + "  " + dimStyle.Render("|") + "  " + help
}

// shimmerText sweeps a shine across text, blending each rune from base
// toward shine by its distance to the moving highlight.
func shimmerText(text, base, shine string, tick int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	b, errB := colorful.Hex(base)
	h, errH := colorful.Hex(shine)
	if errB != nil || errH != nil {
		return text
	}

	center := (tick/2)%(len(runes)+8) - 4
	var sb strings.Builder
	for i, r := range runes {
		d := i - center
		if d < 0 {
			d = -d
		}
		w := 1 - float64(d)/shimmerWidth
		if w < 0 {
			w = 0
		}
		c := b.BlendLab(h, w).Clamped()
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return sb.String()
}

func frameCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}
