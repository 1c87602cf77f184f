// Package telemetry measures render performance over a rolling window of
// frames and can export the aggregates as CSV.
package telemetry

import (
	"sync"
	"time"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/scene"
)

// DefaultWindow is one second of frames at the default frame rate.
const DefaultWindow = scene.DefaultFPS

type frameSample struct {
	render   time.Duration
	interval time.Duration
}

// Collector tracks frame timing over a rolling window. It implements
// scene.FrameObserver.
type Collector struct {
	mu          sync.Mutex
	windowSize  int
	samples     []frameSample
	writeIndex  int
	sampleCount int
	frames      int64
	lastAt      time.Time
	last        scene.FrameStats

	sink  Sink
	since int
}

// Sink receives aggregated stats once per full window.
type Sink interface {
	WritePerf(stats PerfStats) error
}

// NewCollector creates a collector averaging over windowSize frames.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = DefaultWindow
	}
	return &Collector{
		windowSize: windowSize,
		samples:    make([]frameSample, windowSize),
	}
}

// SetSink makes the collector emit stats to s after every windowSize frames.
func (c *Collector) SetSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
	c.since = 0
}

// ObserveFrame records one drawn frame.
func (c *Collector) ObserveFrame(f scene.FrameStats) {
	c.mu.Lock()

	var interval time.Duration
	if !c.lastAt.IsZero() && f.At.After(c.lastAt) {
		interval = f.At.Sub(c.lastAt)
	}
	c.lastAt = f.At
	c.last = f
	c.frames++

	c.samples[c.writeIndex] = frameSample{render: f.Render, interval: interval}
	c.writeIndex = (c.writeIndex + 1) % c.windowSize
	if c.sampleCount < c.windowSize {
		c.sampleCount++
	}

	var emit Sink
	var stats PerfStats
	if c.sink != nil {
		c.since++
		if c.since >= c.windowSize {
			c.since = 0
			emit = c.sink
			stats = c.statsLocked()
		}
	}
	c.mu.Unlock()

	if emit != nil {
		_ = emit.WritePerf(stats)
	}
}

// PerfStats holds aggregated frame statistics.
type PerfStats struct {
	At        time.Time
	Frames    int64
	Window    int
	AvgRender time.Duration
	MinRender time.Duration
	MaxRender time.Duration
	FPS       float64
	Weather   catalog.Category
	TimeOfDay astro.TimeOfDay
	Particles int
}

// Stats computes aggregates over the current window.
func (c *Collector) Stats() PerfStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

func (c *Collector) statsLocked() PerfStats {
	stats := PerfStats{
		At:        c.last.At,
		Frames:    c.frames,
		Window:    c.sampleCount,
		Weather:   c.last.Weather,
		TimeOfDay: c.last.TimeOfDay,
		Particles: c.last.Stars + c.last.Clouds + c.last.Drops,
	}
	if c.sampleCount == 0 {
		return stats
	}

	var totalRender, totalInterval time.Duration
	var intervals int
	for i := 0; i < c.sampleCount; i++ {
		s := c.samples[i]
		totalRender += s.render
		if i == 0 || s.render < stats.MinRender {
			stats.MinRender = s.render
		}
		if s.render > stats.MaxRender {
			stats.MaxRender = s.render
		}
		if s.interval > 0 {
			totalInterval += s.interval
			intervals++
		}
	}
	stats.AvgRender = totalRender / time.Duration(c.sampleCount)

	if intervals > 0 {
		avg := totalInterval / time.Duration(intervals)
		if avg > 0 {
			stats.FPS = float64(time.Second) / float64(avg)
		}
	}
	return stats
}

// PerfStatsCSV is a flat row for CSV export.
type PerfStatsCSV struct {
	Timestamp   string  `csv:"timestamp"`
	Frames      int64   `csv:"frames"`
	Window      int     `csv:"window"`
	AvgRenderUS int64   `csv:"avg_render_us"`
	MinRenderUS int64   `csv:"min_render_us"`
	MaxRenderUS int64   `csv:"max_render_us"`
	FPS         float64 `csv:"fps"`
	Weather     string  `csv:"weather"`
	TimeOfDay   string  `csv:"time_of_day"`
	Particles   int     `csv:"particles"`
}

// ToCSV flattens s.
func (s PerfStats) ToCSV() PerfStatsCSV {
	return PerfStatsCSV{
		Timestamp:   s.At.Format(time.RFC3339Nano),
		Frames:      s.Frames,
		Window:      s.Window,
		AvgRenderUS: s.AvgRender.Microseconds(),
		MinRenderUS: s.MinRender.Microseconds(),
		MaxRenderUS: s.MaxRender.Microseconds(),
		FPS:         s.FPS,
		Weather:     string(s.Weather),
		TimeOfDay:   string(s.TimeOfDay),
		Particles:   s.Particles,
	}
}
