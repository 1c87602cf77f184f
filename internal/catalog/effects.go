package catalog

import "math"

// cloudColumnsPerCloud sets the baseline cloud density: one clear-sky cloud
// per this many terminal columns.
const cloudColumnsPerCloud = 40

// CloudConfig describes the cloud layer for a category. Counts are the
// baseline for the viewport width times Multiplier.
type CloudConfig struct {
	Multiplier int     `json:"multiplier"`
	Opacity    float64 `json:"opacity"`
	Speed      float64 `json:"speed"` // cells per second
	Color      string  `json:"color"`
}

var cloudTable = map[Category]CloudConfig{
	Clear:  {Multiplier: 1, Opacity: 0.6, Speed: 1.5, Color: "#f5f5f5"},
	Cloudy: {Multiplier: 4, Opacity: 0.8, Speed: 1.0, Color: "#e6e6e6"},
	Rainy:  {Multiplier: 5, Opacity: 0.75, Speed: 2.0, Color: "#9aa5b1"},
	Snowy:  {Multiplier: 4, Opacity: 0.7, Speed: 0.8, Color: "#e8eef2"},
	Foggy:  {Multiplier: 3, Opacity: 0.5, Speed: 0.4, Color: "#cccccc"},
	Stormy: {Multiplier: 10, Opacity: 0.9, Speed: 3.5, Color: "#666666"},
}

// Clouds returns the cloud configuration for c. Unknown categories get clear.
func Clouds(c Category) CloudConfig {
	if cfg, ok := cloudTable[c]; ok {
		return cfg
	}
	return cloudTable[Clear]
}

// BaseCloudCount is the clear-sky cloud count for a viewport width.
func BaseCloudCount(width int) int {
	n := width / cloudColumnsPerCloud
	if n < 1 {
		n = 1
	}
	return n
}

// CloudCount is the number of clouds for c across a viewport width.
func CloudCount(c Category, width int) int {
	return BaseCloudCount(width) * Clouds(c).Multiplier
}

// Shape is how a weather particle is drawn.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeStroke
	ShapeDot
	ShapeBlob
)

func (s Shape) String() string {
	switch s {
	case ShapeStroke:
		return "stroke"
	case ShapeDot:
		return "dot"
	case ShapeBlob:
		return "blob"
	default:
		return "none"
	}
}

// Edge is the viewport edge a particle leaves through before it is recycled.
type Edge int

const (
	EdgeBottom Edge = iota
	EdgeRight
)

// ParticleConfig describes the weather-particle population for a category.
// Velocities are in cells per second; Jitter is the fractional spread
// applied to speed and size when a particle is spawned.
type ParticleConfig struct {
	Density float64 `json:"density"` // particles per 1000 cells
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Jitter  float64 `json:"jitter"`
	Size    float64 `json:"size"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Shape   Shape   `json:"shape"`
	Recycle Edge    `json:"recycle"`
}

var particleTable = map[Category]ParticleConfig{
	Clear:  {},
	Cloudy: {},
	Rainy: {
		Density: 30, VY: 18, Jitter: 0.25, Size: 0.5,
		Color: "#4a90e2", Opacity: 0.8, Shape: ShapeStroke, Recycle: EdgeBottom,
	},
	Stormy: {
		Density: 55, VX: -4, VY: 30, Jitter: 0.3, Size: 0.8,
		Color: "#6a5acd", Opacity: 0.9, Shape: ShapeStroke, Recycle: EdgeBottom,
	},
	Snowy: {
		Density: 20, VX: 0.5, VY: 3, Jitter: 0.4, Size: 2.0,
		Color: "#ffffff", Opacity: 0.9, Shape: ShapeDot, Recycle: EdgeBottom,
	},
	Foggy: {
		Density: 6, VX: 2, VY: 0, Jitter: 0.5, Size: 4.0,
		Color: "#cccccc", Opacity: 0.3, Shape: ShapeBlob, Recycle: EdgeRight,
	},
}

// Particles returns the weather-particle configuration for c.
func Particles(c Category) ParticleConfig {
	return particleTable[c]
}

// Count is the particle population for a viewport area in cells. Any
// category with a non-zero density gets at least one particle.
func (p ParticleConfig) Count(area int) int {
	if p.Density <= 0 || area <= 0 {
		return 0
	}
	n := int(math.Round(p.Density * float64(area) / 1000))
	if n < 1 {
		n = 1
	}
	return n
}
