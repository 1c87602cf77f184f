// Package catalog is the static weather-condition table: sky gradients,
// cloud density and particle kinematics per weather category, plus the
// provider condition-code mappings that feed it.
package catalog

import (
	"fmt"
	"strings"

	"github.com/litescript/ls-skyline/internal/astro"
)

// Category is the weather class that drives palette and particle rules.
type Category string

const (
	Clear  Category = "clear"
	Cloudy Category = "cloudy"
	Rainy  Category = "rainy"
	Snowy  Category = "snowy"
	Stormy Category = "stormy"
	Foggy  Category = "foggy"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Clear, Cloudy, Rainy, Snowy, Stormy, Foggy}
}

// ParseCategory parses a category name. "sunny" is accepted for clear.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clear", "sunny":
		return Clear, nil
	case "cloudy":
		return Cloudy, nil
	case "rainy":
		return Rainy, nil
	case "snowy":
		return Snowy, nil
	case "stormy":
		return Stormy, nil
	case "foggy":
		return Foggy, nil
	default:
		return "", fmt.Errorf("unknown weather category %q", s)
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := cloudTable[c]
	return ok
}

// Next cycles through Categories.
func (c Category) Next() Category {
	all := Categories()
	for i, v := range all {
		if v == c {
			return all[(i+1)%len(all)]
		}
	}
	return Clear
}

// Prev cycles backwards through Categories.
func (c Category) Prev() Category {
	all := Categories()
	for i, v := range all {
		if v == c {
			return all[(i+len(all)-1)%len(all)]
		}
	}
	return Clear
}

// Gradient is a top-to-bottom sky color pair as hex strings.
type Gradient struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

var stormGradient = Gradient{Top: "#2c2c3e", Bottom: "#4a4a5e"}

var skyTable = map[astro.TimeOfDay]Gradient{
	astro.Dawn:      {Top: "#ff6b6b", Bottom: "#ffe66d"},
	astro.Morning:   {Top: "#87ceeb", Bottom: "#e0f6ff"},
	astro.Afternoon: {Top: "#4a90d9", Bottom: "#87cefa"},
	astro.Evening:   {Top: "#ff4500", Bottom: "#ffb347"},
	astro.Night:     {Top: "#191970", Bottom: "#000080"},
}

// SkyColors returns the background gradient. Stormy weather overrides the
// time of day; every other category is keyed by time of day alone.
func SkyColors(c Category, tod astro.TimeOfDay) Gradient {
	if c == Stormy {
		return stormGradient
	}
	if g, ok := skyTable[tod]; ok {
		return g
	}
	return skyTable[astro.Afternoon]
}
