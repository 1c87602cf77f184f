package catalog

import "github.com/litescript/ls-skyline/internal/astro"

// Palette is the chrome styling for one weather and time-of-day pair.
// Every combination has an entry; no field is optional.
type Palette struct {
	Accent string `json:"accent"`
	Text   string `json:"text"`
	Muted  string `json:"muted"`
	Label  string `json:"label"`
}

type paletteKey struct {
	c   Category
	tod astro.TimeOfDay
}

var paletteTable = map[paletteKey]Palette{
	{Clear, astro.Dawn}:      {Accent: "#ff9a8b", Text: "#fff4e6", Muted: "#a8e6cf", Label: "Clear dawn"},
	{Clear, astro.Morning}:   {Accent: "#87ceeb", Text: "#ffffff", Muted: "#98fb98", Label: "Clear morning"},
	{Clear, astro.Afternoon}: {Accent: "#ffd700", Text: "#fffbea", Muted: "#87cefa", Label: "Clear afternoon"},
	{Clear, astro.Evening}:   {Accent: "#ff7f50", Text: "#fff0f5", Muted: "#dda0dd", Label: "Clear evening"},
	{Clear, astro.Night}:     {Accent: "#9370db", Text: "#e6e6fa", Muted: "#4b0082", Label: "Clear night"},

	{Cloudy, astro.Dawn}:      {Accent: "#d3a29b", Text: "#f5f0ee", Muted: "#b0a8b9", Label: "Cloudy dawn"},
	{Cloudy, astro.Morning}:   {Accent: "#b0c4de", Text: "#f8f8ff", Muted: "#a9a9a9", Label: "Cloudy morning"},
	{Cloudy, astro.Afternoon}: {Accent: "#c0c0c0", Text: "#f5f5f5", Muted: "#8c9aa8", Label: "Cloudy afternoon"},
	{Cloudy, astro.Evening}:   {Accent: "#bc8f8f", Text: "#f0e6e6", Muted: "#7d6e83", Label: "Cloudy evening"},
	{Cloudy, astro.Night}:     {Accent: "#708090", Text: "#dcdcdc", Muted: "#2f4f4f", Label: "Cloudy night"},

	{Rainy, astro.Dawn}:      {Accent: "#7b8fa1", Text: "#e8eef3", Muted: "#5d6d7e", Label: "Rainy dawn"},
	{Rainy, astro.Morning}:   {Accent: "#4a90e2", Text: "#eaf2fb", Muted: "#6c7a89", Label: "Rainy morning"},
	{Rainy, astro.Afternoon}: {Accent: "#5b7c99", Text: "#e6edf3", Muted: "#546e7a", Label: "Rainy afternoon"},
	{Rainy, astro.Evening}:   {Accent: "#6a7b8c", Text: "#e0e6eb", Muted: "#4a5563", Label: "Rainy evening"},
	{Rainy, astro.Night}:     {Accent: "#3b5998", Text: "#cfd8e3", Muted: "#1c2833", Label: "Rainy night"},

	{Snowy, astro.Dawn}:      {Accent: "#ffe4e1", Text: "#ffffff", Muted: "#d8d8e8", Label: "Snowy dawn"},
	{Snowy, astro.Morning}:   {Accent: "#f0f8ff", Text: "#ffffff", Muted: "#b0c4de", Label: "Snowy morning"},
	{Snowy, astro.Afternoon}: {Accent: "#e0ffff", Text: "#ffffff", Muted: "#add8e6", Label: "Snowy afternoon"},
	{Snowy, astro.Evening}:   {Accent: "#e6e6fa", Text: "#fafafa", Muted: "#b39eb5", Label: "Snowy evening"},
	{Snowy, astro.Night}:     {Accent: "#b0c4de", Text: "#f0f8ff", Muted: "#483d8b", Label: "Snowy night"},

	{Stormy, astro.Dawn}:      {Accent: "#8e7cc3", Text: "#e6e0f0", Muted: "#341739", Label: "Stormy dawn"},
	{Stormy, astro.Morning}:   {Accent: "#6a5acd", Text: "#e0dcf5", Muted: "#2c2c3e", Label: "Stormy morning"},
	{Stormy, astro.Afternoon}: {Accent: "#7a6fbf", Text: "#dedaf0", Muted: "#1d0a23", Label: "Stormy afternoon"},
	{Stormy, astro.Evening}:   {Accent: "#9b59b6", Text: "#eadcf0", Muted: "#2e1a47", Label: "Stormy evening"},
	{Stormy, astro.Night}:     {Accent: "#5d3fd3", Text: "#d6cff5", Muted: "#120a1f", Label: "Stormy night"},

	{Foggy, astro.Dawn}:      {Accent: "#e8d5c4", Text: "#fdf8f3", Muted: "#bdb3a9", Label: "Foggy dawn"},
	{Foggy, astro.Morning}:   {Accent: "#dcdcdc", Text: "#fafafa", Muted: "#a9a9a9", Label: "Foggy morning"},
	{Foggy, astro.Afternoon}: {Accent: "#d3d3d3", Text: "#f8f8f8", Muted: "#999999", Label: "Foggy afternoon"},
	{Foggy, astro.Evening}:   {Accent: "#c9b8a8", Text: "#f4eee8", Muted: "#8b7d70", Label: "Foggy evening"},
	{Foggy, astro.Night}:     {Accent: "#8f9bab", Text: "#e1e5ea", Muted: "#3c4650", Label: "Foggy night"},
}

// PaletteFor returns the chrome palette for a weather and time of day.
// Unknown pairs fall back to clear afternoon.
func PaletteFor(c Category, tod astro.TimeOfDay) Palette {
	if p, ok := paletteTable[paletteKey{c, tod}]; ok {
		return p
	}
	return paletteTable[paletteKey{Clear, astro.Afternoon}]
}
