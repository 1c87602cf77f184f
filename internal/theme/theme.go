// Package theme holds the scene's mode state machine. In MANUAL mode the
// user picks weather and time of day; in SMART mode both follow the real
// environment, refreshed on a schedule.
package theme

import (
	"fmt"
	"strings"
	"time"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
)

// Mode selects where the scene's inputs come from.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeSmart  Mode = "smart"
)

// ParseMode parses "manual" or "smart", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, nil
	case ModeSmart:
		return ModeSmart, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Selection is the user's manual choice.
type Selection struct {
	Weather   catalog.Category `json:"weather" yaml:"weather"`
	TimeOfDay astro.TimeOfDay  `json:"time_of_day" yaml:"time_of_day"`
}

// DefaultSelection is a clear afternoon.
func DefaultSelection() Selection {
	return Selection{Weather: catalog.Clear, TimeOfDay: astro.Afternoon}
}

// Validate checks both fields.
func (s Selection) Validate() error {
	if !s.Weather.Valid() {
		return fmt.Errorf("invalid weather %q", s.Weather)
	}
	if !s.TimeOfDay.Valid() {
		return fmt.Errorf("invalid time of day %q", s.TimeOfDay)
	}
	return nil
}

// Preference is what a SelectionStore persists between runs.
type Preference struct {
	Selection Selection
	Mode      Mode
}

// SelectionStore persists the user's preference.
type SelectionStore interface {
	LoadPreference() (Preference, bool, error)
	SavePreference(p Preference) error
}

// Snapshot is a copy of the manager's state at one instant.
type Snapshot struct {
	Mode        Mode                 `json:"mode"`
	Selection   Selection            `json:"selection"`
	Weather     catalog.Category     `json:"weather"`
	Location    *acquire.Location    `json:"location,omitempty"`
	Window      astro.SunWindow      `json:"window"`
	Loading     bool                 `json:"loading"`
	LastError   string               `json:"last_error,omitempty"`
	ConfigError string               `json:"config_error,omitempty"`
	LastRefresh time.Time            `json:"last_refresh"`
	Version     uint64               `json:"version"`
	Environment *acquire.Environment `json:"environment,omitempty"`
}

// Smart reports whether the snapshot was taken in SMART mode.
func (s Snapshot) Smart() bool {
	return s.Mode == ModeSmart
}

// Positions returns sun and moon positions at now. MANUAL uses the
// discrete table; SMART interpolates within the day's sun window, or
// within 06:00/18:00 until a window is known.
func (s Snapshot) Positions(now time.Time) astro.Positions {
	if !s.Smart() {
		return astro.Discrete(s.Selection.TimeOfDay)
	}
	w := s.Window
	if w.IsZero() {
		w = astro.FallbackWindow(now)
	}
	return w.Positions(now)
}

// TimeOfDay returns the effective time-of-day bucket at now.
func (s Snapshot) TimeOfDay(now time.Time) astro.TimeOfDay {
	return s.Positions(now).TimeOfDay
}
