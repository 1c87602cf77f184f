package storage

import (
	"time"

	"gorm.io/gorm"
)

// preferenceSlot is the single row holding the user's preference.
const preferenceSlot = "default"

type Preference struct {
	gorm.Model
	Slot      string `gorm:"uniqueIndex" json:"slot"`
	Weather   string `json:"weather"`
	TimeOfDay string `json:"time_of_day"`
	Mode      string `json:"mode"`
}

type SunWindowRecord struct {
	gorm.Model
	CacheKey string    `gorm:"uniqueIndex" json:"cache_key"`
	Date     string    `gorm:"index" json:"date"`
	Sunrise  time.Time `json:"sunrise"`
	Sunset   time.Time `json:"sunset"`
	Source   string    `json:"source"`
}

// Observation is one resolved environment, kept as a history log.
type Observation struct {
	gorm.Model
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	// Location
	Method  string  `json:"method"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`

	// Weather
	HasWeather  bool    `json:"has_weather"`
	Category    string  `json:"category"`
	ConditionID int     `json:"condition_id"`
	Description string  `json:"description"`
	TempC       float64 `json:"temp_c"`
	Provider    string  `json:"provider"`

	// Sun
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
	SunSource string    `json:"sun_source"`

	Warnings string `json:"warnings"`
}
