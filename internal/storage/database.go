// Package storage persists the user's preference, cached sun windows and a
// log of resolved environments in SQLite.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/logging"
	"github.com/litescript/ls-skyline/internal/theme"
)

type Store struct {
	db  *gorm.DB
	log *logging.Logger
}

// Open opens or creates the database at path.
func Open(path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Preference{}, &SunWindowRecord{}, &Observation{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadPreference implements theme.SelectionStore.
func (s *Store) LoadPreference() (theme.Preference, bool, error) {
	var p Preference
	err := s.db.Where("slot = ?", preferenceSlot).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return theme.Preference{}, false, nil
	}
	if err != nil {
		return theme.Preference{}, false, fmt.Errorf("load preference: %w", err)
	}

	mode, err := theme.ParseMode(p.Mode)
	if err != nil {
		mode = theme.ModeManual
	}
	return theme.Preference{
		Selection: theme.Selection{
			Weather:   catalog.Category(p.Weather),
			TimeOfDay: astro.TimeOfDay(p.TimeOfDay),
		},
		Mode: mode,
	}, true, nil
}

// SavePreference implements theme.SelectionStore.
func (s *Store) SavePreference(pref theme.Preference) error {
	row := Preference{
		Slot:      preferenceSlot,
		Weather:   string(pref.Selection.Weather),
		TimeOfDay: string(pref.Selection.TimeOfDay),
		Mode:      string(pref.Mode),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"weather", "time_of_day", "mode", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// Get implements acquire.SunCache.
func (s *Store) Get(key string) (astro.SunWindow, bool) {
	var rec SunWindowRecord
	err := s.db.Where("cache_key = ?", key).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("sun cache read: %v", err)
		}
		return astro.SunWindow{}, false
	}
	return astro.SunWindow{
		Date:    rec.Date,
		Sunrise: rec.Sunrise,
		Sunset:  rec.Sunset,
		Source:  rec.Source,
	}, true
}

// Put implements acquire.SunCache.
func (s *Store) Put(key string, w astro.SunWindow) {
	rec := SunWindowRecord{
		CacheKey: key,
		Date:     w.Date,
		Sunrise:  w.Sunrise,
		Sunset:   w.Sunset,
		Source:   w.Source,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "sunrise", "sunset", "source", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		s.log.Warn("sun cache write: %v", err)
	}
}

// PruneSunWindows deletes cached windows dated before date.
func (s *Store) PruneSunWindows(date string) (int64, error) {
	res := s.db.Unscoped().Where("date < ?", date).Delete(&SunWindowRecord{})
	return res.RowsAffected, res.Error
}

// SaveObservation records a resolved environment.
func (s *Store) SaveObservation(env acquire.Environment) error {
	obs := Observation{
		Timestamp:   env.ResolvedAt,
		Method:      string(env.Location.Method),
		City:        env.Location.City,
		Country:     env.Location.Country,
		HasWeather:  env.HasWeather,
		Category:    string(env.Condition.Category),
		ConditionID: env.Condition.ID,
		Description: env.Condition.Description,
		TempC:       env.Condition.TempC,
		Provider:    env.Condition.Provider,
		Sunrise:     env.Window.Sunrise,
		Sunset:      env.Window.Sunset,
		SunSource:   env.Window.Source,
		Warnings:    strings.Join(env.Warnings, "; "),
	}
	if c := env.Location.Coordinates; c != nil {
		obs.Lat, obs.Lon = c.Lat, c.Lon
	}
	if err := s.db.Create(&obs).Error; err != nil {
		return fmt.Errorf("save observation: %w", err)
	}
	return nil
}

// ObserveEnvironment saves env and logs failures. It matches the acquirer's
// observer hook.
func (s *Store) ObserveEnvironment(env acquire.Environment) {
	if err := s.SaveObservation(env); err != nil {
		s.log.Warn("%v", err)
	}
}

// RecentObservations returns up to limit observations, newest first.
func (s *Store) RecentObservations(limit int) ([]Observation, error) {
	var out []Observation
	result := s.db.Order("timestamp desc").Limit(limit).Find(&out)
	if result.Error != nil {
		return nil, result.Error
	}
	return out, nil
}
