// Package config loads ls-skyline settings from defaults, an optional YAML
// file, a .env file and LSSKYLINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/theme"
)

// EnvPrefix prefixes environment overrides, e.g. LSSKYLINE_RENDER_FPS.
const EnvPrefix = "LSSKYLINE"

// APIKeyEnv is the conventional variable for the OpenWeather key.
const APIKeyEnv = "OPENWEATHER_API_KEY"

// Weather providers.
const (
	ProviderOpenWeather = "openweather"
	ProviderOpenMeteo   = "openmeteo"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	Theme     ThemeConfig     `mapstructure:"theme" yaml:"theme"`
	Location  LocationConfig  `mapstructure:"location" yaml:"location"`
	Weather   WeatherConfig   `mapstructure:"weather" yaml:"weather"`
	Sun       SunConfig       `mapstructure:"sun" yaml:"sun"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	MQTT      MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type RenderConfig struct {
	FPS      int   `mapstructure:"fps" yaml:"fps"`
	LowPower bool  `mapstructure:"low_power" yaml:"low_power"`
	Seed     int64 `mapstructure:"seed" yaml:"seed"`
}

type ThemeConfig struct {
	Weather         string        `mapstructure:"weather" yaml:"weather"`
	TimeOfDay       string        `mapstructure:"time_of_day" yaml:"time_of_day"`
	Smart           bool          `mapstructure:"smart" yaml:"smart"`
	RefreshSchedule string        `mapstructure:"refresh_schedule" yaml:"refresh_schedule"`
	ErrorTTL        time.Duration `mapstructure:"error_ttl" yaml:"error_ttl"`
}

type LocationConfig struct {
	GPSDAddr       string         `mapstructure:"gpsd_addr" yaml:"gpsd_addr"`
	GPSTimeout     time.Duration  `mapstructure:"gps_timeout" yaml:"gps_timeout"`
	MaxAge         time.Duration  `mapstructure:"max_age" yaml:"max_age"`
	IPLookup       bool           `mapstructure:"ip_lookup" yaml:"ip_lookup"`
	ReverseGeocode bool           `mapstructure:"reverse_geocode" yaml:"reverse_geocode"`
	UseFallback    bool           `mapstructure:"use_fallback" yaml:"use_fallback"`
	Fallback       FallbackConfig `mapstructure:"fallback" yaml:"fallback"`
}

type FallbackConfig struct {
	City    string  `mapstructure:"city" yaml:"city"`
	Country string  `mapstructure:"country" yaml:"country"`
	Lat     float64 `mapstructure:"lat" yaml:"lat"`
	Lon     float64 `mapstructure:"lon" yaml:"lon"`
}

type WeatherConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SunConfig struct {
	Online  bool          `mapstructure:"online" yaml:"online"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker      string `mapstructure:"broker" yaml:"broker"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

type TelemetryConfig struct {
	PerfCSV string `mapstructure:"perf_csv" yaml:"perf_csv"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("render.fps", 30)
	v.SetDefault("render.low_power", false)
	v.SetDefault("render.seed", 0)
	v.SetDefault("theme.weather", "clear")
	v.SetDefault("theme.time_of_day", "afternoon")
	v.SetDefault("theme.smart", false)
	v.SetDefault("theme.refresh_schedule", "@every 10m")
	v.SetDefault("theme.error_ttl", "5s")
	v.SetDefault("location.gpsd_addr", "")
	v.SetDefault("location.gps_timeout", "10s")
	v.SetDefault("location.max_age", "5m")
	v.SetDefault("location.ip_lookup", true)
	v.SetDefault("location.reverse_geocode", true)
	v.SetDefault("location.use_fallback", true)
	v.SetDefault("location.fallback.city", "Seoul")
	v.SetDefault("location.fallback.country", "KR")
	v.SetDefault("location.fallback.lat", 37.5665)
	v.SetDefault("location.fallback.lon", 126.978)
	v.SetDefault("weather.provider", ProviderOpenWeather)
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("sun.online", true)
	v.SetDefault("sun.timeout", "10s")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "ls-skyline")
	v.SetDefault("mqtt.topic_prefix", "skyline")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", "127.0.0.1:8047")
	v.SetDefault("telemetry.perf_csv", "")
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "ls-skyline.db"
	}
	return filepath.Join(dir, "ls-skyline", "skyline.db")
}

// Default returns the built-in configuration without reading any file or
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. An empty path searches ./ls-skyline.yaml and
// the user config directory; a missing file there is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ls-skyline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ls-skyline"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = os.Getenv(APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns every hard configuration error.
func (c *Config) Validate() error {
	var errs []error

	if c.Render.FPS <= 0 {
		errs = append(errs, fmt.Errorf("render.fps must be positive, got %d", c.Render.FPS))
	}
	if _, err := catalog.ParseCategory(c.Theme.Weather); err != nil {
		errs = append(errs, fmt.Errorf("theme.weather: %w", err))
	}
	if _, err := astro.ParseTimeOfDay(c.Theme.TimeOfDay); err != nil {
		errs = append(errs, fmt.Errorf("theme.time_of_day: %w", err))
	}
	if strings.TrimSpace(c.Theme.RefreshSchedule) == "" {
		errs = append(errs, errors.New("theme.refresh_schedule is empty"))
	}
	switch c.Weather.Provider {
	case ProviderOpenWeather, ProviderOpenMeteo:
	default:
		errs = append(errs, fmt.Errorf("weather.provider must be %s or %s, got %q",
			ProviderOpenWeather, ProviderOpenMeteo, c.Weather.Provider))
	}
	if c.Location.UseFallback {
		f := c.Location.Fallback
		if f.Lat < -90 || f.Lat > 90 || f.Lon < -180 || f.Lon > 180 {
			errs = append(errs, fmt.Errorf("location.fallback: %.4f,%.4f is not a coordinate", f.Lat, f.Lon))
		}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage is enabled"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if c.API.Enabled && c.API.Addr == "" {
		errs = append(errs, errors.New("api.addr is required when the api is enabled"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// Warnings lists problems that do not stop the program. A missing weather
// key only affects SMART mode.
func (c *Config) Warnings() []string {
	var out []string
	if c.Weather.Provider == ProviderOpenWeather && c.Weather.APIKey == "" {
		out = append(out, "weather API key is not set; set "+APIKeyEnv+" or use provider openmeteo")
	}
	if !c.Location.UseFallback && !c.Location.IPLookup && c.Location.GPSDAddr == "" {
		out = append(out, "no location source is enabled; smart mode cannot resolve")
	}
	return out
}

// Selection returns the configured manual selection.
func (c *Config) Selection() theme.Selection {
	sel := theme.DefaultSelection()
	if w, err := catalog.ParseCategory(c.Theme.Weather); err == nil {
		sel.Weather = w
	}
	if t, err := astro.ParseTimeOfDay(c.Theme.TimeOfDay); err == nil {
		sel.TimeOfDay = t
	}
	return sel
}

// ThemeConfig converts the theme section for theme.NewManager.
func (c *Config) ThemeConfig() theme.Config {
	tc := theme.DefaultConfig()
	tc.Selection = c.Selection()
	tc.Smart = c.Theme.Smart
	tc.RefreshSchedule = c.Theme.RefreshSchedule
	if c.Theme.ErrorTTL > 0 {
		tc.ErrorTTL = c.Theme.ErrorTTL
	}
	if warnings := c.Warnings(); len(warnings) > 0 {
		tc.ConfigError = warnings[0]
	}
	return tc
}

// FallbackLocation returns the last-resort location, if enabled.
func (c *Config) FallbackLocation() (acquire.Location, bool) {
	if !c.Location.UseFallback {
		return acquire.Location{}, false
	}
	f := c.Location.Fallback
	return acquire.Location{
		City:        f.City,
		Country:     f.Country,
		Method:      acquire.MethodFallback,
		Coordinates: &acquire.Coordinates{Lat: f.Lat, Lon: f.Lon},
	}, true
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Weather.APIKey != "" {
		cp.Weather.APIKey = "********"
	}
	if cp.MQTT.Password != "" {
		cp.MQTT.Password = "********"
	}
	return &cp
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
