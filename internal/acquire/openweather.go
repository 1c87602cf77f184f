package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/litescript/ls-skyline/internal/catalog"
)

// DefaultOpenWeatherURL is the OpenWeather API host.
const DefaultOpenWeatherURL = "https://api.openweathermap.org"

// OpenWeatherClient reads current conditions from OpenWeather.
type OpenWeatherClient struct {
	http   httpConfig
	apiKey string
}

// NewOpenWeatherClient creates an OpenWeather client. An empty key is
// accepted here and reported as ErrMissingAPIKey on every call.
func NewOpenWeatherClient(apiKey string, opts ...ClientOption) *OpenWeatherClient {
	return &OpenWeatherClient{
		http:   newHTTPConfig(DefaultOpenWeatherURL, opts),
		apiKey: apiKey,
	}
}

// Name implements WeatherProvider.
func (c *OpenWeatherClient) Name() string { return "openweather" }

type openWeatherResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// Current fetches current weather at coords.
func (c *OpenWeatherClient) Current(ctx context.Context, coords Coordinates) (Condition, error) {
	if c.apiKey == "" {
		return Condition{}, fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var resp openWeatherResponse
	if err := c.http.getJSON(ctx, "/data/2.5/weather", q, &resp); err != nil {
		return Condition{}, fmt.Errorf("openweather: %w", err)
	}
	if len(resp.Weather) == 0 {
		return Condition{}, fmt.Errorf("openweather: empty weather list: %w", ErrUnavailable)
	}

	w := resp.Weather[0]
	return Condition{
		ID:          w.ID,
		Main:        w.Main,
		Description: w.Description,
		TempC:       resp.Main.Temp,
		Provider:    c.Name(),
		Category:    catalog.FromCondition(w.ID, w.Main),
	}, nil
}
