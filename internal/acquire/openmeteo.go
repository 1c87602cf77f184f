package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/litescript/ls-skyline/internal/catalog"
)

// DefaultOpenMeteoURL is the keyless Open-Meteo forecast host.
const DefaultOpenMeteoURL = "https://api.open-meteo.com"

// OpenMeteoClient reads current conditions from Open-Meteo. It needs no key.
type OpenMeteoClient struct {
	http httpConfig
}

// NewOpenMeteoClient creates an Open-Meteo client.
func NewOpenMeteoClient(opts ...ClientOption) *OpenMeteoClient {
	return &OpenMeteoClient{http: newHTTPConfig(DefaultOpenMeteoURL, opts)}
}

// Name implements WeatherProvider.
func (c *OpenMeteoClient) Name() string { return "openmeteo" }

type openMeteoResponse struct {
	Current *struct {
		WeatherCode int     `json:"weather_code"`
		Temperature float64 `json:"temperature_2m"`
	} `json:"current"`
}

// Current fetches current weather at coords and maps the WMO code.
func (c *OpenMeteoClient) Current(ctx context.Context, coords Coordinates) (Condition, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	q.Set("current", "weather_code,temperature_2m")

	var resp openMeteoResponse
	if err := c.http.getJSON(ctx, "/v1/forecast", q, &resp); err != nil {
		return Condition{}, fmt.Errorf("openmeteo: %w", err)
	}
	if resp.Current == nil {
		return Condition{}, fmt.Errorf("openmeteo: no current block: %w", ErrUnavailable)
	}

	code := resp.Current.WeatherCode
	main, desc := catalog.WMODescription(code)
	return Condition{
		ID:          code,
		Main:        main,
		Description: desc,
		TempC:       resp.Current.Temperature,
		Provider:    c.Name(),
		Category:    catalog.FromWMOCode(code),
	}, nil
}
