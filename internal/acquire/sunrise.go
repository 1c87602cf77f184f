package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/litescript/ls-skyline/internal/astro"
)

// DefaultSunriseSunsetURL is the sunrise-sunset.org API host.
const DefaultSunriseSunsetURL = "https://api.sunrise-sunset.org"

// SunriseSunsetClient looks up sun times from sunrise-sunset.org.
type SunriseSunsetClient struct {
	http httpConfig
}

// NewSunriseSunsetClient creates a sun times client.
func NewSunriseSunsetClient(opts ...ClientOption) *SunriseSunsetClient {
	return &SunriseSunsetClient{http: newHTTPConfig(DefaultSunriseSunsetURL, opts)}
}

type sunriseSunsetResponse struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
}

// SunTimes returns the window for day at coords, in day's time zone.
func (c *SunriseSunsetClient) SunTimes(ctx context.Context, coords Coordinates, day time.Time) (astro.SunWindow, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	q.Set("lng", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	q.Set("date", astro.DateKey(day))
	q.Set("formatted", "0")

	var resp sunriseSunsetResponse
	if err := c.http.getJSON(ctx, "/json", q, &resp); err != nil {
		return astro.SunWindow{}, fmt.Errorf("sun times: %w", err)
	}
	if resp.Status != "OK" {
		return astro.SunWindow{}, fmt.Errorf("sun times: status %q: %w", resp.Status, ErrUnavailable)
	}

	rise, err := time.Parse(time.RFC3339, resp.Results.Sunrise)
	if err != nil {
		return astro.SunWindow{}, fmt.Errorf("sun times: parse sunrise: %w", err)
	}
	set, err := time.Parse(time.RFC3339, resp.Results.Sunset)
	if err != nil {
		return astro.SunWindow{}, fmt.Errorf("sun times: parse sunset: %w", err)
	}
	// Polar day and night come back as the Unix epoch.
	if rise.Unix() <= 0 || set.Unix() <= 0 {
		return astro.SunWindow{}, fmt.Errorf("sun times: no sunrise on %s: %w", astro.DateKey(day), ErrUnavailable)
	}

	return astro.SunWindow{
		Date:    astro.DateKey(day),
		Sunrise: rise.In(day.Location()),
		Sunset:  set.In(day.Location()),
		Source:  astro.SourceAPI,
	}, nil
}
