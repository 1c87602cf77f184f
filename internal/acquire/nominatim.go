package acquire

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultNominatimURL is the public OpenStreetMap reverse geocoder.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimClient names places via OpenStreetMap Nominatim.
type NominatimClient struct {
	http httpConfig
}

// NewNominatimClient creates a reverse geocoding client. Nominatim's usage
// policy requires an identifying User-Agent, which the default provides.
func NewNominatimClient(opts ...ClientOption) *NominatimClient {
	return &NominatimClient{http: newHTTPConfig(DefaultNominatimURL, opts)}
}

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		Country      string `json:"country"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

// Reverse returns the city and country code at c.
func (c *NominatimClient) Reverse(ctx context.Context, coords Coordinates) (string, string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 5, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lon, 'f', 5, 64))
	q.Set("zoom", "10")

	var resp nominatimResponse
	if err := c.http.getJSON(ctx, "/reverse", q, &resp); err != nil {
		return "", "", fmt.Errorf("reverse geocode: %w", err)
	}
	if resp.Error != "" {
		return "", "", fmt.Errorf("reverse geocode: %s: %w", resp.Error, ErrUnavailable)
	}

	a := resp.Address
	city := firstNonEmpty(a.City, a.Town, a.Village, a.Municipality)
	country := strings.ToUpper(a.CountryCode)
	if country == "" {
		country = a.Country
	}
	return city, country, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
