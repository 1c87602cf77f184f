package acquire

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultIPAPIURL is the ip-api.com endpoint. The free tier is HTTP only.
const DefaultIPAPIURL = "http://ip-api.com"

// IPAPIClient locates the caller by public IP via ip-api.com.
type IPAPIClient struct {
	http httpConfig
}

// NewIPAPIClient creates an IP geolocation client.
func NewIPAPIClient(opts ...ClientOption) *IPAPIClient {
	return &IPAPIClient{http: newHTTPConfig(DefaultIPAPIURL, opts)}
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// LocateIP returns the approximate location of the current public IP.
func (c *IPAPIClient) LocateIP(ctx context.Context) (Location, error) {
	q := url.Values{}
	q.Set("fields", "status,message,country,countryCode,city,lat,lon")

	var resp ipAPIResponse
	if err := c.http.getJSON(ctx, "/json/", q, &resp); err != nil {
		return Location{}, fmt.Errorf("ip location: %w", err)
	}
	if resp.Status != "success" {
		return Location{}, fmt.Errorf("ip location: %s: %w", resp.Message, ErrUnavailable)
	}

	country := resp.CountryCode
	if country == "" {
		country = resp.Country
	}
	return Location{
		City:        resp.City,
		Country:     country,
		Method:      MethodIP,
		Coordinates: &Coordinates{Lat: resp.Lat, Lon: resp.Lon},
	}, nil
}
