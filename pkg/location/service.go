// Package location geocodes free-text addresses with OpenStreetMap
// Nominatim. The merger uses it as a fallback when the Maps geocoder cannot
// place a record.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "restaurant-research-agent/1.0"
)

// ErrNoResults is returned when Nominatim finds nothing for the query.
var ErrNoResults = errors.New("nominatim: no results")

// NominatimResponse is shaped for the search API response.
type NominatimResponse []struct {
	PlaceID     int64  `json:"place_id"`
	OsmType     string `json:"osm_type"`
	OsmID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Road        string `json:"road"`
		Suburb      string `json:"suburb"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Location is the first search hit reduced to what callers use.
type Location struct {
	Name        string
	Coordinates models.LatLng
	City        string
	Country     string
	Type        string
	OsmID       string
}

type Client struct {
	httpClient transport.Doer
	baseURL    string
	userAgent  string
}

func NewClient(httpClient transport.Doer, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
	}
}

// Geocode looks up query and returns the best match.
func (c *Client) Geocode(ctx context.Context, query string) (*Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	params.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim search: unexpected status %s", resp.Status)
	}

	var results NominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrNoResults)
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim longitude %q: %w", first.Lon, err)
	}

	city := first.Address.City
	if city == "" {
		city = first.Address.Town
	}
	if city == "" {
		city = first.Address.Village
	}

	return &Location{
		Name:        first.DisplayName,
		Coordinates: models.LatLng{Lat: lat, Lng: lon},
		City:        city,
		Country:     first.Address.Country,
		Type:        first.Type,
		OsmID:       strconv.FormatInt(first.OsmID, 10),
	}, nil
}

// Coordinates satisfies the coordinate repair interface of the merge engine.
func (c *Client) Coordinates(ctx context.Context, address string) (models.LatLng, error) {
	loc, err := c.Geocode(ctx, address)
	if err != nil {
		return models.LatLng{}, err
	}
	return loc.Coordinates, nil
}
