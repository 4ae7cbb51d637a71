package maps

import (
	"context"
	"fmt"
	"net/url"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// Geocoded is the first geocoding result reduced to what callers need.
type Geocoded struct {
	Location          models.LatLng
	FormattedAddress  string
	AddressComponents []models.AddressComponent
	Components        Components
}

// Geocode resolves a free-text address. ZERO_RESULTS and results without a
// location both yield ErrNoResults.
func (c *Client) Geocode(ctx context.Context, address string) (*Geocoded, error) {
	params := url.Values{}
	params.Set("address", address)

	var resp GeocodeResponse
	if err := c.get(ctx, ServiceGeocode, "/maps/api/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || resp.Results[0].Geometry.Location == nil {
		return nil, fmt.Errorf("geocode %q: %w", address, ErrNoResults)
	}

	first := resp.Results[0]
	return &Geocoded{
		Location:          *first.Geometry.Location,
		FormattedAddress:  first.FormattedAddress,
		AddressComponents: first.AddressComponents,
		Components:        ParseComponents(first.AddressComponents),
	}, nil
}

// Coordinates is Geocode without the address breakdown. It satisfies the
// coordinate repair interface of the merge engine.
func (c *Client) Coordinates(ctx context.Context, address string) (models.LatLng, error) {
	g, err := c.Geocode(ctx, address)
	if err != nil {
		return models.LatLng{}, err
	}
	return g.Location, nil
}
