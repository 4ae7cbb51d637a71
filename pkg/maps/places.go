package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// PlaceType restricts both searches to restaurants.
const PlaceType = "restaurant"

// DetailFields is the field mask sent with every details call.
var DetailFields = []string{
	"place_id", "name", "editorial_summary", "website", "url", "icon", "types",
	"rating", "price_level", "opening_hours", "utc_offset", "review",
	"user_ratings_total", "formatted_phone_number", "international_phone_number",
	"formatted_address", "address_components", "geometry", "plus_code",
	"business_status", "reservable", "dine_in", "wheelchair_accessible_entrance",
	"serves_breakfast", "serves_brunch", "serves_dinner", "serves_lunch",
	"serves_wine", "serves_beer", "serves_vegetarian_food",
}

// TextSearch runs one page of a phrase query. An empty pageToken starts a
// new query.
func (c *Client) TextSearch(ctx context.Context, query, pageToken string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", PlaceType)
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}

	var resp SearchResponse
	if err := c.get(ctx, ServiceText, "/maps/api/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NearbySearch runs one page of a proximity query around loc.
func (c *Client) NearbySearch(ctx context.Context, loc models.LatLng, radius int, pageToken string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("location", loc.String())
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", PlaceType)
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}

	var resp SearchResponse
	if err := c.get(ctx, ServiceNearby, "/maps/api/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaceDetails fetches the full record for id. A nil fields slice uses
// DetailFields.
func (c *Client) PlaceDetails(ctx context.Context, id string, fields []string) (*models.Place, error) {
	if len(fields) == 0 {
		fields = DetailFields
	}
	params := url.Values{}
	params.Set("place_id", id)
	params.Set("fields", strings.Join(fields, ","))

	var resp DetailsResponse
	if err := c.get(ctx, ServiceDetails, "/maps/api/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("details %s: %w", id, ErrNoResults)
	}
	if resp.Result.PlaceID == "" {
		resp.Result.PlaceID = id
	}
	return resp.Result, nil
}
