package maps

import "github.com/thefilesareinthecomputer/web-scraping-research-agent/models"

const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
	StatusInvalid     = "INVALID_REQUEST"
	StatusDenied      = "REQUEST_DENIED"
	StatusOverLimit   = "OVER_QUERY_LIMIT"
)

// GeocodeResponse is the geocoding payload.
type GeocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []GeocodeResult `json:"results"`
}

func (r *GeocodeResponse) status() (string, string) { return r.Status, r.ErrorMessage }

type GeocodeResult struct {
	FormattedAddress  string                    `json:"formatted_address"`
	AddressComponents []models.AddressComponent `json:"address_components"`
	Geometry          models.Geometry           `json:"geometry"`
	PlaceID           string                    `json:"place_id"`
}

// SearchResponse is shared by text search and nearby search. Only the ID of
// each result is used downstream.
type SearchResponse struct {
	Status        string         `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Results       []SearchResult `json:"results"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (r *SearchResponse) status() (string, string) { return r.Status, r.ErrorMessage }

type SearchResult struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name,omitempty"`
}

// IDs returns the non-empty place IDs in response order.
func (r *SearchResponse) IDs() []string {
	ids := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res.PlaceID != "" {
			ids = append(ids, res.PlaceID)
		}
	}
	return ids
}

// DetailsResponse is the place details payload.
type DetailsResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Result       *models.Place `json:"result"`
}

func (r *DetailsResponse) status() (string, string) { return r.Status, r.ErrorMessage }

// Components holds the parts of a geocoded address used to build search
// phrases. Absent parts are empty strings.
type Components struct {
	Country      string
	State        string
	County       string
	City         string
	Neighborhood string
	PostalCode   string
	Street       string
	StreetNumber string
}

// ParseComponents assigns each component to the part named by its first
// recognised type. Later components of the same type win.
func ParseComponents(components []models.AddressComponent) Components {
	var c Components
	for _, comp := range components {
		var dst *string
		for _, t := range comp.Types {
			switch t {
			case "country":
				dst = &c.Country
			case "administrative_area_level_1":
				dst = &c.State
			case "administrative_area_level_2":
				dst = &c.County
			case "locality":
				dst = &c.City
			case "neighborhood":
				dst = &c.Neighborhood
			case "postal_code":
				dst = &c.PostalCode
			case "route":
				dst = &c.Street
			case "street_number":
				dst = &c.StreetNumber
			}
			if dst != nil {
				break
			}
		}
		if dst != nil {
			*dst = comp.LongName
		}
	}
	return c
}
