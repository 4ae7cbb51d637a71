package merge

import (
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// MapEntry is the flattened subset of a record the map renderer reads.
type MapEntry struct {
	Name                    string         `json:"name"`
	Types                   string         `json:"types"`
	Summary                 string         `json:"summary"`
	Website                 string         `json:"website"`
	URL                     string         `json:"url"`
	PriceLevel              *int           `json:"price_level"`
	RatingAverage           *float64       `json:"rating_average"`
	RatingsTotal            *int           `json:"ratings_total"`
	ReviewsText             []string       `json:"reviews_text"`
	DirectDistanceKm        *float64       `json:"direct_distance_km"`
	Address                 string         `json:"address"`
	OpeningHoursWeekdayText string         `json:"opening_hours_weekday_text"`
	TimeZoneUTCOffset       *int           `json:"time_zone_utc_offset"`
	BusinessStatus          string         `json:"business_status"`
	DineIn                  *bool          `json:"dine_in"`
	Reservable              *bool          `json:"reservable"`
	ServesBreakfast         *bool          `json:"serves_breakfast"`
	ServesBrunch            *bool          `json:"serves_brunch"`
	ServesLunch             *bool          `json:"serves_lunch"`
	ServesDinner            *bool          `json:"serves_dinner"`
	ServesWine              *bool          `json:"serves_wine"`
	LastUpdated             string         `json:"last_updated"`
	Geometry                *models.LatLng `json:"geometry"`
}

// MapView builds the map-ready view of c keyed by place_id.
func MapView(c models.Corpus) map[string]MapEntry {
	out := make(map[string]MapEntry, len(c))
	for id, p := range c {
		out[id] = NewMapEntry(p)
	}
	return out
}

func NewMapEntry(p *models.Place) MapEntry {
	e := MapEntry{
		Name:              p.Name,
		Types:             strings.Join(p.Types, ", "),
		Website:           p.Website,
		URL:               p.URL,
		PriceLevel:        p.PriceLevel,
		RatingAverage:     p.Rating,
		RatingsTotal:      p.UserRatingsTotal,
		ReviewsText:       make([]string, 0, len(p.Reviews)),
		DirectDistanceKm:  p.CrowFlyDistanceKm,
		Address:           p.FormattedAddress,
		TimeZoneUTCOffset: p.UTCOffset,
		BusinessStatus:    p.BusinessStatus,
		DineIn:            p.DineIn,
		Reservable:        p.Reservable,
		ServesBreakfast:   p.ServesBreakfast,
		ServesBrunch:      p.ServesBrunch,
		ServesLunch:       p.ServesLunch,
		ServesDinner:      p.ServesDinner,
		ServesWine:        p.ServesWine,
		LastUpdated:       p.LastUpdated,
	}
	if p.EditorialSummary != nil {
		e.Summary = p.EditorialSummary.Overview
	}
	for _, r := range p.Reviews {
		e.ReviewsText = append(e.ReviewsText, r.Text)
	}
	if p.OpeningHours != nil {
		e.OpeningHoursWeekdayText = strings.Join(p.OpeningHours.WeekdayText, "\n")
	}
	if loc, ok := p.Coordinate(); ok {
		e.Geometry = &loc
	}
	return e
}
