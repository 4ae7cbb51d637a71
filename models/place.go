package models

import (
	"sort"
	"time"
)

// Place is the cached detail record for one place_id. Field names follow the
// Place Details response so cached files stay readable next to raw payloads.
type Place struct {
	PlaceID                      string             `json:"place_id"`
	Name                         string             `json:"name,omitempty"`
	Types                        []string           `json:"types,omitempty"`
	EditorialSummary             *EditorialSummary  `json:"editorial_summary,omitempty"`
	Website                      string             `json:"website,omitempty"`
	URL                          string             `json:"url,omitempty"`
	Icon                         string             `json:"icon,omitempty"`
	Rating                       *float64           `json:"rating,omitempty"`
	UserRatingsTotal             *int               `json:"user_ratings_total,omitempty"`
	PriceLevel                   *int               `json:"price_level,omitempty"`
	OpeningHours                 *OpeningHours      `json:"opening_hours,omitempty"`
	Reviews                      []Review           `json:"reviews,omitempty"`
	FormattedPhoneNumber         string             `json:"formatted_phone_number,omitempty"`
	InternationalPhoneNumber     string             `json:"international_phone_number,omitempty"`
	UTCOffset                    *int               `json:"utc_offset,omitempty"`
	FormattedAddress             string             `json:"formatted_address,omitempty"`
	AddressComponents            []AddressComponent `json:"address_components,omitempty"`
	Geometry                     *Geometry          `json:"geometry,omitempty"`
	PlusCode                     *PlusCode          `json:"plus_code,omitempty"`
	BusinessStatus               string             `json:"business_status,omitempty"`
	Vicinity                     string             `json:"vicinity,omitempty"`
	Reservable                   *bool              `json:"reservable,omitempty"`
	DineIn                       *bool              `json:"dine_in,omitempty"`
	Takeout                      *bool              `json:"takeout,omitempty"`
	Delivery                     *bool              `json:"delivery,omitempty"`
	CurbsidePickup               *bool              `json:"curbside_pickup,omitempty"`
	WheelchairAccessibleEntrance *bool              `json:"wheelchair_accessible_entrance,omitempty"`
	ServesBreakfast              *bool              `json:"serves_breakfast,omitempty"`
	ServesBrunch                 *bool              `json:"serves_brunch,omitempty"`
	ServesLunch                  *bool              `json:"serves_lunch,omitempty"`
	ServesDinner                 *bool              `json:"serves_dinner,omitempty"`
	ServesWine                   *bool              `json:"serves_wine,omitempty"`
	ServesBeer                   *bool              `json:"serves_beer,omitempty"`
	ServesVegetarianFood         *bool              `json:"serves_vegetarian_food,omitempty"`

	// LastUpdated is the last-enriched timestamp. It stays a string so a
	// hand-edited or legacy value survives a load/save cycle untouched.
	LastUpdated       string   `json:"last_updated,omitempty"`
	CrowFlyDistanceKm *float64 `json:"crow_fly_distance_km,omitempty"`
	SourceAddressFile string   `json:"source_address_file,omitempty"`
}

type EditorialSummary struct {
	Language string `json:"language,omitempty"`
	Overview string `json:"overview,omitempty"`
}

type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	Periods     []Period `json:"periods,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

type Period struct {
	Open  *DayTime `json:"open,omitempty"`
	Close *DayTime `json:"close,omitempty"`
}

type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// Review is one review snippet. Time is a unix timestamp in seconds.
type Review struct {
	AuthorName              string  `json:"author_name,omitempty"`
	AuthorURL               string  `json:"author_url,omitempty"`
	Language                string  `json:"language,omitempty"`
	ProfilePhotoURL         string  `json:"profile_photo_url,omitempty"`
	Rating                  float64 `json:"rating"`
	RelativeTimeDescription string  `json:"relative_time_description,omitempty"`
	Text                    string  `json:"text,omitempty"`
	Time                    int64   `json:"time"`
}

type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type Geometry struct {
	Location *LatLng   `json:"location,omitempty"`
	Viewport *Viewport `json:"viewport,omitempty"`
}

type Viewport struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

type PlusCode struct {
	CompoundCode string `json:"compound_code,omitempty"`
	GlobalCode   string `json:"global_code,omitempty"`
}

// MaxReviews is how many of the most recent reviews a record keeps.
const MaxReviews = 5

// Coordinate returns the record's location, if it has one.
func (p *Place) Coordinate() (LatLng, bool) {
	if p == nil || p.Geometry == nil || p.Geometry.Location == nil {
		return LatLng{}, false
	}
	return *p.Geometry.Location, true
}

// SetCoordinate replaces the record's location, keeping any viewport.
func (p *Place) SetCoordinate(c LatLng) {
	if p.Geometry == nil {
		p.Geometry = &Geometry{}
	}
	loc := c
	p.Geometry.Location = &loc
}

// RecentReviews returns at most n reviews, newest first.
func RecentReviews(reviews []Review, n int) []Review {
	out := make([]Review, len(reviews))
	copy(out, reviews)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Epoch is the last-enriched time assumed for records with no usable stamp.
var Epoch = time.Unix(0, 0).UTC()

// timestampLayouts covers RFC 3339 stamps and the zone-less ISO stamps
// found in older cache files.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LastEnriched parses LastUpdated. Missing or unparseable stamps yield Epoch
// so the record is always considered stale.
func (p *Place) LastEnriched() time.Time {
	if p == nil || p.LastUpdated == "" {
		return Epoch
	}
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, p.LastUpdated)
		} else {
			t, err = time.ParseInLocation(layout, p.LastUpdated, time.Local)
		}
		if err == nil {
			return t
		}
	}
	return Epoch
}

// Stamp records t as the last-enriched time.
func (p *Place) Stamp(t time.Time) {
	p.LastUpdated = t.Format(time.RFC3339Nano)
}
