package corpus

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

const notAvailable = "N/A"

// utf8BOM lets spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

type column struct {
	name  string
	value func(p *models.Place) string
}

var runColumns = []column{
	{"place_id", func(p *models.Place) string { return p.PlaceID }},
	{"name", func(p *models.Place) string { return p.Name }},
	{"types", func(p *models.Place) string { return strings.Join(p.Types, "; ") }},
	{"editorial_summary", func(p *models.Place) string { return jsonCell(p.EditorialSummary) }},
	{"website", func(p *models.Place) string { return p.Website }},
	{"url", func(p *models.Place) string { return p.URL }},
	{"icon", func(p *models.Place) string { return p.Icon }},
	{"rating", func(p *models.Place) string { return floatCell(p.Rating) }},
	{"user_ratings_total", func(p *models.Place) string { return intCell(p.UserRatingsTotal) }},
	{"price_level", func(p *models.Place) string { return intCell(p.PriceLevel) }},
	{"opening_hours", func(p *models.Place) string { return WeekdayText(p.OpeningHours) }},
	{"review", func(p *models.Place) string { return FormatReviews(p.Reviews) }},
	{"crow_fly_distance_km", func(p *models.Place) string { return floatCell(p.CrowFlyDistanceKm) }},
	{"formatted_phone_number", func(p *models.Place) string { return p.FormattedPhoneNumber }},
	{"international_phone_number", func(p *models.Place) string { return p.InternationalPhoneNumber }},
	{"utc_offset", func(p *models.Place) string { return intCell(p.UTCOffset) }},
	{"formatted_address", func(p *models.Place) string { return p.FormattedAddress }},
	{"address_components", func(p *models.Place) string { return joinJSON(p.AddressComponents) }},
	{"geometry", func(p *models.Place) string { return jsonCell(p.Geometry) }},
	{"plus_code", func(p *models.Place) string { return jsonCell(p.PlusCode) }},
	{"business_status", func(p *models.Place) string { return p.BusinessStatus }},
	{"reservable", func(p *models.Place) string { return boolCell(p.Reservable) }},
	{"dine_in", func(p *models.Place) string { return boolCell(p.DineIn) }},
	{"wheelchair_accessible_entrance", func(p *models.Place) string { return boolCell(p.WheelchairAccessibleEntrance) }},
	{"serves_breakfast", func(p *models.Place) string { return boolCell(p.ServesBreakfast) }},
	{"serves_brunch", func(p *models.Place) string { return boolCell(p.ServesBrunch) }},
	{"serves_lunch", func(p *models.Place) string { return boolCell(p.ServesLunch) }},
	{"serves_dinner", func(p *models.Place) string { return boolCell(p.ServesDinner) }},
	{"serves_wine", func(p *models.Place) string { return boolCell(p.ServesWine) }},
	{"serves_beer", func(p *models.Place) string { return boolCell(p.ServesBeer) }},
	{"serves_vegetarian_food", func(p *models.Place) string { return boolCell(p.ServesVegetarianFood) }},
	{"last_updated", func(p *models.Place) string { return p.LastUpdated }},
}

var mergedColumns = append(append([]column{}, runColumns...),
	column{"source_address_file", func(p *models.Place) string { return p.SourceAddressFile }},
)

// EncodeCSV flattens a run corpus, one row per record ordered by place_id.
func EncodeCSV(c models.Corpus) ([]byte, error) {
	return encodeCSV(c, runColumns)
}

// EncodeMergedCSV is EncodeCSV plus the provenance column.
func EncodeMergedCSV(c models.Corpus) ([]byte, error) {
	return encodeCSV(c, mergedColumns)
}

func SaveCSV(path string, c models.Corpus) error {
	b, err := EncodeCSV(c)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, b)
}

func SaveMergedCSV(path string, c models.Corpus) error {
	b, err := EncodeMergedCSV(c)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, b)
}

func encodeCSV(c models.Corpus, cols []column) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	row := make([]string, len(cols))
	for _, id := range c.IDs() {
		p := c[id]
		for i, col := range cols {
			row[i] = col.value(p)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WeekdayText joins the weekday hours with newlines, or N/A.
func WeekdayText(h *models.OpeningHours) string {
	if h == nil || len(h.WeekdayText) == 0 {
		return notAvailable
	}
	return strings.Join(h.WeekdayText, "\n")
}

// FormatReviews renders the five most recent reviews separated by blank
// lines, or N/A when there are none. Dates are UTC.
func FormatReviews(reviews []models.Review) string {
	recent := models.RecentReviews(reviews, models.MaxReviews)
	if len(recent) == 0 {
		return notAvailable
	}
	out := make([]string, len(recent))
	for i, r := range recent {
		out[i] = ReviewLine(r)
	}
	return strings.Join(out, "\n\n")
}

// ReviewLine is the one-line rendering of a review.
func ReviewLine(r models.Review) string {
	author := r.AuthorName
	if author == "" {
		author = "Anonymous"
	}
	text := r.Text
	if text == "" {
		text = "No review text provided"
	}
	date := time.Unix(r.Time, 0).UTC().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("Date: %s, Author: %s, Rating: %s, Review: %s",
		date, author, strconv.FormatFloat(r.Rating, 'f', -1, 64), text)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolCell(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

// jsonCell encodes a nested object into one cell. Nil pointers are empty.
func jsonCell[T any](v *T) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func joinJSON[T any](items []T) string {
	parts := make([]string, 0, len(items))
	for i := range items {
		parts = append(parts, jsonCell(&items[i]))
	}
	return strings.Join(parts, "; ")
}
