// Package render draws the merged corpus and the reference places on a
// self-contained Leaflet map.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strconv"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/corpus"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// priceColors shade cheaper places lighter.
var priceColors = []string{"#d4d4d4", "#a9a9a9", "#7e7e7e", "#535353"}

// PriceColor maps a price level to its marker colour. Levels outside 1..4
// get the darkest shade.
func PriceColor(level int) string {
	if level < 1 || level > len(priceColors) {
		return priceColors[len(priceColors)-1]
	}
	return priceColors[level-1]
}

type Options struct {
	MinRating   float64
	PriceLevels []int
	Center      models.LatLng
	Zoom        int
	// LogoURL is the icon for reference places. Empty uses the default pin.
	LogoURL string
	Logger  *slog.Logger
}

// DefaultOptions centres the map on Chicago at continental zoom.
func DefaultOptions() Options {
	return Options{
		MinRating:   4.0,
		PriceLevels: []int{3, 4},
		Center:      models.LatLng{Lat: 41.881832, Lng: -87.623177},
		Zoom:        5,
	}
}

// Stats describes what a render drew.
type Stats struct {
	References int
	Included   int
	Drawn      int
}

type marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Color string  `json:"color,omitempty"`
	Popup string  `json:"popup"`
}

type page struct {
	Center     models.LatLng
	Zoom       int
	LogoURL    string
	References []marker
	Places     []marker
}

// Include reports whether p passes the rating and price filters. A missing
// rating counts as zero and a missing price level never matches.
func (o Options) Include(p *models.Place) bool {
	if p.PriceLevel == nil {
		return false
	}
	allowed := false
	for _, lvl := range o.PriceLevels {
		if *p.PriceLevel == lvl {
			allowed = true
			break
		}
	}
	rating := 0.0
	if p.Rating != nil {
		rating = *p.Rating
	}
	return allowed && rating >= o.MinRating
}

// Render writes the map page. Places pass through Options.Include and are
// drawn only when they carry a coordinate.
func Render(w io.Writer, refs []Reference, c models.Corpus, opts Options) (Stats, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Zoom == 0 {
		opts.Zoom = DefaultOptions().Zoom
	}

	var st Stats
	pg := page{Center: opts.Center, Zoom: opts.Zoom, LogoURL: opts.LogoURL}

	for _, ref := range refs {
		popup, err := execString(cardTmpl, ref)
		if err != nil {
			return st, fmt.Errorf("render card for %s: %w", ref.Name, err)
		}
		pg.References = append(pg.References, marker{Lat: ref.Lat, Lng: ref.Lng, Popup: popup})
		st.References++
	}

	for _, id := range c.IDs() {
		p := c[id]
		if !opts.Include(p) {
			continue
		}
		st.Included++
		loc, ok := p.Coordinate()
		if !ok {
			continue
		}
		popup, err := execString(popupTmpl, popupData(p))
		if err != nil {
			return st, fmt.Errorf("render popup for %s: %w", id, err)
		}
		pg.Places = append(pg.Places, marker{Lat: loc.Lat, Lng: loc.Lng, Color: PriceColor(*p.PriceLevel), Popup: popup})
		st.Drawn++
	}

	if err := pageTmpl.Execute(w, pg); err != nil {
		return st, fmt.Errorf("render map page: %w", err)
	}
	opts.Logger.Info("map rendered", "references", st.References, "included", st.Included, "drawn", st.Drawn)
	return st, nil
}

// RenderFile renders to path, replacing it whole.
func RenderFile(path string, refs []Reference, c models.Corpus, opts Options) (Stats, error) {
	var buf bytes.Buffer
	st, err := Render(&buf, refs, c, opts)
	if err != nil {
		return st, err
	}
	return st, corpus.WriteFile(path, buf.Bytes())
}

type popupFields struct {
	Name    string
	Address string
	Phone   string
	Rating  string
	Price   string
	Summary string
	Website string
	URL     string
}

func popupData(p *models.Place) popupFields {
	f := popupFields{
		Name:    p.Name,
		Address: orNA(p.FormattedAddress),
		Phone:   orNA(p.FormattedPhoneNumber),
		Rating:  "0",
		Price:   strconv.Itoa(*p.PriceLevel),
		Summary: "N/A",
		Website: p.Website,
		URL:     p.URL,
	}
	if p.Rating != nil {
		f.Rating = strconv.FormatFloat(*p.Rating, 'f', -1, 64)
	}
	if p.EditorialSummary != nil && p.EditorialSummary.Overview != "" {
		f.Summary = p.EditorialSummary.Overview
	}
	return f
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func execString(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
