// Package distance annotates places with their great-circle distance to
// reference points.
//
// Two update rules live here and are kept apart on purpose: Annotator only
// ever lowers a stored distance, Recompute replaces it outright.
package distance

import (
	"log/slog"
	"math"

	"github.com/golang/geo/s2"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometers,
// rounded to two decimals.
func Haversine(a, b models.LatLng) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return Round2(la.Distance(lb).Radians() * EarthRadiusKm)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Nearest returns the distance to the closest of refs and its index.
// ok is false when refs is empty.
func Nearest(p models.LatLng, refs []models.LatLng) (km float64, idx int, ok bool) {
	idx = -1
	for i, ref := range refs {
		d := Haversine(p, ref)
		if idx < 0 || d < km {
			km, idx = d, i
		}
	}
	return km, idx, idx >= 0
}

type Annotator struct {
	logger *slog.Logger
}

func NewAnnotator(logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{logger: logger}
}

// Annotate sets the distance from origin on each listed record, but only when
// none is stored yet or the new value is strictly smaller. A nil ids slice
// means every record. Records without a coordinate are skipped. It returns
// the number of records changed.
func (a *Annotator) Annotate(corpus models.Corpus, ids []string, origin models.LatLng) int {
	if ids == nil {
		ids = corpus.IDs()
	}
	updated := 0
	for _, id := range ids {
		p, ok := corpus[id]
		if !ok {
			continue
		}
		loc, ok := p.Coordinate()
		if !ok {
			a.logger.Warn("skipping distance, record has no coordinate", "place_id", id)
			continue
		}
		d := Haversine(origin, loc)
		if p.CrowFlyDistanceKm != nil && d >= *p.CrowFlyDistanceKm {
			continue
		}
		p.CrowFlyDistanceKm = &d
		updated++
	}
	return updated
}

// RecomputeReport counts the outcome of a Recompute pass.
type RecomputeReport struct {
	Updated int
	Skipped int
}

// Recompute overwrites every record's distance with the minimum over refs,
// ignoring whatever was stored before. Records without a coordinate keep
// their stored value and are counted as skipped. An empty refs list changes
// nothing.
func Recompute(corpus models.Corpus, refs []models.LatLng) RecomputeReport {
	var r RecomputeReport
	if len(refs) == 0 {
		r.Skipped = len(corpus)
		return r
	}
	for _, p := range corpus {
		loc, ok := p.Coordinate()
		if !ok {
			r.Skipped++
			continue
		}
		d, _, _ := Nearest(loc, refs)
		p.CrowFlyDistanceKm = &d
		r.Updated++
	}
	return r
}
