package distance

import (
	"testing"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

func place(id string, lat, lng float64, dist *float64) *models.Place {
	p := &models.Place{PlaceID: id, CrowFlyDistanceKm: dist}
	p.SetCoordinate(models.LatLng{Lat: lat, Lng: lng})
	return p
}

func km(v float64) *float64 { return &v }

func TestHaversine(t *testing.T) {
	tests := []struct {
		name string
		a, b models.LatLng
		want float64
	}{
		{name: "same point", a: models.LatLng{Lat: 40.7911, Lng: -73.9740}, b: models.LatLng{Lat: 40.7911, Lng: -73.9740}, want: 0},
		{name: "one degree of longitude on the equator", a: models.LatLng{}, b: models.LatLng{Lng: 1}, want: 111.19},
		{name: "new york to chicago", a: models.LatLng{Lat: 40.7128, Lng: -74.0060}, b: models.LatLng{Lat: 41.8781, Lng: -87.6298}, want: 1144.29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Haversine(tt.a, tt.b); got != tt.want {
				t.Errorf("Haversine = %v, want %v", got, tt.want)
			}
			if got := Haversine(tt.b, tt.a); got != tt.want {
				t.Errorf("Haversine reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnnotate_OnlyLowers(t *testing.T) {
	origin := models.LatLng{}
	corpus := models.Corpus{
		"unset":   place("unset", 0, 1, nil),
		"farther": place("farther", 0, 1, km(50)),
		"closer":  place("closer", 0, 1, km(10)),
		"equal":   place("equal", 0, 1, km(111.19)),
		"nogeo":   {PlaceID: "nogeo"},
	}

	a := NewAnnotator(logger.Discard())
	if n := a.Annotate(corpus, nil, origin); n != 2 {
		t.Errorf("updated %d records, want 2", n)
	}

	want := map[string]float64{"unset": 111.19, "farther": 111.19, "closer": 10, "equal": 111.19}
	for id, w := range want {
		if got := *corpus[id].CrowFlyDistanceKm; got != w {
			t.Errorf("%s distance = %v, want %v", id, got, w)
		}
	}
	if corpus["nogeo"].CrowFlyDistanceKm != nil {
		t.Errorf("record without coordinate must not be annotated")
	}
}

func TestAnnotate_MonotonicAcrossOrigins(t *testing.T) {
	corpus := models.Corpus{"p": place("p", 0, 0, nil)}
	a := NewAnnotator(logger.Discard())

	origins := []models.LatLng{{Lng: 2}, {Lng: 3}, {Lng: 1}, {Lng: 4}}
	wantAfter := []float64{222.39, 222.39, 111.19, 111.19}
	for i, o := range origins {
		a.Annotate(corpus, []string{"p", "missing"}, o)
		if got := *corpus["p"].CrowFlyDistanceKm; got != wantAfter[i] {
			t.Errorf("after origin %d distance = %v, want %v", i, got, wantAfter[i])
		}
	}
}

func TestRecompute_IgnoresStoredValue(t *testing.T) {
	refs := []models.LatLng{{Lng: 3}, {Lng: 2}}
	corpus := models.Corpus{
		"stored-smaller": place("stored-smaller", 0, 0, km(1)),
		"stored-nil":     place("stored-nil", 0, 0, nil),
		"nogeo":          {PlaceID: "nogeo", CrowFlyDistanceKm: km(7)},
	}

	r := Recompute(corpus, refs)
	if r.Updated != 2 || r.Skipped != 1 {
		t.Errorf("report = %+v", r)
	}
	for _, id := range []string{"stored-smaller", "stored-nil"} {
		if got := *corpus[id].CrowFlyDistanceKm; got != 222.39 {
			t.Errorf("%s distance = %v, want 222.39", id, got)
		}
	}
	if *corpus["nogeo"].CrowFlyDistanceKm != 7 {
		t.Errorf("record without coordinate must keep its stored distance")
	}

	if r := Recompute(corpus, nil); r.Updated != 0 {
		t.Errorf("empty refs changed %d records", r.Updated)
	}
}

func TestNearest(t *testing.T) {
	if _, _, ok := Nearest(models.LatLng{}, nil); ok {
		t.Fatal("Nearest with no refs must report !ok")
	}
	d, idx, ok := Nearest(models.LatLng{}, []models.LatLng{{Lng: 5}, {Lng: 1}, {Lng: 1}})
	if !ok || idx != 1 || d != 111.19 {
		t.Errorf("Nearest = %v, %d, %v", d, idx, ok)
	}
}
