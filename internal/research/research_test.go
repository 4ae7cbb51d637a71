package research

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/config"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/corpus"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/storage"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
)

var origin = models.LatLng{Lat: 41.88, Lng: -87.63}

type fakeMaps struct {
	detailCalls map[string]int
}

func newFakeMaps() *fakeMaps {
	return &fakeMaps{detailCalls: map[string]int{}}
}

func (f *fakeMaps) Geocode(ctx context.Context, address string) (*maps.Geocoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if address == "nowhere" {
		return nil, maps.ErrNoResults
	}
	return &maps.Geocoded{
		Location:         origin,
		FormattedAddress: address,
		Components:       maps.Components{City: "Chicago", State: "IL"},
	}, nil
}

func results(ids ...string) []maps.SearchResult {
	out := make([]maps.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = maps.SearchResult{PlaceID: id}
	}
	return out
}

func (f *fakeMaps) TextSearch(_ context.Context, _, _ string) (*maps.SearchResponse, error) {
	return &maps.SearchResponse{Status: maps.StatusOK, Results: results("p1", "p2")}, nil
}

func (f *fakeMaps) NearbySearch(_ context.Context, _ models.LatLng, _ int, token string) (*maps.SearchResponse, error) {
	if token == "" {
		return &maps.SearchResponse{Status: maps.StatusOK, Results: results("p2", "p3"), NextPageToken: "next"}, nil
	}
	return &maps.SearchResponse{Status: maps.StatusOK, Results: results("p4")}, nil
}

func (f *fakeMaps) PlaceDetails(_ context.Context, id string, _ []string) (*models.Place, error) {
	f.detailCalls[id]++
	if id == "p3" {
		return nil, &maps.StatusError{Service: maps.ServiceDetails, Status: maps.StatusInvalid}
	}
	p := &models.Place{Name: "Place " + id, Types: []string{"restaurant", "restaurant"}}
	p.SetCoordinate(models.LatLng{Lat: 41.89, Lng: -87.63})
	return p, nil
}

type fakeStore struct {
	uploads []storage.Upload
	err     error
}

func (s *fakeStore) Bucket() string { return "runs" }

func (s *fakeStore) PutFiles(_ context.Context, _ string, uploads []storage.Upload) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.uploads = append(s.uploads, uploads...)
	return len(uploads), nil
}

type fakePublisher struct {
	keys   []string
	events []any
}

func (p *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, v)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{DropDir: t.TempDir(), ShelfLife: 48 * time.Hour}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestResearcher_RunCachesAcrossRuns(t *testing.T) {
	cfg := testConfig(t)
	m := newFakeMaps()
	r := New(m, cfg, logger.Discard(), WithRadii([]int{500}), WithClock(fixedClock))

	rep, err := r.Run(context.Background(), "1 Main St, Chicago")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Candidates != 4 {
		t.Errorf("Candidates = %d, want 4", rep.Candidates)
	}
	if rep.Refresh.Fetched != 3 || rep.Refresh.Failed != 1 {
		t.Errorf("Refresh = %+v, want 3 fetched and 1 failed", rep.Refresh)
	}
	if rep.Places != 3 || rep.Annotated != 3 {
		t.Errorf("Places = %d Annotated = %d, want 3 and 3", rep.Places, rep.Annotated)
	}
	if _, err := os.Stat(rep.CSVPath); err != nil {
		t.Errorf("csv not written: %v", err)
	}

	saved, err := corpus.Load(rep.JSONPath)
	if err != nil {
		t.Fatal(err)
	}
	p1 := saved["p1"]
	if p1 == nil || p1.CrowFlyDistanceKm == nil || *p1.CrowFlyDistanceKm != 1.11 {
		t.Errorf("p1 distance = %+v", p1)
	}
	if len(p1.Types) != 1 {
		t.Errorf("p1 types not deduplicated: %v", p1.Types)
	}

	rep, err = r.Run(context.Background(), "1 Main St, Chicago")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if rep.Refresh.Fresh != 3 || rep.Refresh.Fetched != 0 {
		t.Errorf("second Refresh = %+v, want 3 fresh", rep.Refresh)
	}
	if m.detailCalls["p1"] != 1 || m.detailCalls["p3"] != 2 {
		t.Errorf("detail calls = %v", m.detailCalls)
	}
}

func TestResearcher_RunLeavesFreshRecordsUntouched(t *testing.T) {
	cfg := testConfig(t)
	address := "1 Main St, Chicago"
	path := keys.RunJSON(cfg.DropDir, address)

	level, dist := 9, 0.5
	seed := &models.Place{
		PlaceID:           "p1",
		Name:              "Cached",
		Types:             []string{"bar", "bar", " "},
		PriceLevel:        &level,
		CrowFlyDistanceKm: &dist,
	}
	seed.SetCoordinate(models.LatLng{Lat: 41.89, Lng: -87.63})
	seed.Stamp(fixedClock().Add(-time.Hour))
	if err := corpus.SaveJSON(path, models.Corpus{"p1": seed}); err != nil {
		t.Fatal(err)
	}
	before, err := corpus.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	m := newFakeMaps()
	r := New(m, cfg, logger.Discard(), WithRadii([]int{500}), WithClock(fixedClock))
	rep, err := r.Run(context.Background(), address)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.detailCalls["p1"] != 0 {
		t.Errorf("detail calls for p1 = %d, want 0", m.detailCalls["p1"])
	}
	for _, id := range rep.Refresh.FetchedIDs {
		if id == "p1" {
			t.Errorf("FetchedIDs = %v, must not list fresh p1", rep.Refresh.FetchedIDs)
		}
	}

	after, err := corpus.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(after["p1"], before["p1"]) {
		t.Errorf("fresh p1 changed:\n got %+v\nwant %+v", after["p1"], before["p1"])
	}
	if p2 := after["p2"]; p2 == nil || len(p2.Types) != 1 {
		t.Errorf("fetched p2 not enriched: %+v", p2)
	}
}

func TestResearcher_RunMirrorsAndPublishes(t *testing.T) {
	cfg := testConfig(t)
	store := &fakeStore{}
	pub := &fakePublisher{}
	r := New(newFakeMaps(), cfg, logger.Discard(),
		WithRadii(nil), WithClock(fixedClock), WithObjectStore(store), WithPublisher(pub))
	r.newID = func() string { return "run-1" }

	rep, err := r.Run(context.Background(), "1 Main St, Chicago")
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Mirrored || !rep.Published {
		t.Fatalf("Mirrored = %v Published = %v", rep.Mirrored, rep.Published)
	}
	if len(store.uploads) != 2 || store.uploads[0].Key != "runs/restaurant_data_1_Main_St_Chicago.json" {
		t.Errorf("uploads = %+v", store.uploads)
	}
	ev, ok := pub.events[0].(models.RunEvent)
	if !ok {
		t.Fatalf("event type %T", pub.events[0])
	}
	if pub.keys[0] != "run-1" || ev.Bucket != "runs" || ev.Key != store.uploads[0].Key || ev.Places != 2 {
		t.Errorf("event = %+v", ev)
	}
}

func TestResearcher_NoEventWhenMirrorFails(t *testing.T) {
	cfg := testConfig(t)
	pub := &fakePublisher{}
	r := New(newFakeMaps(), cfg, logger.Discard(),
		WithRadii(nil), WithObjectStore(&fakeStore{err: errors.New("bucket gone")}), WithPublisher(pub))

	rep, err := r.Run(context.Background(), "1 Main St, Chicago")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Mirrored || rep.Published || len(pub.events) != 0 {
		t.Errorf("event published after failed mirror: %+v", rep)
	}
}

func TestResearcher_RunAllIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	r := New(newFakeMaps(), cfg, logger.Discard(), WithRadii(nil))

	reports, failed, err := r.RunAll(context.Background(), []config.Address{
		{Label: "bad", Address: "nowhere"},
		{Label: "good", Address: "1 Main St, Chicago"},
	})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if failed != 1 || len(reports) != 2 {
		t.Errorf("failed = %d reports = %d, want 1 and 2", failed, len(reports))
	}
	if _, err := os.Stat(reports[0].JSONPath); !os.IsNotExist(err) {
		t.Error("failed geocode should not write a run file")
	}
	if _, err := os.Stat(reports[1].JSONPath); err != nil {
		t.Errorf("good run not saved: %v", err)
	}
}

func TestResearcher_RunAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(newFakeMaps(), testConfig(t), logger.Discard())
	_, _, err := r.RunAll(ctx, []config.Address{{Label: "a", Address: "1 Main St"}, {Label: "b", Address: "2 Main St"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunAll() err = %v, want context.Canceled", err)
	}
}
