// Package research runs the per-address pipeline: geocode the address,
// discover candidates, refresh stale details, annotate distances and save
// the run corpus. Saved runs are optionally mirrored to the object store and
// announced on the run-event topic.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/config"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/corpus"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/discovery"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/distance"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/enrich"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/fetcher"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/metrics"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/storage"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
)

// Maps is everything a run needs from the Maps client.
type Maps interface {
	Geocode(ctx context.Context, address string) (*maps.Geocoded, error)
	discovery.Searcher
	fetcher.DetailService
}

// ObjectStore receives the saved run files.
type ObjectStore interface {
	Bucket() string
	PutFiles(ctx context.Context, bucket string, uploads []storage.Upload) (int, error)
}

// Publisher announces completed runs.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Researcher struct {
	maps    Maps
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Set
	enrich  *enrich.Pipeline[models.Place]
	store   ObjectStore
	events  Publisher
	radii   []int
	now     func() time.Time
	newID   func() string
}

type Option func(*Researcher)

func WithMetrics(m *metrics.Set) Option {
	return func(r *Researcher) { r.metrics = m }
}

func WithObjectStore(s ObjectStore) Option {
	return func(r *Researcher) { r.store = s }
}

// WithPublisher enables run events. Events are only sent for runs whose
// files reached the object store, since the event points at the object.
func WithPublisher(p Publisher) Option {
	return func(r *Researcher) { r.events = p }
}

// WithRadii replaces the nearby-search radii.
func WithRadii(radii []int) Option {
	return func(r *Researcher) { r.radii = radii }
}

func WithClock(now func() time.Time) Option {
	return func(r *Researcher) { r.now = now }
}

func New(m Maps, cfg *config.Config, logger *slog.Logger, opts ...Option) *Researcher {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Researcher{
		maps:   m,
		cfg:    cfg,
		logger: logger,
		radii:  discovery.DefaultRadii,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.enrich = enrich.NewPlacePipeline(logger)
	return r
}

// Report summarises one run.
type Report struct {
	RunID      string
	Address    string
	Origin     models.LatLng
	JSONPath   string
	CSVPath    string
	Candidates int
	Refresh    fetcher.RefreshReport
	Annotated  int
	Places     int
	Mirrored   bool
	Published  bool
}

// Run researches one address. A geocoding failure ends the run before
// anything is written. On cancellation the partially refreshed corpus is
// still saved before the error is returned.
func (r *Researcher) Run(ctx context.Context, address string) (*Report, error) {
	rep := &Report{
		RunID:    r.newID(),
		Address:  address,
		JSONPath: keys.RunJSON(r.cfg.DropDir, address),
		CSVPath:  keys.RunCSV(r.cfg.DropDir, address),
	}
	log := r.logger.With("run_id", rep.RunID, "address", address)

	geo, err := r.maps.Geocode(ctx, address)
	if err != nil {
		return rep, fmt.Errorf("geocode %q: %w", address, err)
	}
	rep.Origin = geo.Location
	log.Info("address geocoded", "location", geo.Location.String(), "formatted_address", geo.FormattedAddress)

	phrases := discovery.BuildPhrases(address, geo.Components)
	cands, err := discovery.NewDiscoverer(r.maps, r.cfg.PageTokenDelay, r.cfg.QueryDelay, log).
		Discover(ctx, geo.Location, phrases, r.radii)
	if err != nil {
		return rep, err
	}
	rep.Candidates = cands.Len()
	r.metrics.Candidates(cands.Len())

	c, err := corpus.Load(rep.JSONPath)
	if err != nil {
		return rep, err
	}
	log.Info("run corpus loaded", "records", len(c), "path", rep.JSONPath)

	ids := cands.IDs()
	f := fetcher.New(r.maps, r.cfg.ShelfLife, r.cfg.DetailDelay, geo.Location, log,
		fetcher.WithClock(r.now), fetcher.WithMetrics(r.metrics))
	rep.Refresh, err = f.Refresh(ctx, c, ids)
	runErr := err

	for _, id := range rep.Refresh.FetchedIDs {
		r.enrich.Apply(ctx, c[id])
	}
	rep.Annotated = distance.NewAnnotator(log).Annotate(c, ids, geo.Location)
	rep.Places = len(c)

	if err := corpus.SaveJSON(rep.JSONPath, c); err != nil {
		return rep, err
	}
	if err := corpus.SaveCSV(rep.CSVPath, c); err != nil {
		return rep, err
	}
	log.Info("run corpus saved", "records", rep.Places, "annotated", rep.Annotated, "json", rep.JSONPath, "csv", rep.CSVPath)
	if runErr != nil {
		return rep, runErr
	}

	r.mirror(ctx, rep, log)
	return rep, nil
}

// mirror uploads the run files and announces them. Failures are logged; the
// local files are already saved.
func (r *Researcher) mirror(ctx context.Context, rep *Report, log *slog.Logger) {
	if r.store == nil {
		return
	}
	bucket := r.store.Bucket()
	uploads := []storage.Upload{
		{Path: rep.JSONPath, Key: keys.RunObject(rep.JSONPath)},
		{Path: rep.CSVPath, Key: keys.RunObject(rep.CSVPath)},
	}
	if _, err := r.store.PutFiles(ctx, bucket, uploads); err != nil {
		log.Warn("failed to mirror run files", "bucket", bucket, "err", err)
		return
	}
	rep.Mirrored = true

	if r.events == nil {
		return
	}
	ev := models.RunEvent{
		RunID:       rep.RunID,
		Address:     rep.Address,
		Bucket:      bucket,
		Key:         keys.RunObject(rep.JSONPath),
		Places:      rep.Places,
		CompletedAt: r.now().UTC(),
	}
	if err := r.events.PublishJSON(ctx, rep.RunID, ev); err != nil {
		log.Warn("failed to publish run event", "err", err)
		return
	}
	rep.Published = true
}

// RunAll researches each address in turn. A failed address is logged and
// the rest still run. Only cancellation stops the loop early.
func (r *Researcher) RunAll(ctx context.Context, addresses []config.Address) ([]*Report, int, error) {
	var (
		reports []*Report
		failed  int
	)
	for i, a := range addresses {
		r.logger.Info("starting research run", "label", a.Label, "progress", fmt.Sprintf("%d/%d", i+1, len(addresses)))
		rep, err := r.Run(ctx, a.Address)
		r.metrics.RunFinished(err)
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			if ctx.Err() != nil {
				return reports, failed + 1, ctx.Err()
			}
			failed++
			r.logger.Error("research run failed", "label", a.Label, "address", a.Address, "err", err)
		}
	}
	return reports, failed, nil
}
