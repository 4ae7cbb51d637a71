// Package fetcher keeps place detail records fresh. A record younger than
// the shelf-life is never refetched.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/metrics"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

// DetailService is the details half of the Maps client.
type DetailService interface {
	PlaceDetails(ctx context.Context, id string, fields []string) (*models.Place, error)
}

type Fetcher struct {
	details   DetailService
	shelfLife time.Duration
	delay     time.Duration
	origin    models.LatLng
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Set
}

type Option func(*Fetcher)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

func WithMetrics(m *metrics.Set) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// New builds a fetcher for one run. origin is the run's reference
// coordinate, used when a detail record comes back without one.
func New(details DetailService, shelfLife, delay time.Duration, origin models.LatLng, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		details:   details,
		shelfLife: shelfLife,
		delay:     delay,
		origin:    origin,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fresh reports whether p was enriched less than the shelf-life ago.
func (f *Fetcher) Fresh(p *models.Place) bool {
	if p == nil {
		return false
	}
	return f.now().Sub(p.LastEnriched()) < f.shelfLife
}

// EnsureFresh returns nil, nil when corpus already holds a fresh record for
// id. Otherwise it fetches details, stamps them with the current time and
// returns the new record without touching corpus.
func (f *Fetcher) EnsureFresh(ctx context.Context, corpus models.Corpus, id string) (*models.Place, error) {
	if f.Fresh(corpus[id]) {
		f.metrics.CacheOutcome(metrics.CacheFresh)
		return nil, nil
	}

	if err := transport.Wait(ctx, f.delay); err != nil {
		return nil, err
	}
	p, err := f.details.PlaceDetails(ctx, id, nil)
	if err != nil {
		f.metrics.CacheOutcome(metrics.CacheFailed)
		return nil, fmt.Errorf("fetch details for %s: %w", id, err)
	}

	p.PlaceID = id
	p.Reviews = models.RecentReviews(p.Reviews, models.MaxReviews)
	if _, ok := p.Coordinate(); !ok {
		f.logger.Warn("details missing coordinate, using reference coordinate", "place_id", id, "origin", f.origin.String())
		f.metrics.DegradedCoordinate()
		p.SetCoordinate(f.origin)
	}
	if prev, ok := corpus[id]; ok && prev.CrowFlyDistanceKm != nil {
		d := *prev.CrowFlyDistanceKm
		p.CrowFlyDistanceKm = &d
	}
	p.Stamp(f.now())
	f.metrics.CacheOutcome(metrics.CacheFetched)
	return p, nil
}

// RefreshReport counts what a Refresh pass did. FetchedIDs lists the
// records replaced by new details, in request order.
type RefreshReport struct {
	Fresh      int
	Fetched    int
	Failed     int
	FetchedIDs []string
}

// Refresh runs EnsureFresh for every id and upserts what comes back. A
// failed fetch is logged and the batch continues. Only cancellation stops it.
func (f *Fetcher) Refresh(ctx context.Context, corpus models.Corpus, ids []string) (RefreshReport, error) {
	var r RefreshReport
	for i, id := range ids {
		p, err := f.EnsureFresh(ctx, corpus, id)
		switch {
		case err != nil && ctx.Err() != nil:
			return r, ctx.Err()
		case err != nil:
			r.Failed++
			f.logger.Warn("detail fetch failed", "place_id", id, "err", err)
		case p == nil:
			r.Fresh++
			f.logger.Debug("cached details are fresh", "place_id", id)
		default:
			r.Fetched++
			r.FetchedIDs = append(r.FetchedIDs, id)
			corpus.Upsert(p)
			f.logger.Debug("details fetched", "place_id", id, "progress", fmt.Sprintf("%d/%d", i+1, len(ids)))
		}
	}
	f.logger.Info("detail refresh finished", "ids", len(ids), "fresh", r.Fresh, "fetched", r.Fetched, "failed", r.Failed)
	return r, nil
}
