// Package discovery turns a reference address into the set of candidate
// place IDs worth fetching details for.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

// Searcher is the search half of the Maps client.
type Searcher interface {
	TextSearch(ctx context.Context, query, pageToken string) (*maps.SearchResponse, error)
	NearbySearch(ctx context.Context, loc models.LatLng, radius int, pageToken string) (*maps.SearchResponse, error)
}

type Discoverer struct {
	search     Searcher
	pageDelay  time.Duration
	queryDelay time.Duration
	logger     *slog.Logger
}

func NewDiscoverer(search Searcher, pageDelay, queryDelay time.Duration, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{search: search, pageDelay: pageDelay, queryDelay: queryDelay, logger: logger}
}

type pageFunc func(ctx context.Context, token string) (*maps.SearchResponse, error)

// Discover runs every phrase through text search and every radius through
// nearby search around origin. A failing query is logged and skipped. The
// only error returned is context cancellation.
func (d *Discoverer) Discover(ctx context.Context, origin models.LatLng, phrases []string, radii []int) (*CandidateSet, error) {
	set := NewCandidateSet()

	for _, phrase := range phrases {
		phrase := phrase
		fetch := func(ctx context.Context, token string) (*maps.SearchResponse, error) {
			return d.search.TextSearch(ctx, phrase, token)
		}
		if err := d.walk(ctx, set, fmt.Sprintf("phrase %q", phrase), fetch); err != nil {
			return set, err
		}
	}

	for _, radius := range radii {
		radius := radius
		fetch := func(ctx context.Context, token string) (*maps.SearchResponse, error) {
			return d.search.NearbySearch(ctx, origin, radius, token)
		}
		if err := d.walk(ctx, set, fmt.Sprintf("radius %dm", radius), fetch); err != nil {
			return set, err
		}
	}

	d.logger.Info("candidate discovery finished", "phrases", len(phrases), "radii", len(radii), "candidates", set.Len())
	return set, nil
}

// walk follows pagination tokens for one query and then applies the
// inter-query delay.
func (d *Discoverer) walk(ctx context.Context, set *CandidateSet, label string, fetch pageFunc) error {
	var (
		token   string
		results int
		added   int
		pages   int
	)
	for {
		resp, err := fetch(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warn("search query failed", "query", label, "page", pages+1, "err", err)
			break
		}
		pages++
		ids := resp.IDs()
		results += len(ids)
		added += set.Add(ids...)

		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
		if err := transport.Wait(ctx, d.pageDelay); err != nil {
			return err
		}
	}

	d.logger.Debug("search query done", "query", label, "pages", pages, "results", results, "new", added)
	return transport.Wait(ctx, d.queryDelay)
}
