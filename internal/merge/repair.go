package merge

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// Geocoder resolves an address to a coordinate.
type Geocoder interface {
	Coordinates(ctx context.Context, address string) (models.LatLng, error)
}

// Fallback tries each geocoder in order and returns the first coordinate
// found. All errors are returned joined when none succeeds.
type Fallback []Geocoder

func (f Fallback) Coordinates(ctx context.Context, address string) (models.LatLng, error) {
	var errs []error
	for _, g := range f {
		loc, err := g.Coordinates(ctx, address)
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return models.LatLng{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return models.LatLng{}, errors.New("no geocoder configured")
	}
	return models.LatLng{}, errors.Join(errs...)
}

type RepairReport struct {
	Repaired int
	Failed   int
}

// RepairCoordinates geocodes the formatted address of every record without
// a coordinate. Records with no address count as failed without a call.
// Only cancellation returns an error.
func RepairCoordinates(ctx context.Context, c models.Corpus, geo Geocoder, logger *slog.Logger) (RepairReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var r RepairReport
	for _, id := range c.IDs() {
		p := c[id]
		if _, ok := p.Coordinate(); ok {
			continue
		}
		addr := strings.TrimSpace(p.FormattedAddress)
		if addr == "" {
			r.Failed++
			logger.Warn("cannot repair coordinate, no address", "place_id", id)
			continue
		}
		loc, err := geo.Coordinates(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			r.Failed++
			logger.Warn("coordinate repair failed", "place_id", id, "address", addr, "err", err)
			continue
		}
		p.SetCoordinate(loc)
		r.Repaired++
	}
	logger.Info("coordinate repair finished", "repaired", r.Repaired, "failed", r.Failed)
	return r, nil
}

// ReferencePoints geocodes each address. Failures are logged and left out.
func ReferencePoints(ctx context.Context, addresses []string, geo Geocoder, logger *slog.Logger) ([]models.LatLng, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var refs []models.LatLng
	for _, a := range addresses {
		loc, err := geo.Coordinates(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				return refs, ctx.Err()
			}
			logger.Warn("reference address not geocoded", "address", a, "err", err)
			continue
		}
		refs = append(refs, loc)
	}
	return refs, nil
}
