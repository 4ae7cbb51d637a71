package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// DedupeTypes drops repeated and blank category tags, keeping first order.
func DedupeTypes(_ context.Context, p *models.Place) error {
	if len(p.Types) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(p.Types))
	out := p.Types[:0]
	for _, t := range p.Types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	p.Types = out
	return nil
}

// TrimReviews keeps the most recent reviews, newest first.
func TrimReviews(_ context.Context, p *models.Place) error {
	if len(p.Reviews) == 0 {
		return nil
	}
	p.Reviews = models.RecentReviews(p.Reviews, models.MaxReviews)
	return nil
}

// CheckPriceLevel rejects price levels outside 0..4 by clearing them.
func CheckPriceLevel(_ context.Context, p *models.Place) error {
	if p.PriceLevel == nil {
		return nil
	}
	if lvl := *p.PriceLevel; lvl < 0 || lvl > 4 {
		p.PriceLevel = nil
		return fmt.Errorf("place %s: price level %d out of range", p.PlaceID, lvl)
	}
	return nil
}

// NewPlacePipeline is the pipeline every freshly fetched record runs
// through. The steps touch disjoint fields and share one stage.
func NewPlacePipeline(logger *slog.Logger) *Pipeline[models.Place] {
	return NewPipeline(logger, NewStage[models.Place](DedupeTypes, TrimReviews, CheckPriceLevel))
}
