package enrich

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

type PipelineItem struct {
	mu      sync.Mutex
	Results map[string]any
}

func (p *PipelineItem) set(key string, val any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Results[key] = val
}

func NewPipelineItem() *PipelineItem {
	return &PipelineItem{Results: make(map[string]any)}
}

func StepAddFoo(_ context.Context, item *PipelineItem) error {
	item.set("foo", "bar")
	return nil
}

func StepAddValue(key string, val any) Step[PipelineItem] {
	return func(ctx context.Context, item *PipelineItem) error {
		item.set(key, val)
		return nil
	}
}

func StepError(_ context.Context, _ *PipelineItem) error {
	return errors.New("mock step failed")
}

func TestPipeline_Apply(t *testing.T) {
	tests := []struct {
		name     string
		stages   []Stage[PipelineItem]
		input    *PipelineItem
		expected map[string]any
	}{
		{
			name:   "single step adds foo",
			stages: []Stage[PipelineItem]{NewStage(StepAddFoo)},
			input:  NewPipelineItem(),
			expected: map[string]any{
				"foo": "bar",
			},
		},
		{
			name: "two steps in one stage run in parallel",
			stages: []Stage[PipelineItem]{
				NewStage(
					StepAddValue("x", 1),
					StepAddValue("y", 2),
				),
			},
			input: NewPipelineItem(),
			expected: map[string]any{
				"x": 1,
				"y": 2,
			},
		},
		{
			name: "multi-stage sequential dependency",
			stages: []Stage[PipelineItem]{
				NewStage(StepAddValue("a", "first")),
				NewStage(StepAddValue("b", "second")),
			},
			input: NewPipelineItem(),
			expected: map[string]any{
				"a": "first",
				"b": "second",
			},
		},
		{
			name: "step error does not break pipeline",
			stages: []Stage[PipelineItem]{
				NewStage(StepError),
				NewStage(StepAddValue("ok", true)),
			},
			input: NewPipelineItem(),
			expected: map[string]any{
				"ok": true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			NewPipeline(logger.Discard(), tt.stages...).Apply(ctx, tt.input)

			if !reflect.DeepEqual(tt.input.Results, tt.expected) {
				t.Errorf("got %+v, expected %+v", tt.input.Results, tt.expected)
			}
		})
	}
}

func TestPipeline_ApplyCountsFailures(t *testing.T) {
	p := NewPipeline(logger.Discard(),
		NewStage(StepError, StepAddFoo, StepError),
		NewStage(StepAddValue("after", 1)),
	)
	item := NewPipelineItem()
	if got := p.Apply(context.Background(), item); got != 2 {
		t.Errorf("Apply() failed steps = %d, want 2", got)
	}
	if item.Results["after"] != 1 {
		t.Error("later stage did not run after failures")
	}
}

func TestPlacePipeline(t *testing.T) {
	bad := 7
	p := &models.Place{
		PlaceID:    "p1",
		Types:      []string{"restaurant", "food", " ", "restaurant", "bar"},
		PriceLevel: &bad,
	}
	for i := int64(1); i <= 7; i++ {
		p.Reviews = append(p.Reviews, models.Review{Time: i})
	}

	failed := NewPlacePipeline(logger.Discard()).Apply(context.Background(), p)
	if failed != 1 {
		t.Errorf("failed steps = %d, want 1", failed)
	}
	if want := []string{"restaurant", "food", "bar"}; !reflect.DeepEqual(p.Types, want) {
		t.Errorf("Types = %v, want %v", p.Types, want)
	}
	if len(p.Reviews) != models.MaxReviews || p.Reviews[0].Time != 7 {
		t.Errorf("Reviews not trimmed newest first: %+v", p.Reviews)
	}
	if p.PriceLevel != nil {
		t.Errorf("PriceLevel = %d, want cleared", *p.PriceLevel)
	}
}
