package enrich

import (
	"context"
	"log/slog"
	"sync"
)

// Pipeline applies a sequence of stages to one item at a time. Stages run in
// order; the steps of a stage run concurrently on the same item, so they must
// touch disjoint fields. Step errors are logged and counted but never stop
// the item.
type Pipeline[T any] struct {
	stages []Stage[T]
	logger *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided stages. Stages will be
// applied to each item in order.
func NewPipeline[T any](logger *slog.Logger, stages ...Stage[T]) *Pipeline[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline[T]{stages: stages, logger: logger}
}

// Apply runs every stage on one item and returns the number of failed steps.
// All steps in a stage are started concurrently and must complete before
// the next stage starts.
func (p *Pipeline[T]) Apply(ctx context.Context, item *T) int {
	var (
		mu     sync.Mutex
		failed int
	)
	for _, stage := range p.stages {
		var wg sync.WaitGroup
		for _, step := range stage.steps {
			wg.Add(1)
			go func(step Step[T]) {
				defer wg.Done()
				if err := step(ctx, item); err != nil {
					p.logger.Warn("enrichment step failed", "err", err)
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}(step)
		}
		wg.Wait()
	}
	return failed
}
