// Package metrics holds the counters of one batch run. The commands are
// short-lived, so the set is pushed to a Pushgateway on exit instead of
// being scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Detail cache outcomes.
const (
	CacheFresh   = "fresh"
	CacheFetched = "fetched"
	CacheFailed  = "failed"
)

// Set is safe to use as a nil pointer; every method is then a no-op.
type Set struct {
	Registry *prometheus.Registry

	apiCalls      *prometheus.CounterVec
	cache         *prometheus.CounterVec
	degraded      prometheus.Counter
	candidates    prometheus.Counter
	runs          *prometheus.CounterVec
	mergedRecords prometheus.Gauge
	mergeMismatch *prometheus.GaugeVec
	repairs       *prometheus.CounterVec
}

func New() *Set {
	s := &Set{
		Registry: prometheus.NewRegistry(),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "places_api_calls_total",
			Help: "Maps web-service calls by service and response status",
		}, []string{"service", "status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "places_detail_cache_total",
			Help: "Detail freshness decisions by outcome",
		}, []string{"outcome"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "places_degraded_coordinates_total",
			Help: "Detail records that fell back to the reference coordinate",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "places_candidates_total",
			Help: "Candidate IDs discovered across runs",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "places_runs_total",
			Help: "Per-address research runs by result",
		}, []string{"result"}),
		mergedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "places_merged_records",
			Help: "Records in the last merged corpus",
		}),
		mergeMismatch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "places_merge_mismatch",
			Help: "IDs missing from or extra in the last merged corpus",
		}, []string{"kind"}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "places_coordinate_repairs_total",
			Help: "Coordinate repairs by result",
		}, []string{"result"}),
	}
	s.Registry.MustRegister(
		s.apiCalls, s.cache, s.degraded, s.candidates,
		s.runs, s.mergedRecords, s.mergeMismatch, s.repairs,
	)
	return s
}

// ObserveCall satisfies maps.Recorder.
func (s *Set) ObserveCall(service, status string) {
	if s == nil {
		return
	}
	s.apiCalls.WithLabelValues(service, status).Inc()
}

func (s *Set) CacheOutcome(outcome string) {
	if s == nil {
		return
	}
	s.cache.WithLabelValues(outcome).Inc()
}

func (s *Set) DegradedCoordinate() {
	if s == nil {
		return
	}
	s.degraded.Inc()
}

func (s *Set) Candidates(n int) {
	if s == nil {
		return
	}
	s.candidates.Add(float64(n))
}

func (s *Set) RunFinished(err error) {
	if s == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	s.runs.WithLabelValues(result).Inc()
}

func (s *Set) Merged(records, missing, extra int) {
	if s == nil {
		return
	}
	s.mergedRecords.Set(float64(records))
	s.mergeMismatch.WithLabelValues("missing").Set(float64(missing))
	s.mergeMismatch.WithLabelValues("extra").Set(float64(extra))
}

func (s *Set) Repairs(repaired, failed int) {
	if s == nil {
		return
	}
	s.repairs.WithLabelValues("repaired").Add(float64(repaired))
	s.repairs.WithLabelValues("failed").Add(float64(failed))
}

// Push sends the set to a Pushgateway under job. An empty url is a no-op.
func (s *Set) Push(ctx context.Context, url, job string) error {
	if s == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(s.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
