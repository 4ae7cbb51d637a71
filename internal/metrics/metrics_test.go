package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSet_Counters(t *testing.T) {
	s := New()
	s.ObserveCall("details", "OK")
	s.ObserveCall("details", "OK")
	s.ObserveCall("textsearch", "INVALID_REQUEST")
	s.CacheOutcome(CacheFresh)
	s.CacheOutcome(CacheFetched)
	s.CacheOutcome(CacheFetched)
	s.RunFinished(nil)
	s.RunFinished(errors.New("geocode failed"))
	s.Merged(10, 2, 1)
	s.Repairs(3, 1)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"details ok", testutil.ToFloat64(s.apiCalls.WithLabelValues("details", "OK")), 2},
		{"text invalid", testutil.ToFloat64(s.apiCalls.WithLabelValues("textsearch", "INVALID_REQUEST")), 1},
		{"cache fresh", testutil.ToFloat64(s.cache.WithLabelValues(CacheFresh)), 1},
		{"cache fetched", testutil.ToFloat64(s.cache.WithLabelValues(CacheFetched)), 2},
		{"runs failed", testutil.ToFloat64(s.runs.WithLabelValues("failed")), 1},
		{"merged records", testutil.ToFloat64(s.mergedRecords), 10},
		{"missing ids", testutil.ToFloat64(s.mergeMismatch.WithLabelValues("missing")), 2},
		{"repaired", testutil.ToFloat64(s.repairs.WithLabelValues("repaired")), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSet_NilIsNoop(t *testing.T) {
	var s *Set
	s.ObserveCall("geocode", "OK")
	s.CacheOutcome(CacheFailed)
	s.DegradedCoordinate()
	s.Candidates(3)
	s.RunFinished(nil)
	s.Merged(1, 0, 0)
	s.Repairs(1, 1)
	if err := s.Push(context.Background(), "http://unused", "job"); err != nil {
		t.Errorf("nil Push returned %v", err)
	}
}

func TestSet_Push(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New()
	s.Candidates(4)
	if err := s.Push(context.Background(), server.URL, "researcher"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotPath != "/metrics/job/researcher" {
		t.Errorf("push path = %q", gotPath)
	}
	if !strings.Contains(gotBody, "places_candidates_total") {
		t.Errorf("pushed body missing counter")
	}
	if err := s.Push(context.Background(), "", "researcher"); err != nil {
		t.Errorf("empty url should be a no-op, got %v", err)
	}
}
