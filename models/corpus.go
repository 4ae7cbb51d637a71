package models

import (
	"sort"
	"time"
)

// Corpus maps place_id to its record. It is the in-memory form of both a
// run corpus and the merged corpus.
type Corpus map[string]*Place

// IDs returns the corpus keys in lexical order.
func (c Corpus) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Upsert stores p under its place_id.
func (c Corpus) Upsert(p *Place) {
	c[p.PlaceID] = p
}

// RunEvent announces that a run corpus was persisted and published to the
// object store.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Address     string    `json:"address"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Places      int       `json:"places"`
	CompletedAt time.Time `json:"completed_at"`
}
