// Package merge folds many per-run corpora into one merged corpus.
//
// Merging is last-write-wins in the order sources are added. It does not
// look at freshness; that rule belongs to the fetcher within a single run.
package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

type Engine struct {
	corpus  models.Corpus
	seen    map[string]struct{}
	stale   map[string]struct{}
	sources []string
	logger  *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		corpus: models.Corpus{},
		seen:   make(map[string]struct{}),
		stale:  make(map[string]struct{}),
		logger: logger,
	}
}

// Add merges one source's entries, tagging each record with source. Every
// key counts as seen; entries that are not JSON objects or do not decode as
// a place are skipped with a warning and show up as missing in Result. When
// an earlier source already supplied that ID, its record is kept and the ID
// is reported as stale instead.
func (e *Engine) Add(source string, entries map[string]json.RawMessage) int {
	e.sources = append(e.sources, source)

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	merged := 0
	for _, id := range ids {
		e.seen[id] = struct{}{}
		raw := bytes.TrimSpace(entries[id])
		if len(raw) == 0 || raw[0] != '{' {
			e.skip(source, id, errors.New("not an object"))
			continue
		}
		var p models.Place
		if err := json.Unmarshal(raw, &p); err != nil {
			e.skip(source, id, err)
			continue
		}
		p.PlaceID = id
		p.SourceAddressFile = source
		e.corpus[id] = &p
		delete(e.stale, id)
		merged++
	}
	return merged
}

func (e *Engine) skip(source, id string, err error) {
	if prev, ok := e.corpus[id]; ok {
		e.stale[id] = struct{}{}
		e.logger.Warn("skipping entry, keeping earlier record", "source", source, "place_id", id,
			"kept_from", prev.SourceAddressFile, "err", err)
		return
	}
	e.logger.Warn("skipping entry", "source", source, "place_id", id, "err", err)
}

// AddReader decodes a keyed snapshot from r and merges it under source.
func (e *Engine) AddReader(source string, r io.Reader) error {
	var entries map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	n := e.Add(source, entries)
	e.logger.Info("merged run file", "source", source, "entries", len(entries), "merged", n)
	return nil
}

// AddFile merges the snapshot at path. The source tag is the file name.
func (e *Engine) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return e.AddReader(filepath.Base(path), f)
}

// MergeFiles adds paths in lexical order of their file names. An unreadable
// file is logged and skipped; the count of skipped files is returned.
func (e *Engine) MergeFiles(paths []string) int {
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	failed := 0
	for _, p := range sorted {
		if err := e.AddFile(p); err != nil {
			e.logger.Error("skipping run file", "path", p, "err", err)
			failed++
		}
	}
	return failed
}

// RunFiles lists the per-run snapshots in dir, sorted.
func RunFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, ent := range entries {
		if ent.IsDir() || !keys.IsRunFile(ent.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Result is the merged corpus plus the integrity check of seen against
// merged IDs. Stale lists IDs whose latest entry was undecodable, so the
// corpus holds an older source's record for them.
type Result struct {
	Corpus  models.Corpus
	Sources []string
	Seen    int
	Missing []string
	Extra   []string
	Stale   []string
}

// Consistent reports whether every seen ID made it into the corpus from its
// latest source and nothing else did.
func (r Result) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Stale) == 0
}

// Result runs the integrity check and logs a warning on mismatch. The corpus
// is returned either way.
func (e *Engine) Result() Result {
	r := Result{
		Corpus:  e.corpus,
		Sources: append([]string(nil), e.sources...),
		Seen:    len(e.seen),
	}
	for id := range e.seen {
		if _, ok := e.corpus[id]; !ok {
			r.Missing = append(r.Missing, id)
		}
	}
	for id := range e.corpus {
		if _, ok := e.seen[id]; !ok {
			r.Extra = append(r.Extra, id)
		}
	}
	for id := range e.stale {
		r.Stale = append(r.Stale, id)
	}
	sort.Strings(r.Missing)
	sort.Strings(r.Extra)
	sort.Strings(r.Stale)

	if r.Consistent() {
		e.logger.Info("merge integrity check passed", "records", len(r.Corpus), "sources", len(r.Sources))
	} else {
		e.logger.Warn("merge integrity check found discrepancies",
			"missing", len(r.Missing), "extra", len(r.Extra), "stale", len(r.Stale), "seen", r.Seen, "merged", len(r.Corpus))
	}
	return r
}
