package merge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
)

// Sources holds the decoded run snapshots by source name so a merge can be
// rebuilt in file-name order after any one of them changes.
type Sources struct {
	entries map[string]map[string]json.RawMessage
}

func NewSources() *Sources {
	return &Sources{entries: make(map[string]map[string]json.RawMessage)}
}

// SourceName is the tag a stored run object merges under: its base name,
// the same tag a local run file gets.
func SourceName(key string) string {
	return path.Base(key)
}

// Put replaces the snapshot stored under source.
func (s *Sources) Put(source string, entries map[string]json.RawMessage) {
	s.entries[source] = entries
}

// PutBytes decodes a keyed snapshot and stores it under source.
func (s *Sources) PutBytes(source string, b []byte) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	s.Put(source, entries)
	return nil
}

func (s *Sources) Len() int {
	return len(s.entries)
}

// Merge folds every snapshot into a new engine in lexical order of source
// name and returns its result.
func (s *Sources) Merge(logger *slog.Logger) Result {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	e := NewEngine(logger)
	for _, name := range names {
		e.Add(name, s.entries[name])
	}
	return e.Result()
}
