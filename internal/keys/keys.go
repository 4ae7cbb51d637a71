// Package keys names every file and object the pipeline writes.
package keys

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	runPrefix = "restaurant_data_"

	MergedJSON   = "restaurant_data_all_combined.json"
	MergedCSV    = "restaurant_data_all_combined.csv"
	MapFile      = "restaurant_data_map_file.json"
	MapHTML      = "restaurant_map.html"
	runsFolder   = "runs"
	mergedFolder = "merged"
)

// sanitizeAddress drops commas and turns spaces into underscores.
func sanitizeAddress(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strings.ReplaceAll(s, " ", "_")
}

// RunBase is the per-run file name without extension.
func RunBase(address string) string {
	return runPrefix + sanitizeAddress(address)
}

func RunJSON(dir, address string) string {
	return filepath.Join(dir, RunBase(address)+".json")
}

func RunCSV(dir, address string) string {
	return filepath.Join(dir, RunBase(address)+".csv")
}

// IsRunFile reports whether name looks like a per-run corpus file. Merged
// outputs share the prefix and are excluded.
func IsRunFile(name string) bool {
	base := path.Base(filepath.ToSlash(name))
	if base == MergedJSON || base == MapFile {
		return false
	}
	return strings.HasPrefix(base, runPrefix) && strings.HasSuffix(base, ".json")
}

// RunObject is the object key a per-run file is mirrored under.
func RunObject(file string) string {
	return path.Join(runsFolder, filepath.Base(file))
}

// MergedObject is the object key a merged output is mirrored under.
func MergedObject(file string) string {
	return path.Join(mergedFolder, filepath.Base(file))
}

// RunsPrefix is the listing prefix for mirrored run files.
func RunsPrefix() string {
	return runsFolder + "/"
}
