// Package corpus persists place corpora: the keyed JSON snapshot that is the
// cache itself, and the flattened CSV report written next to it.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// Load reads a keyed snapshot. A missing file is an empty corpus. Null
// entries are dropped and records missing a place_id take it from their key.
func Load(path string) (models.Corpus, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Corpus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return c, nil
}

// Decode reads a keyed snapshot from r.
func Decode(r io.Reader) (models.Corpus, error) {
	var raw map[string]*models.Place
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	c := make(models.Corpus, len(raw))
	for id, p := range raw {
		if p == nil {
			continue
		}
		if p.PlaceID == "" {
			p.PlaceID = id
		}
		c[id] = p
	}
	return c, nil
}

// Encode renders v as indented JSON. Map keys come out sorted, so the same
// corpus always encodes to the same bytes.
func Encode(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// SaveJSON writes v (normally a models.Corpus) as a keyed snapshot,
// replacing path whole.
func SaveJSON(path string, v any) error {
	b, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, b)
}

// WriteFile replaces path with data through a temp file in the same
// directory, so a crash never leaves a half-written file behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
