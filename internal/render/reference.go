package render

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Reference is one hand-maintained place drawn with the logo marker.
type Reference struct {
	Name string
	Lat  float64
	Lng  float64
	Card []Field
}

type Field struct {
	Label string
	Value string
}

// hiddenKeys never appear on a reference stat card.
var hiddenKeys = map[string]bool{
	"latitude":      true,
	"longitude":     true,
	"street_number": true,
	"street":        true,
	"place_details": true,
}

// LoadReferences reads the reference dataset: an object of name to an
// attribute object that must carry numeric latitude and longitude.
func LoadReferences(path string) ([]Reference, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference places %s: %w", path, err)
	}
	return ParseReferences(b)
}

func ParseReferences(b []byte) ([]Reference, error) {
	var raw map[string]map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode reference places: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]Reference, 0, len(names))
	for _, name := range names {
		attrs := raw[name]
		lat, okLat := attrs["latitude"].(float64)
		lng, okLng := attrs["longitude"].(float64)
		if !okLat || !okLng {
			return nil, fmt.Errorf("reference place %q: latitude and longitude must be numbers", name)
		}
		refs = append(refs, Reference{Name: name, Lat: lat, Lng: lng, Card: card(attrs)})
	}
	return refs, nil
}

func card(attrs map[string]any) []Field {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if !hiddenKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Label: capitalize(k), Value: cardValue(attrs[k])})
	}
	return fields
}

func cardValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = cardValue(item)
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
