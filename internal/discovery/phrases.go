package discovery

import (
	"fmt"
	"strings"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
)

// BasePhrases are the query stems. Each is completed with a location suffix.
var BasePhrases = []string{
	"best restaurants near %s",
	"top rated restaurants near %s",
	"michelin star restaurants near %s",
	"american fine dining near %s",
	"fine dining restaurants near %s",
	"award winning restaurants near %s",
	"most popular restaurants near %s",
	"elevated dining experiences near %s",
	"james beard award winning restaurants near %s",
	"zagat top restaurants near %s",
	"most famous restaurants near %s",
}

// DefaultRadii are the nearby-search radii in meters, ascending.
var DefaultRadii = []int{500, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 4500, 5000, 7500, 10000, 15000, 20000, 25000, 30000}

// BuildPhrases expands every base phrase against the raw address and each
// component combination whose parts are all known.
func BuildPhrases(address string, c maps.Components) []string {
	suffixes := locationSuffixes(address, c)
	phrases := make([]string, 0, len(BasePhrases)*len(suffixes))
	for _, base := range BasePhrases {
		for _, s := range suffixes {
			phrases = append(phrases, fmt.Sprintf(base, s))
		}
	}
	return phrases
}

func locationSuffixes(address string, c maps.Components) []string {
	combos := [][]string{
		{c.Street, c.Neighborhood, c.City},
		{c.Neighborhood, c.City, c.State},
		{c.PostalCode, c.City, c.State},
		{c.County, c.City, c.State},
		{c.City, c.State},
	}

	var out []string
	if a := strings.TrimSpace(address); a != "" {
		out = append(out, a)
	}
	for _, parts := range combos {
		if complete(parts) {
			out = append(out, strings.Join(parts, ", "))
		}
	}
	return out
}

func complete(parts []string) bool {
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return false
		}
	}
	return true
}
