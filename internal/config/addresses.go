package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Address is one labelled research origin from the addresses file.
type Address struct {
	Label   string
	Address string
}

// LoadAddresses reads a JSON object of label to address. Non-string values
// are rendered as text. Entries come back sorted by label.
func LoadAddresses(path string) ([]Address, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read addresses file: %w", err)
	}
	return ParseAddresses(b)
}

func ParseAddresses(b []byte) ([]Address, error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode addresses file: %w", err)
	}
	out := make([]Address, 0, len(raw))
	for label, v := range raw {
		addr := strings.TrimSpace(fmt.Sprint(v))
		if v == nil || addr == "" {
			continue
		}
		out = append(out, Address{Label: label, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// AddressStrings returns just the address values.
func AddressStrings(addrs []Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Address
	}
	return out
}
