// Package cost prices BOQ items from a book of unit rates
package cost

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// DefaultKey is the rate applied when no material key matches
const DefaultKey = "default"

// RateBook maps element types to material-keyed unit rates:
//
//	{"IfcWall": {"concrete": 120.5, "brick": 95, "default": 100}}
type RateBook struct {
	rates map[string]map[string]float64
}

// NewRateBook builds a rate book from an in-memory table
func NewRateBook(rates map[string]map[string]float64) *RateBook {
	if rates == nil {
		rates = map[string]map[string]float64{}
	}
	return &RateBook{rates: rates}
}

// LoadRates reads a rate book from a JSON file
func LoadRates(path string) (*RateBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}

	var rates map[string]map[string]float64
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("parse rates %s: %w", path, err)
	}

	for typ, byMaterial := range rates {
		for key, rate := range byMaterial {
			if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
				return nil, fmt.Errorf("parse rates %s: invalid rate %v for %s/%s", path, rate, typ, key)
			}
		}
	}

	return NewRateBook(rates), nil
}

// Types returns the element types the book has rates for, sorted
func (b *RateBook) Types() []string {
	types := make([]string, 0, len(b.rates))
	for t := range b.rates {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Rate returns the unit rate for an element type and material.
// A material key contained in the material name wins (keys tried in sorted
// order), then the type's default rate, then 0.
func (b *RateBook) Rate(elementType, material string) float64 {
	byMaterial := b.lookupType(elementType)
	if len(byMaterial) == 0 {
		return 0
	}

	if material != "" {
		lower := strings.ToLower(material)
		keys := make([]string, 0, len(byMaterial))
		for k := range byMaterial {
			if !strings.EqualFold(k, DefaultKey) && k != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for _, k := range keys {
			if strings.Contains(lower, strings.ToLower(k)) {
				return byMaterial[k]
			}
		}
	}

	for k, rate := range byMaterial {
		if strings.EqualFold(k, DefaultKey) {
			return rate
		}
	}
	return 0
}

// lookupType matches the type exactly, then case-insensitively with or without the Ifc prefix
func (b *RateBook) lookupType(elementType string) map[string]float64 {
	if r, ok := b.rates[elementType]; ok {
		return r
	}

	want := strings.ToLower(strings.TrimPrefix(strings.ToLower(elementType), "ifc"))
	for _, t := range b.Types() {
		if strings.ToLower(strings.TrimPrefix(strings.ToLower(t), "ifc")) == want {
			return b.rates[t]
		}
	}
	return nil
}
