package aggregate

import (
	"sort"

	"github.com/ppiankov/takeoff/internal/model"
)

// Summarize totals every aggregate column and lists the distinct element types.
// The type list does not depend on the grouping level the items were built with.
func Summarize(items []model.BOQItem) model.Summary {
	s := model.Summary{
		TotalItems:   len(items),
		ElementTypes: []string{},
	}

	seen := make(map[string]bool)
	for _, it := range items {
		s.TotalVolume += it.VolumeM3
		s.TotalArea += it.AreaM2
		s.TotalLength += it.LengthM
		s.TotalCount += it.Count

		types := it.Types
		if len(types) == 0 {
			types = []string{it.ElementType}
		}
		for _, t := range types {
			if t != "" && t != model.Mixed && !seen[t] {
				seen[t] = true
				s.ElementTypes = append(s.ElementTypes, t)
			}
		}
	}
	sort.Strings(s.ElementTypes)

	return s
}
