package extract

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/takeoff/internal/model"
)

// Resolver produces a raw (source unit) value for one field of one element
type Resolver interface {
	Tier() model.Tier
	Resolve(ctx context.Context, s *Subject, field model.Field) (float64, bool)
}

// aliases lists quantity names per field in priority order
var aliases = map[model.Field][]string{
	model.FieldVolume: {"NetVolume", "GrossVolume", "Volume"},
	model.FieldArea:   {"NetArea", "GrossArea", "Area", "NetSideArea", "GrossSideArea", "TotalSurfaceArea"},
	model.FieldLength: {"Length", "NetLength", "GrossLength"},
}

// StructuredResolver reads structured quantity set entries whose kind matches the field.
// Among matching entries a standard name for the field is preferred, then declaration order.
type StructuredResolver struct {
	source Source
}

func (r *StructuredResolver) Tier() model.Tier { return model.TierStructured }

func (r *StructuredResolver) Resolve(_ context.Context, s *Subject, field model.Field) (float64, bool) {
	var matches []model.Quantity
	for _, q := range s.quantities(r.source) {
		if q.Kind == string(field) && usable(q.Value) {
			matches = append(matches, q)
		}
	}
	if len(matches) == 0 {
		return 0, false
	}

	for _, alias := range aliases[field] {
		for _, q := range matches {
			if strings.EqualFold(q.Name, alias) {
				return q.Value, true
			}
		}
	}
	return matches[0].Value, true
}

// PropertySetResolver maps quantity-like property sets through the alias table
type PropertySetResolver struct {
	source  Source
	markers []string
}

func (r *PropertySetResolver) Tier() model.Tier { return model.TierPropertySet }

func (r *PropertySetResolver) Resolve(_ context.Context, s *Subject, field model.Field) (float64, bool) {
	psets := r.source.PropertySets(s.Element)
	if len(psets) == 0 {
		return 0, false
	}

	names := make([]string, 0, len(psets))
	for name := range psets {
		if r.isQuantitySet(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, alias := range aliases[field] {
		for _, name := range names {
			raw, ok := psets[name][alias]
			if !ok {
				continue
			}
			if v, ok := model.ParseNumber(raw); ok && usable(v) {
				return v, true
			}
		}
	}
	return 0, false
}

func (r *PropertySetResolver) isQuantitySet(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range r.markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// GeometricResolver measures the element's shape. Geometry is computed at most
// once per element and shared by all fields.
type GeometricResolver struct{}

func (r *GeometricResolver) Tier() model.Tier { return model.TierGeometric }

func (r *GeometricResolver) Resolve(ctx context.Context, s *Subject, field model.Field) (float64, bool) {
	g, err := s.Geometry(ctx)
	if err != nil {
		return 0, false
	}
	v, ok := g.Get(field)
	if !ok || v == 0 || !usable(v) {
		return 0, false
	}
	if field == model.FieldLength && !s.Element.Kind.IsLinear() {
		return 0, false
	}
	return v, true
}

// usable rejects negative, NaN and infinite values
func usable(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
