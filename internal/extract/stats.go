package extract

import (
	"go.uber.org/zap"

	"github.com/ppiankov/takeoff/internal/model"
)

// Stats counts how fields were resolved during a run
type Stats struct {
	Elements         int
	GeometryFailures int
	Resolved         map[model.Field]map[model.Tier]int
}

func newStats() Stats {
	s := Stats{Resolved: make(map[model.Field]map[model.Tier]int)}
	for _, f := range model.Fields() {
		s.Resolved[f] = make(map[model.Tier]int)
	}
	return s
}

func (s *Stats) record(rec model.QuantityRecord, geomFailed bool) {
	s.Elements++
	if geomFailed {
		s.GeometryFailures++
	}
	for _, f := range model.Fields() {
		s.Resolved[f][rec.Measure(f).Tier]++
	}
}

func (s Stats) clone() Stats {
	out := newStats()
	out.Elements = s.Elements
	out.GeometryFailures = s.GeometryFailures
	for f, tiers := range s.Resolved {
		for t, n := range tiers {
			out.Resolved[f][t] = n
		}
	}
	return out
}

// Unresolved returns how many elements left the field unresolved
func (s Stats) Unresolved(f model.Field) int {
	return s.Resolved[f][model.TierUnresolved]
}

// Fields returns the statistics as zap fields for a run summary line
func (s Stats) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("elements", s.Elements),
		zap.Int("geometry_failures", s.GeometryFailures),
	}
	for _, f := range model.Fields() {
		fields = append(fields,
			zap.Int(string(f)+"_structured", s.Resolved[f][model.TierStructured]),
			zap.Int(string(f)+"_property_set", s.Resolved[f][model.TierPropertySet]),
			zap.Int(string(f)+"_geometric", s.Resolved[f][model.TierGeometric]),
			zap.Int(string(f)+"_unresolved", s.Resolved[f][model.TierUnresolved]),
		)
	}
	return fields
}
