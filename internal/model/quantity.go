package model

import (
	"encoding/json"
	"strings"
)

// NotSpecified replaces an absent storey or material
const NotSpecified = "Not Specified"

// Tier identifies which source resolved a quantity field
type Tier int

const (
	TierUnresolved  Tier = 0 // No source produced a value
	TierStructured  Tier = 1 // Structured quantity set (IfcElementQuantity)
	TierPropertySet Tier = 2 // Vendor property set with quantity-like names
	TierGeometric   Tier = 3 // Measured from the element's solid or bounding box
)

func (t Tier) String() string {
	switch t {
	case TierStructured:
		return "structured"
	case TierPropertySet:
		return "property_set"
	case TierGeometric:
		return "geometric"
	default:
		return "unresolved"
	}
}

// MarshalJSON encodes the tier by name
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Field names one of the measurable quantity fields
type Field string

const (
	FieldVolume Field = "volume"
	FieldArea   Field = "area"
	FieldLength Field = "length"
)

// Fields returns the measurable fields in resolution order
func Fields() []Field {
	return []Field{FieldVolume, FieldArea, FieldLength}
}

// Power is the exponent applied to the linear unit scale for this field
func (f Field) Power() int {
	switch f {
	case FieldVolume:
		return 3
	case FieldArea:
		return 2
	default:
		return 1
	}
}

// Measure is one resolved (or unresolved) quantity field.
// An unresolved measure is distinct from a measured zero.
type Measure struct {
	Value float64 `json:"value"`
	Tier  Tier    `json:"tier"`
}

// Resolved reports whether any tier produced the value
func (m Measure) Resolved() bool {
	return m.Tier != TierUnresolved
}

// QuantityRecord is the canonical quantity set of one element
type QuantityRecord struct {
	ElementID int64       `json:"element_id"`
	GlobalID  string      `json:"global_id,omitempty"`
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	Name      string      `json:"name,omitempty"`
	Kind      ElementKind `json:"kind"`
	Storey    string      `json:"storey"`
	Material  string      `json:"material"`
	Volume    Measure     `json:"volume"`
	Area      Measure     `json:"area"`
	Length    Measure     `json:"length"`
	Count     float64     `json:"count"`
}

// Measure returns the measure stored for the field
func (r QuantityRecord) Measure(f Field) Measure {
	switch f {
	case FieldVolume:
		return r.Volume
	case FieldArea:
		return r.Area
	default:
		return r.Length
	}
}

// SetMeasure stores the measure for the field
func (r *QuantityRecord) SetMeasure(f Field, m Measure) {
	switch f {
	case FieldVolume:
		r.Volume = m
	case FieldArea:
		r.Area = m
	default:
		r.Length = m
	}
}

// Quantity is one entry of a structured quantity set
type Quantity struct {
	Set   string  `json:"set,omitempty"`
	Name  string  `json:"name"`
	Kind  string  `json:"kind"` // volume, area, length, count, weight, time
	Value float64 `json:"value"`
}

// Geometry holds the measures computed from an element's shape, in source units.
// A nil pointer means the kernel produced no usable value.
type Geometry struct {
	Volume *float64 `json:"volume,omitempty"`
	Area   *float64 `json:"area,omitempty"`
	Length *float64 `json:"length,omitempty"`
}

// Get returns the geometric value for a field
func (g Geometry) Get(f Field) (float64, bool) {
	var v *float64
	switch f {
	case FieldVolume:
		v = g.Volume
	case FieldArea:
		v = g.Area
	default:
		v = g.Length
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// OrPlaceholder returns s, or NotSpecified when s is blank
func OrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}
