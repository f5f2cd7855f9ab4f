package model

import (
	"fmt"
	"strings"
	"time"
)

// GroupingLevel selects the key used to aggregate records into BOQ items
type GroupingLevel string

const (
	GroupByType     GroupingLevel = "type"
	GroupByStorey   GroupingLevel = "storey"
	GroupByMaterial GroupingLevel = "material"
	GroupByAll      GroupingLevel = "all"
)

// GroupingLevels returns the accepted grouping levels
func GroupingLevels() []GroupingLevel {
	return []GroupingLevel{GroupByType, GroupByStorey, GroupByMaterial, GroupByAll}
}

// ParseGroupingLevel validates a grouping level name
func ParseGroupingLevel(s string) (GroupingLevel, error) {
	level := GroupingLevel(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range GroupingLevels() {
		if level == l {
			return l, nil
		}
	}
	return "", &ConfigurationError{
		Key: "grouping",
		Err: fmt.Errorf("unsupported grouping level %q (want type, storey, material or all)", s),
	}
}

// Unit is the unit of measurement of a BOQ item's primary quantity
type Unit string

const (
	UnitCubicMetre  Unit = "m³"
	UnitSquareMetre Unit = "m²"
	UnitMetre       Unit = "m"
	UnitCount       Unit = "No."
)

// Mixed marks a non-key column whose values differ inside a group
const Mixed = "Mixed"

// BOQItem is one aggregated Bill-of-Quantities line
type BOQItem struct {
	ItemNo      int     `json:"item_no"`
	ElementType string  `json:"element_type"`
	Description string  `json:"description"`
	Unit        Unit    `json:"unit"`
	Quantity    float64 `json:"quantity"`
	Storey      string  `json:"storey"`
	Material    string  `json:"material"`
	VolumeM3    float64 `json:"volume_m3"`
	AreaM2      float64 `json:"area_m2"`
	LengthM     float64 `json:"length_m"`
	Count       float64 `json:"count"`

	// Number of records in the group that resolved each measure
	VolumeResolved int `json:"volume_resolved"`
	AreaResolved   int `json:"area_resolved"`
	LengthResolved int `json:"length_resolved"`

	// Distinct element types merged into the item, sorted
	Types []string `json:"-"`
}

// Summary holds run-wide totals over all BOQ items
type Summary struct {
	TotalItems   int      `json:"total_items"`
	TotalVolume  float64  `json:"total_volume_m3"`
	TotalArea    float64  `json:"total_area_m2"`
	TotalLength  float64  `json:"total_length_m"`
	TotalCount   float64  `json:"total_count"`
	ElementTypes []string `json:"element_types"`
}

// RunMeta describes the source model and the run that produced a BOQ
type RunMeta struct {
	RunID         string        `json:"run_id"`
	ProjectName   string        `json:"project_name,omitempty"`
	ProjectID     string        `json:"project_id,omitempty"`
	BuildingName  string        `json:"building_name,omitempty"`
	Schema        string        `json:"schema"`
	UnitScale     float64       `json:"unit_scale_factor"`
	SourcePath    string        `json:"source_path"`
	GroupingLevel GroupingLevel `json:"grouping_level"`
	ElementCount  int           `json:"element_count"`
	GeneratedAt   time.Time     `json:"generated_at"`
}
