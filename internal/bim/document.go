package bim

import "github.com/ppiankov/takeoff/internal/geometry"

// document is the on-disk model export (YAML or JSON)
type document struct {
	Schema          string                   `yaml:"schema"`
	Project         entityRef                `yaml:"project"`
	Building        entityRef                `yaml:"building"`
	Units           unitsDoc                 `yaml:"units"`
	Storeys         []storeyDoc              `yaml:"storeys"`
	Representations map[string]geometry.Mesh `yaml:"representations"`
	Elements        []elementDoc             `yaml:"elements"`
}

type entityRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type unitsDoc struct {
	Length *namedUnit `yaml:"length"`
}

type namedUnit struct {
	Name   string `yaml:"name"`   // METRE, FOOT, MILLIMETRE...
	Prefix string `yaml:"prefix"` // MILLI, CENTI... for SI units
}

type storeyDoc struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	LongName  string   `yaml:"long_name"`
	Elevation *float64 `yaml:"elevation"`
}

type elementDoc struct {
	ID             int64                     `yaml:"id"`
	GlobalID       string                    `yaml:"global_id"`
	Type           string                    `yaml:"type"`
	PredefinedType string                    `yaml:"predefined_type"`
	Name           string                    `yaml:"name"`
	Tag            string                    `yaml:"tag"`
	Storey         string                    `yaml:"storey"`
	Materials      []string                  `yaml:"materials"`
	QuantitySets   []quantitySetDoc          `yaml:"quantity_sets"`
	PropertySets   map[string]map[string]any `yaml:"property_sets"`
	Representation string                    `yaml:"representation"`
	Geometry       *geometry.Mesh            `yaml:"geometry"`
}

type quantitySetDoc struct {
	Name       string        `yaml:"name"`
	Quantities []quantityDoc `yaml:"quantities"`
}

type quantityDoc struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value"`
}
