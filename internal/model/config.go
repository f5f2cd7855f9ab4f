package model

import "time"

// Config holds all settings of a take-off run
type Config struct {
	Grouping   string           `yaml:"grouping" mapstructure:"grouping"`
	Elements   ElementsConfig   `yaml:"elements" mapstructure:"elements"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Geometry   GeometryConfig   `yaml:"geometry" mapstructure:"geometry"`
	Cost       CostConfig       `yaml:"cost" mapstructure:"cost"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ElementsConfig selects which element kinds are taken off
type ElementsConfig struct {
	Types []string `yaml:"types" mapstructure:"types"`
}

// ExtractionConfig tunes the extraction engine
type ExtractionConfig struct {
	Workers          int      `yaml:"workers" mapstructure:"workers"`                       // 1 = sequential
	QuantityMarkers  []string `yaml:"quantity_markers" mapstructure:"quantity_markers"`     // property set name markers
	DefaultUnitScale float64  `yaml:"default_unit_scale" mapstructure:"default_unit_scale"` // used when the model declares no length unit
}

// GeometryConfig bounds calls into the geometric kernel
type GeometryConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`               // per element, 0 = none
	MaxPerSecond  float64       `yaml:"max_per_second" mapstructure:"max_per_second"` // 0 = unlimited
	Burst         int           `yaml:"burst" mapstructure:"burst"`
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"` // shared representation memo, 0 = run lifetime
	CacheDisabled bool          `yaml:"cache_disabled" mapstructure:"cache_disabled"`
}

// CostConfig controls the optional costing pass
type CostConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	RatesPath string `yaml:"rates" mapstructure:"rates"`
	Currency  string `yaml:"currency" mapstructure:"currency"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Precision   int    `yaml:"precision" mapstructure:"precision"`
	MetricsFile string `yaml:"metrics_file" mapstructure:"metrics_file"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Grouping: string(GroupByType),
		Elements: ElementsConfig{
			Types: []string{"IfcBeam", "IfcColumn", "IfcSlab", "IfcWall", "IfcFooting"},
		},
		Extraction: ExtractionConfig{
			Workers:          1,
			QuantityMarkers:  []string{"Qto", "Quantities"},
			DefaultUnitScale: 0.001,
		},
		Geometry: GeometryConfig{
			Timeout: 30 * time.Second,
			Burst:   10,
		},
		Cost: CostConfig{
			RatesPath: "rates.json",
		},
		Output: OutputConfig{
			Precision: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Kinds resolves the configured element types to kinds, skipping unknown names
func (c ElementsConfig) Kinds() ([]ElementKind, []string) {
	var kinds []ElementKind
	var unknown []string
	seen := make(map[ElementKind]bool)
	for _, t := range c.Types {
		k, ok := ParseKind(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, unknown
}
