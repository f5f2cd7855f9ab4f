package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/takeoff/internal/extract"
	"github.com/ppiankov/takeoff/internal/model"
	"github.com/ppiankov/takeoff/internal/pipeline"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{model.ErrNoElements, ExitNoElements},
		{fmt.Errorf("run: %w", model.ErrNoElements), ExitNoElements},
		{&model.LoadError{Path: "x", Err: errors.New("boom")}, ExitFailure},
		{&model.ConfigurationError{Key: "grouping", Err: errors.New("bad")}, ExitFailure},
		{errors.New("render failed"), ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v): expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := model.DefaultConfig()
	if cfg.Grouping != d.Grouping || cfg.Geometry.Timeout != d.Geometry.Timeout {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if strings.Join(cfg.Elements.Types, ",") != strings.Join(d.Elements.Types, ",") {
		t.Errorf("expected default types, got %v", cfg.Elements.Types)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
grouping: storey
elements:
  types: [IfcWall, IfcDoor]
geometry:
  timeout: 5s
cost:
  enabled: true
  currency: GBP
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAKEOFF_GROUPING", "material")
	t.Setenv("TAKEOFF_EXTRACTION_WORKERS", "0")

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("TAKEOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Grouping != "material" {
		t.Errorf("expected env to override file, got %s", cfg.Grouping)
	}
	if len(cfg.Elements.Types) != 2 || cfg.Elements.Types[1] != "IfcDoor" {
		t.Errorf("unexpected types %v", cfg.Elements.Types)
	}
	if cfg.Geometry.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Geometry.Timeout)
	}
	if !cfg.Cost.Enabled || cfg.Cost.Currency != "GBP" {
		t.Errorf("unexpected cost config %+v", cfg.Cost)
	}
	if cfg.Extraction.Workers != runtime.NumCPU() {
		t.Errorf("expected one worker per CPU, got %d", cfg.Extraction.Workers)
	}
}

func TestLoadConfig_NegativePrecision(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("output.precision", -1)

	_, err := loadConfig(v)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".takeoff", "config.yaml")
	if err := initConfigFile(path); err != nil {
		t.Fatalf("init: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Geometry.Timeout != model.DefaultConfig().Geometry.Timeout {
		t.Errorf("expected default timeout, got %v", cfg.Geometry.Timeout)
	}

	if err := initConfigFile(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestPrintSummary(t *testing.T) {
	result := &pipeline.Result{
		Meta: model.RunMeta{ElementCount: 3, GroupingLevel: model.GroupByType},
		Summary: model.Summary{
			TotalItems:   2,
			TotalVolume:  17,
			TotalArea:    20,
			TotalCount:   3,
			ElementTypes: []string{"IfcSlab", "IfcWall"},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, result, "boq.xlsx", 2)
	out := buf.String()

	for _, want := range []string{"boq.xlsx", "17.00 m³", "20.00 m²", "[Slab Wall]", "grouped by type"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Cost:") {
		t.Errorf("expected no cost line:\n%s", out)
	}
}

func TestPrintSummary_Unresolved(t *testing.T) {
	result := &pipeline.Result{
		Meta:    model.RunMeta{ElementCount: 3, GroupingLevel: model.GroupByStorey},
		Summary: model.Summary{TotalItems: 2},
		Stats: extract.Stats{
			Elements:         3,
			GeometryFailures: 1,
			Resolved: map[model.Field]map[model.Tier]int{
				model.FieldVolume: {model.TierStructured: 2, model.TierUnresolved: 1},
				model.FieldArea:   {model.TierPropertySet: 3},
				model.FieldLength: {model.TierUnresolved: 3},
			},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, result, "boq.json", 2)
	out := buf.String()

	for _, want := range []string{"Unresolved:    volume 1, area 0, length 3", "1 element(s) could not be measured"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}
