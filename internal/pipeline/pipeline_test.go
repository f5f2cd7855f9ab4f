package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/takeoff/internal/metrics"
	"github.com/ppiankov/takeoff/internal/model"
	"github.com/ppiankov/takeoff/internal/report"
	"github.com/ppiankov/takeoff/internal/worker"
)

// Wall A resolves 12 m³ from its quantity set, Wall B 5 m³ from geometry and
// Slab C 20 m² from its quantity set.
const scenarioModel = `
schema: IFC4
project: {id: P-7, name: Scenario}
units:
  length: {name: METRE}
storeys:
  - {id: l1, name: L1}
  - {id: l2, name: L2}
elements:
  - id: 1
    type: IfcWall
    name: Wall A
    storey: l1
    materials: [Concrete]
    quantity_sets:
      - name: Qto_WallBaseQuantities
        quantities:
          - {name: NetVolume, value: 12}
  - id: 2
    type: IfcWall
    name: Wall B
    storey: l2
    materials: [Concrete]
    geometry:
      vertices: [[0,0,0],[5,0,0],[5,1,0],[0,1,0],[0,0,1],[5,0,1],[5,1,1],[0,1,1]]
      faces: [[0,2,1],[0,3,2],[4,5,6],[4,6,7],[0,1,5],[0,5,4],[1,2,6],[1,6,5],[2,3,7],[2,7,6],[3,0,4],[3,4,7]]
  - id: 3
    type: IfcSlab
    name: Slab C
    storey: l1
    materials: [Concrete]
    quantity_sets:
      - name: Qto_SlabBaseQuantities
        quantities:
          - {name: NetArea, value: 20}
  - id: 4
    type: IfcOpeningElement
    name: Opening
`

const emptyModel = `
schema: IFC2X3
elements:
  - {id: 1, type: IfcSpace, name: Room}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Elements.Types = []string{"IfcWall", "IfcSlab"}
	return cfg
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRun_Scenario(t *testing.T) {
	p := New(testConfig(), nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	res, err := p.Run(context.Background(), writeFile(t, "scenario.yaml", scenarioModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Empty {
		t.Fatal("expected non-empty result")
	}
	if len(res.Records) != 3 {
		t.Errorf("expected 3 records, got %d", len(res.Records))
	}
	if _, err := uuid.Parse(res.Meta.RunID); err != nil {
		t.Errorf("expected uuid run id, got %q", res.Meta.RunID)
	}
	if !res.Meta.GeneratedAt.Equal(fixed) {
		t.Errorf("expected generated at %v, got %v", fixed, res.Meta.GeneratedAt)
	}
	if res.Meta.ProjectName != "Scenario" || res.Meta.Schema != "IFC4" || res.Meta.UnitScale != 1 {
		t.Errorf("unexpected metadata: %+v", res.Meta)
	}
	if res.Meta.GroupingLevel != model.GroupByType || res.Meta.ElementCount != 3 {
		t.Errorf("unexpected run metadata: %+v", res.Meta)
	}

	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(res.Items), res.Items)
	}
	slab, wall := res.Items[0], res.Items[1]
	if slab.ElementType != "IfcSlab" || slab.Unit != model.UnitSquareMetre || !approx(slab.Quantity, 20) {
		t.Errorf("unexpected slab item: %+v", slab)
	}
	if wall.ElementType != "IfcWall" || wall.Unit != model.UnitCubicMetre || !approx(wall.Quantity, 17) || wall.Count != 2 {
		t.Errorf("unexpected wall item: %+v", wall)
	}
	if wall.Storey != model.Mixed {
		t.Errorf("expected Mixed storey, got %q", wall.Storey)
	}

	wallB := res.Records[1]
	if wallB.Volume.Tier != model.TierGeometric || !approx(wallB.Volume.Value, 5) {
		t.Errorf("expected geometric volume 5 for Wall B, got %+v", wallB.Volume)
	}

	if res.Summary.TotalItems != 2 || !approx(res.Summary.TotalVolume, 17) {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if res.Cost != nil {
		t.Error("expected no cost without --cost")
	}
}

func TestRun_GroupByAll(t *testing.T) {
	cfg := testConfig()
	cfg.Grouping = "all"

	res, err := New(cfg, nil, nil).Run(context.Background(), writeFile(t, "m.yaml", scenarioModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	for i, it := range res.Items {
		if it.ItemNo != i+1 {
			t.Errorf("expected item %d numbered %d, got %d", i, i+1, it.ItemNo)
		}
	}
}

func TestRun_InvalidGroupingIsCheckedFirst(t *testing.T) {
	cfg := testConfig()
	cfg.Grouping = "bogus"

	_, err := New(cfg, nil, nil).Run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestRun_LoadError(t *testing.T) {
	_, err := New(testConfig(), nil, nil).Run(context.Background(), writeFile(t, "bad.yaml", "schema: IFC9"))
	if !errors.Is(err, model.ErrLoad) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestRun_WorkersMatchSequential(t *testing.T) {
	path := writeFile(t, "m.yaml", scenarioModel)

	seq, err := New(testConfig(), nil, nil).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	cfg := testConfig()
	cfg.Extraction.Workers = 4
	par, err := New(cfg, nil, nil).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if !reflect.DeepEqual(seq.Records, par.Records) {
		t.Errorf("expected identical records\nseq: %+v\npar: %+v", seq.Records, par.Records)
	}
	if !reflect.DeepEqual(seq.Items, par.Items) {
		t.Errorf("expected identical items\nseq: %+v\npar: %+v", seq.Items, par.Items)
	}
}

func TestRun_Cost(t *testing.T) {
	cfg := testConfig()
	cfg.Cost.Enabled = true
	cfg.Cost.Currency = "EUR"
	cfg.Cost.RatesPath = writeFile(t, "rates.json", `{"IfcWall": {"concrete": 100}, "IfcSlab": {"default": 10}}`)

	res, err := New(cfg, nil, nil).Run(context.Background(), writeFile(t, "m.yaml", scenarioModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Cost == nil {
		t.Fatal("expected cost estimate")
	}
	if !approx(res.Cost.Summary.GrandTotal, 1900) {
		t.Errorf("expected grand total 1900, got %v", res.Cost.Summary.GrandTotal)
	}
}

const wallAndSlabModel = `
schema: IFC4
units:
  length: {name: METRE}
storeys:
  - {id: l1, name: L1}
elements:
  - id: 1
    type: IfcWall
    name: Wall
    storey: l1
    materials: [Concrete]
    quantity_sets:
      - name: Qto_WallBaseQuantities
        quantities:
          - {name: NetVolume, value: 12}
  - id: 2
    type: IfcSlab
    name: Slab
    storey: l1
    materials: [Concrete]
    quantity_sets:
      - name: Qto_SlabBaseQuantities
        quantities:
          - {name: NetArea, value: 20}
`

func TestRun_CostIndependentOfGrouping(t *testing.T) {
	rates := writeFile(t, "rates.json", `{"IfcWall": {"default": 100}, "IfcSlab": {"default": 50}}`)
	path := writeFile(t, "m.yaml", wallAndSlabModel)

	for _, grouping := range []string{"type", "storey", "material", "all"} {
		cfg := testConfig()
		cfg.Grouping = grouping
		cfg.Cost.Enabled = true
		cfg.Cost.RatesPath = rates

		res, err := New(cfg, nil, nil).Run(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: run: %v", grouping, err)
		}
		if res.Cost == nil {
			t.Fatalf("%s: expected cost estimate", grouping)
		}
		if !approx(res.Cost.Summary.GrandTotal, 2200) {
			t.Errorf("%s: expected grand total 2200, got %v", grouping, res.Cost.Summary.GrandTotal)
		}
		for _, it := range res.Cost.Items {
			if it.ElementType == model.Mixed {
				t.Errorf("%s: expected a concrete element type on every priced line, got %+v", grouping, it)
			}
		}
	}

	cfg := testConfig()
	cfg.Grouping = "storey"
	cfg.Cost.Enabled = true
	cfg.Cost.RatesPath = writeFile(t, "scenario-rates.json", `{"IfcWall": {"concrete": 100}, "IfcSlab": {"default": 10}}`)
	res, err := New(cfg, nil, nil).Run(context.Background(), writeFile(t, "scenario.yaml", scenarioModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Items) != 2 || !approx(res.Cost.Summary.GrandTotal, 1900) {
		t.Errorf("expected 2 storey items costing 1900, got %d items costing %v", len(res.Items), res.Cost.Summary.GrandTotal)
	}
}

func TestRun_CostWarnsOnMissingRates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	cfg := testConfig()
	cfg.Cost.Enabled = true
	cfg.Cost.RatesPath = writeFile(t, "rates.json", `{"IfcWall": {"default": 100}}`)

	res, err := New(cfg, zap.New(core), nil).Run(context.Background(), writeFile(t, "m.yaml", wallAndSlabModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !approx(res.Cost.Summary.GrandTotal, 1200) {
		t.Errorf("expected grand total 1200, got %v", res.Cost.Summary.GrandTotal)
	}
	entries := logs.FilterMessage("no rate for element types").All()
	if len(entries) != 1 {
		t.Fatalf("expected one missing-rate warning, got %v", logs.All())
	}
	if types, ok := entries[0].ContextMap()["types"].([]interface{}); !ok || len(types) != 1 || types[0] != "IfcSlab" {
		t.Errorf("expected [IfcSlab] in warning, got %v", entries[0].ContextMap()["types"])
	}
}

func TestRun_CostFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	cfg := testConfig()
	cfg.Cost.Enabled = true
	cfg.Cost.RatesPath = filepath.Join(t.TempDir(), "missing.json")

	res, err := New(cfg, zap.New(core), nil).Run(context.Background(), writeFile(t, "m.yaml", scenarioModel))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Cost != nil {
		t.Error("expected no cost estimate")
	}
	if logs.FilterMessage("skipping cost estimation").Len() != 1 {
		t.Errorf("expected a skip warning, got %v", logs.All())
	}
}

func TestExecute_EmptyModelWritesReport(t *testing.T) {
	m := metrics.New()
	out := filepath.Join(t.TempDir(), "out", "boq.json")

	res, err := New(testConfig(), nil, m).Execute(context.Background(), writeFile(t, "empty.yaml", emptyModel), out)
	if !errors.Is(err, model.ErrNoElements) {
		t.Fatalf("expected ErrNoElements, got %v", err)
	}
	if res == nil || !res.Empty {
		t.Fatalf("expected empty result, got %+v", res)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected report to be written: %v", err)
	}
	var doc struct {
		Items   []model.BOQItem `json:"items"`
		Summary model.Summary   `json:"summary"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Items) != 0 || doc.Summary.TotalItems != 0 {
		t.Errorf("expected empty report, got %+v", doc)
	}

	if got := testutil.ToFloat64(m.ModelsTotal.WithLabelValues("empty")); got != 1 {
		t.Errorf("expected 1 empty model, got %v", got)
	}
}

func TestExecute_Metrics(t *testing.T) {
	m := metrics.New()
	out := filepath.Join(t.TempDir(), "boq.xlsx")

	if _, err := New(testConfig(), nil, m).Execute(context.Background(), writeFile(t, "m.yaml", scenarioModel), out); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := testutil.ToFloat64(m.ElementsTotal); got != 3 {
		t.Errorf("expected 3 elements extracted, got %v", got)
	}
	if got := testutil.ToFloat64(m.BOQItems); got != 2 {
		t.Errorf("expected 2 BOQ items, got %v", got)
	}
	if got := testutil.ToFloat64(m.ModelsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok model, got %v", got)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestExecute_UnsupportedOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "boq.docx")
	_, err := New(testConfig(), nil, nil).Execute(context.Background(), writeFile(t, "m.yaml", scenarioModel), out)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestProcessor_Batch(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "reports")

	good := filepath.Join(dir, "tower.yaml")
	empty := filepath.Join(dir, "shed.yaml")
	for path, content := range map[string]string{good: scenarioModel, empty: emptyModel} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	missing := filepath.Join(dir, "missing.yaml")

	p := New(testConfig(), nil, nil)
	bp := worker.NewBatchProcessor(p.Processor(outDir, report.FormatJSON), 2)
	results := bp.ProcessModels(context.Background(), []string{good, empty, missing})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Error != nil || results[0].Outcome.Items != 2 {
		t.Errorf("unexpected result for tower: %+v", results[0])
	}
	if want := filepath.Join(outDir, "tower.json"); results[0].Outcome.OutputPath != want {
		t.Errorf("expected output %s, got %s", want, results[0].Outcome.OutputPath)
	}
	if results[1].Error != nil || !results[1].Outcome.Empty {
		t.Errorf("expected empty outcome for shed, got %+v", results[1])
	}
	if !errors.Is(results[2].Error, model.ErrLoad) {
		t.Errorf("expected load error for missing model, got %v", results[2].Error)
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("out", "/models/Tower.v2.ifc.yaml", report.FormatPDF)
	want := filepath.Join("out", "Tower.v2.ifc.pdf")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
