package aggregate

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ppiankov/takeoff/internal/model"
)

func resolved(v float64) model.Measure {
	return model.Measure{Value: v, Tier: model.TierStructured}
}

func record(id int64, typ string, kind model.ElementKind, storey, material string) model.QuantityRecord {
	return model.QuantityRecord{
		ElementID: id,
		Type:      typ,
		Category:  typ,
		Kind:      kind,
		Storey:    storey,
		Material:  material,
		Count:     1,
	}
}

// scenario builds Wall A, Wall B and Slab C
func scenario() []model.QuantityRecord {
	wallA := record(1, "IfcWall", model.KindWall, "L1", "Concrete")
	wallA.Volume = resolved(12)

	wallB := record(2, "IfcWall", model.KindWall, "L2", "Concrete")
	wallB.Volume = model.Measure{Value: 5, Tier: model.TierGeometric}

	slabC := record(3, "IfcSlab", model.KindSlab, "L1", "Concrete")
	slabC.Area = resolved(20)

	return []model.QuantityRecord{wallA, wallB, slabC}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGenerate_ScenarioByType(t *testing.T) {
	items, err := Generate(scenario(), model.GroupByType)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	// lexical order: IfcSlab before IfcWall
	slab, wall := items[0], items[1]

	if slab.ElementType != "IfcSlab" || slab.Unit != model.UnitSquareMetre || !approx(slab.Quantity, 20) || slab.Count != 1 {
		t.Errorf("unexpected slab item: %+v", slab)
	}
	if wall.ElementType != "IfcWall" || wall.Unit != model.UnitCubicMetre || !approx(wall.Quantity, 17) || wall.Count != 2 {
		t.Errorf("unexpected wall item: %+v", wall)
	}
	if wall.Storey != model.Mixed {
		t.Errorf("expected Mixed storey for walls on L1 and L2, got %q", wall.Storey)
	}
	if wall.Description != "Wall - Concrete" {
		t.Errorf("expected description 'Wall - Concrete', got %q", wall.Description)
	}
	if slab.ItemNo != 1 || wall.ItemNo != 2 {
		t.Errorf("expected item numbers 1 and 2, got %d and %d", slab.ItemNo, wall.ItemNo)
	}
}

func TestGenerate_ScenarioByAll(t *testing.T) {
	items, err := Generate(scenario(), model.GroupByAll)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	want := []struct {
		typ, storey string
		quantity    float64
	}{
		{"IfcSlab", "L1", 20},
		{"IfcWall", "L1", 12},
		{"IfcWall", "L2", 5},
	}
	for i, w := range want {
		it := items[i]
		if it.ElementType != w.typ || it.Storey != w.storey || it.Material != "Concrete" || !approx(it.Quantity, w.quantity) {
			t.Errorf("item %d: expected %s/%s/Concrete=%v, got %+v", i, w.typ, w.storey, w.quantity, it)
		}
	}
}

func TestGenerate_AllSplitsOnMaterial(t *testing.T) {
	a := record(1, "IfcWall", model.KindWall, "L1", "Concrete")
	a.Volume = resolved(1)
	b := record(2, "IfcWall", model.KindWall, "L1", "Brick")
	b.Volume = resolved(2)
	c := record(3, "IfcWall", model.KindWall, "L1", "Concrete")
	c.Volume = resolved(3)

	items, err := Generate([]model.QuantityRecord{a, b, c}, model.GroupByAll)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Material != "Brick" || !approx(items[0].VolumeM3, 2) {
		t.Errorf("unexpected brick item: %+v", items[0])
	}
	if items[1].Material != "Concrete" || !approx(items[1].VolumeM3, 4) || items[1].Count != 2 {
		t.Errorf("unexpected concrete item: %+v", items[1])
	}
}

func TestGenerate_Empty(t *testing.T) {
	items, err := Generate(nil, model.GroupByType)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil items, got %v", items)
	}

	s := Summarize(items)
	if s.TotalItems != 0 || s.TotalVolume != 0 || s.TotalArea != 0 || s.TotalLength != 0 || s.TotalCount != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.ElementTypes == nil || len(s.ElementTypes) != 0 {
		t.Errorf("expected empty type set, got %v", s.ElementTypes)
	}
}

func TestGenerate_InvalidLevel(t *testing.T) {
	_, err := Generate(scenario(), model.GroupingLevel("colour"))
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	var ce *model.ConfigurationError
	if !errors.As(err, &ce) || ce.Key != "grouping" {
		t.Errorf("expected grouping ConfigurationError, got %v", err)
	}
}

func TestGenerate_IdempotentAndOrderIndependent(t *testing.T) {
	records := scenario()
	for i := int64(10); i < 30; i++ {
		r := record(i, "IfcBeam", model.KindBeam, "L"+string(rune('1'+i%3)), "Steel")
		r.Length = resolved(float64(i))
		records = append(records, r)
	}

	first, err := Generate(records, model.GroupByAll)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	again, _ := Generate(records, model.GroupByAll)
	if !reflect.DeepEqual(first, again) {
		t.Error("expected identical items on re-run")
	}

	shuffled := append([]model.QuantityRecord{}, records...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	permuted, _ := Generate(shuffled, model.GroupByAll)

	if len(permuted) != len(first) {
		t.Fatalf("expected %d items, got %d", len(first), len(permuted))
	}
	for i := range first {
		a, b := first[i], permuted[i]
		if a.ItemNo != b.ItemNo || a.ElementType != b.ElementType || a.Storey != b.Storey || a.Material != b.Material {
			t.Errorf("item %d: key differs after shuffle: %+v vs %+v", i, a, b)
		}
		if !approx(a.LengthM, b.LengthM) || a.Count != b.Count || a.Unit != b.Unit {
			t.Errorf("item %d: aggregates differ after shuffle: %+v vs %+v", i, a, b)
		}
	}
}

func TestGenerate_UnresolvedDoesNotCount(t *testing.T) {
	a := record(1, "IfcColumn", model.KindColumn, "L1", "Concrete")
	b := record(2, "IfcColumn", model.KindColumn, "L1", "Concrete")
	b.Volume = resolved(0.5)

	items, _ := Generate([]model.QuantityRecord{a, b}, model.GroupByType)
	it := items[0]
	if it.VolumeResolved != 1 || !approx(it.VolumeM3, 0.5) || it.Count != 2 {
		t.Errorf("unexpected column item: %+v", it)
	}
	if it.AreaResolved != 0 || it.AreaM2 != 0 {
		t.Errorf("expected no area, got %+v", it)
	}
}

func TestGenerate_PrimaryMeasureTable(t *testing.T) {
	tests := []struct {
		name     string
		kind     model.ElementKind
		typ      string
		volume   *float64
		area     *float64
		length   *float64
		wantUnit model.Unit
		wantQty  float64
	}{
		{name: "wall volume", kind: model.KindWall, typ: "IfcWall", volume: f(2), area: f(9), wantUnit: model.UnitCubicMetre, wantQty: 2},
		{name: "wall falls back to area", kind: model.KindWall, typ: "IfcWall", area: f(9), wantUnit: model.UnitSquareMetre, wantQty: 9},
		{name: "beam volume", kind: model.KindBeam, typ: "IfcBeam", volume: f(0.4), length: f(6), wantUnit: model.UnitCubicMetre, wantQty: 0.4},
		{name: "beam length", kind: model.KindBeam, typ: "IfcBeam", area: f(3), length: f(6), wantUnit: model.UnitMetre, wantQty: 6},
		{name: "pile length first", kind: model.KindPile, typ: "IfcPile", volume: f(1), length: f(12), wantUnit: model.UnitMetre, wantQty: 12},
		{name: "roof area", kind: model.KindRoof, typ: "IfcRoof", volume: f(5), area: f(80), wantUnit: model.UnitSquareMetre, wantQty: 80},
		{name: "door count", kind: model.KindDoor, typ: "IfcDoor", volume: f(0.1), area: f(2), wantUnit: model.UnitCount, wantQty: 1},
		{name: "zero volume does not qualify", kind: model.KindSlab, typ: "IfcSlab", volume: f(0), area: f(4), wantUnit: model.UnitSquareMetre, wantQty: 4},
		{name: "nothing resolved", kind: model.KindFooting, typ: "IfcFooting", wantUnit: model.UnitCount, wantQty: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record(1, tt.typ, tt.kind, "L1", "Concrete")
			if tt.volume != nil {
				r.Volume = resolved(*tt.volume)
			}
			if tt.area != nil {
				r.Area = resolved(*tt.area)
			}
			if tt.length != nil {
				r.Length = resolved(*tt.length)
			}

			items, err := Generate([]model.QuantityRecord{r}, model.GroupByType)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if items[0].Unit != tt.wantUnit || !approx(items[0].Quantity, tt.wantQty) {
				t.Errorf("expected %v %s, got %v %s", tt.wantQty, tt.wantUnit, items[0].Quantity, items[0].Unit)
			}
		})
	}
}

func f(v float64) *float64 { return &v }

func TestGenerate_MixedKindsUseGenericOrder(t *testing.T) {
	door := record(1, "IfcDoor", model.KindDoor, "L1", "Timber")
	door.Area = resolved(2)
	wall := record(2, "IfcWall", model.KindWall, "L1", "Timber")
	wall.Area = resolved(10)

	items, _ := Generate([]model.QuantityRecord{door, wall}, model.GroupByStorey)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.ElementType != model.Mixed || it.Unit != model.UnitSquareMetre || !approx(it.Quantity, 12) {
		t.Errorf("unexpected mixed item: %+v", it)
	}
	if !reflect.DeepEqual(it.Types, []string{"IfcDoor", "IfcWall"}) {
		t.Errorf("expected merged types, got %v", it.Types)
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		typ, material, want string
	}{
		{"IfcWall", "Concrete", "Wall - Concrete"},
		{"IfcBeam", model.NotSpecified, "Beam"},
		{"IfcSlab", model.Mixed, "Slab"},
		{"Custom", "Steel", "Custom - Steel"},
	}
	for _, tt := range tests {
		if got := describe(tt.typ, tt.material); got != tt.want {
			t.Errorf("describe(%q, %q): expected %q, got %q", tt.typ, tt.material, tt.want, got)
		}
	}
}

func TestGenerate_PlaceholderKeys(t *testing.T) {
	r := record(1, "IfcWall", model.KindWall, "", "")
	r.Volume = resolved(1)

	items, _ := Generate([]model.QuantityRecord{r}, model.GroupByAll)
	if items[0].Storey != model.NotSpecified || items[0].Material != model.NotSpecified {
		t.Errorf("expected placeholders, got %+v", items[0])
	}
	if items[0].Description != "Wall" {
		t.Errorf("expected description without material, got %q", items[0].Description)
	}
}
