// Package aggregate groups quantity records into Bill-of-Quantities items
package aggregate

import (
	"sort"
	"strings"

	"github.com/ppiankov/takeoff/internal/model"
)

// group accumulates the records sharing one key
type group struct {
	key      []string
	item     model.BOQItem
	kind     model.ElementKind
	kindSeen bool
	mixed    bool // records of more than one kind
}

// Generate aggregates records into BOQ items at the given grouping level.
// Items are ordered lexically on the grouping key and numbered from 1.
func Generate(records []model.QuantityRecord, level model.GroupingLevel) ([]model.BOQItem, error) {
	level, err := model.ParseGroupingLevel(string(level))
	if err != nil {
		return nil, err
	}

	items := make([]model.BOQItem, 0)
	if len(records) == 0 {
		return items, nil
	}

	groups := make(map[string]*group)
	for _, rec := range records {
		key := keyOf(rec, level)
		id := strings.Join(key, "\x00")

		g, ok := groups[id]
		if !ok {
			g = &group{
				key: key,
				item: model.BOQItem{
					ElementType: rec.Type,
					Storey:      model.OrPlaceholder(rec.Storey),
					Material:    model.OrPlaceholder(rec.Material),
				},
			}
			groups[id] = g
		}
		g.add(rec)
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return lessKey(ordered[i].key, ordered[j].key)
	})

	for i, g := range ordered {
		item := g.item
		item.ItemNo = i + 1

		kind := g.kind
		if g.mixed {
			kind = ""
		}
		item.Unit, item.Quantity = primaryQuantity(item, kind)
		item.Description = describe(item.ElementType, item.Material)

		items = append(items, item)
	}

	return items, nil
}

func (g *group) add(rec model.QuantityRecord) {
	it := &g.item

	if it.ElementType != rec.Type {
		it.ElementType = model.Mixed
	}
	if i := sort.SearchStrings(it.Types, rec.Type); i == len(it.Types) || it.Types[i] != rec.Type {
		it.Types = append(it.Types, "")
		copy(it.Types[i+1:], it.Types[i:])
		it.Types[i] = rec.Type
	}
	if it.Storey != model.OrPlaceholder(rec.Storey) {
		it.Storey = model.Mixed
	}
	if it.Material != model.OrPlaceholder(rec.Material) {
		it.Material = model.Mixed
	}

	if !g.kindSeen {
		g.kind = rec.Kind
		g.kindSeen = true
	} else if g.kind != rec.Kind {
		g.mixed = true
	}

	if rec.Volume.Resolved() {
		it.VolumeM3 += rec.Volume.Value
		it.VolumeResolved++
	}
	if rec.Area.Resolved() {
		it.AreaM2 += rec.Area.Value
		it.AreaResolved++
	}
	if rec.Length.Resolved() {
		it.LengthM += rec.Length.Value
		it.LengthResolved++
	}
	it.Count += rec.Count
}

func keyOf(rec model.QuantityRecord, level model.GroupingLevel) []string {
	storey := model.OrPlaceholder(rec.Storey)
	material := model.OrPlaceholder(rec.Material)

	switch level {
	case model.GroupByStorey:
		return []string{storey}
	case model.GroupByMaterial:
		return []string{material}
	case model.GroupByAll:
		return []string{rec.Type, storey, material}
	default:
		return []string{rec.Type}
	}
}

func lessKey(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// DisplayType strips the Ifc prefix from a type tag ("IfcWall" -> "Wall")
func DisplayType(elementType string) string {
	if len(elementType) > 3 && strings.EqualFold(elementType[:3], "ifc") {
		return elementType[3:]
	}
	return elementType
}

func describe(elementType, material string) string {
	name := DisplayType(elementType)
	if material == model.NotSpecified || material == model.Mixed || material == "" {
		return name
	}
	return name + " - " + material
}
