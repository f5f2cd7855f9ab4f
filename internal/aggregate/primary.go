package aggregate

import "github.com/ppiankov/takeoff/internal/model"

// PrimaryMeasures lists, per element kind, the units tried first when choosing
// the quantity reported for an item. After these the generic order
// (volume, area, length) applies, and count is the last resort.
var PrimaryMeasures = map[model.ElementKind][]model.Unit{
	model.KindWall:        {model.UnitCubicMetre},
	model.KindSlab:        {model.UnitCubicMetre},
	model.KindFooting:     {model.UnitCubicMetre},
	model.KindColumn:      {model.UnitCubicMetre},
	model.KindStair:       {model.UnitCubicMetre},
	model.KindBeam:        {model.UnitCubicMetre, model.UnitMetre},
	model.KindPile:        {model.UnitMetre, model.UnitCubicMetre},
	model.KindRoof:        {model.UnitSquareMetre},
	model.KindCurtainWall: {model.UnitSquareMetre},
	model.KindRailing:     {model.UnitSquareMetre},
	model.KindDoor:        {model.UnitCount},
	model.KindWindow:      {model.UnitCount},
	model.KindProxy:       {model.UnitCount},
}

var genericOrder = []model.Unit{model.UnitCubicMetre, model.UnitSquareMetre, model.UnitMetre}

// primaryQuantity picks the unit and quantity reported for an item.
// kind is empty for groups that mix element kinds.
func primaryQuantity(item model.BOQItem, kind model.ElementKind) (model.Unit, float64) {
	candidates := append(append([]model.Unit{}, PrimaryMeasures[kind]...), genericOrder...)
	for _, unit := range candidates {
		if q, ok := qualifies(item, unit); ok {
			return unit, q
		}
	}
	return model.UnitCount, item.Count
}

// qualifies reports whether the group resolved the measure with a positive sum
func qualifies(item model.BOQItem, unit model.Unit) (float64, bool) {
	switch unit {
	case model.UnitCubicMetre:
		return item.VolumeM3, item.VolumeResolved > 0 && item.VolumeM3 > 0
	case model.UnitSquareMetre:
		return item.AreaM2, item.AreaResolved > 0 && item.AreaM2 > 0
	case model.UnitMetre:
		return item.LengthM, item.LengthResolved > 0 && item.LengthM > 0
	case model.UnitCount:
		return item.Count, item.Count > 0
	}
	return 0, false
}
