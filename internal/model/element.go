package model

import "strings"

// ElementKind is the structural classification of a physical building element
type ElementKind string

const (
	KindBeam        ElementKind = "beam"
	KindColumn      ElementKind = "column"
	KindSlab        ElementKind = "slab"
	KindWall        ElementKind = "wall"
	KindFooting     ElementKind = "footing"
	KindPile        ElementKind = "pile"
	KindRailing     ElementKind = "railing"
	KindStair       ElementKind = "stair"
	KindRoof        ElementKind = "roof"
	KindCurtainWall ElementKind = "curtain_wall"
	KindProxy       ElementKind = "proxy"
	KindDoor        ElementKind = "door"
	KindWindow      ElementKind = "window"
)

// kindByType maps IFC entity names (lowercased) to element kinds.
// Subtypes such as IfcWallStandardCase resolve to their parent kind.
var kindByType = map[string]ElementKind{
	"ifcbeam":                 KindBeam,
	"ifcbeamstandardcase":     KindBeam,
	"ifccolumn":               KindColumn,
	"ifccolumnstandardcase":   KindColumn,
	"ifcslab":                 KindSlab,
	"ifcslabstandardcase":     KindSlab,
	"ifcslabelementedcase":    KindSlab,
	"ifcwall":                 KindWall,
	"ifcwallstandardcase":     KindWall,
	"ifcwallelementedcase":    KindWall,
	"ifcfooting":              KindFooting,
	"ifcpile":                 KindPile,
	"ifcrailing":              KindRailing,
	"ifcstair":                KindStair,
	"ifcstairflight":          KindStair,
	"ifcroof":                 KindRoof,
	"ifccurtainwall":          KindCurtainWall,
	"ifcbuildingelementproxy": KindProxy,
	"ifcdoor":                 KindDoor,
	"ifcdoorstandardcase":     KindDoor,
	"ifcwindow":               KindWindow,
	"ifcwindowstandardcase":   KindWindow,
}

// KindOf returns the element kind for an IFC type tag.
// The second return value is false for non-physical or unknown types.
func KindOf(typeTag string) (ElementKind, bool) {
	k, ok := kindByType[strings.ToLower(strings.TrimSpace(typeTag))]
	return k, ok
}

// ParseKind parses a kind name ("wall") or an IFC type tag ("IfcWall")
func ParseKind(s string) (ElementKind, bool) {
	if k, ok := KindOf(s); ok {
		return k, true
	}
	k := ElementKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds() {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// AllKinds returns every supported element kind
func AllKinds() []ElementKind {
	return []ElementKind{
		KindBeam, KindColumn, KindSlab, KindWall, KindFooting,
		KindPile, KindRailing, KindStair, KindRoof, KindCurtainWall,
		KindProxy, KindDoor, KindWindow,
	}
}

// IsLinear reports whether the governing geometric measure of the kind is its length
func (k ElementKind) IsLinear() bool {
	switch k {
	case KindBeam, KindColumn, KindPile, KindRailing:
		return true
	}
	return false
}

// ElementRecord is one physical element as read from the model.
// It is immutable once read; Handle is owned by the model access layer.
type ElementRecord struct {
	ID             int64       `json:"id"`
	GlobalID       string      `json:"global_id,omitempty"`
	Type           string      `json:"type"`
	PredefinedType string      `json:"predefined_type,omitempty"`
	Name           string      `json:"name,omitempty"`
	Tag            string      `json:"tag,omitempty"`
	Kind           ElementKind `json:"kind"`
	Storey         string      `json:"storey,omitempty"`   // "" when unresolved
	Material       string      `json:"material,omitempty"` // "" when unresolved
	Handle         any         `json:"-"`
}

// Category returns Type_PredefinedType when a predefined type is set
func (e ElementRecord) Category() string {
	if e.PredefinedType != "" && !strings.EqualFold(e.PredefinedType, "NOTDEFINED") {
		return e.Type + "_" + e.PredefinedType
	}
	return e.Type
}
