// Package bim is the model access layer: it opens building model exports and
// exposes element records, quantity data and geometry to the extraction engine.
package bim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/takeoff/internal/cache"
	"github.com/ppiankov/takeoff/internal/geometry"
	"github.com/ppiankov/takeoff/internal/model"
)

var (
	ErrUnsupportedSchema = errors.New("unsupported schema")
	ErrNoGeometry        = errors.New("element has no geometry")
	ErrUnknownShape      = errors.New("unknown shape representation")
)

var supportedSchemas = map[string]bool{
	"IFC2X3": true,
	"IFC4":   true,
	"IFC4X1": true,
	"IFC4X3": true,
}

// excludedTypes are non-physical categories never taken off
var excludedTypes = map[string]bool{
	"ifcopeningelement":      true,
	"ifcopeningstandardcase": true,
	"ifcspace":               true,
	"ifcannotation":          true,
	"ifcgrid":                true,
	"ifcvirtualelement":      true,
}

var excludedKeywords = []string{"opening", "void", "annotation"}

// Options configures a Model
type Options struct {
	Logger           *zap.Logger
	Cache            cache.Cache   // shared representation memo; nil disables caching
	CacheTTL         time.Duration // 0 uses the cache default
	DefaultUnitScale float64       // used when the length unit is undetectable
}

// Model is an opened building model
type Model struct {
	path    string
	doc     *document
	storeys map[string]storeyDoc
	scale   float64
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// Open reads and decodes a model export. Failures are *model.LoadError.
func Open(path string, opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.LoadError{Path: path, Err: err}
	}

	doc, err := decode(data)
	if err != nil {
		return nil, &model.LoadError{Path: path, Err: err}
	}

	m := &Model{
		path:    path,
		doc:     doc,
		storeys: make(map[string]storeyDoc, len(doc.Storeys)),
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		logger:  logger,
	}
	for _, s := range doc.Storeys {
		if s.ID != "" {
			m.storeys[s.ID] = s
		}
	}

	defaultScale := opts.DefaultUnitScale
	if defaultScale <= 0 {
		defaultScale = 0.001
	}
	m.scale = m.detectUnitScale(defaultScale)

	logger.Debug("model opened",
		zap.String("path", path),
		zap.String("schema", doc.Schema),
		zap.Int("elements", len(doc.Elements)),
		zap.Float64("unit_scale", m.scale),
	)

	return m, nil
}

func decode(data []byte) (*document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	schema := strings.ToUpper(strings.TrimSpace(doc.Schema))
	if schema == "" {
		return nil, fmt.Errorf("%w: schema not declared", ErrUnsupportedSchema)
	}
	if !supportedSchemas[schema] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSchema, doc.Schema)
	}
	doc.Schema = schema

	return &doc, nil
}

// Path returns the source path of the model
func (m *Model) Path() string {
	return m.path
}

// Schema returns the declared schema label (e.g. IFC4)
func (m *Model) Schema() string {
	return m.doc.Schema
}

// UnitScaleFactor returns the ratio of the model's linear unit to metres
func (m *Model) UnitScaleFactor() float64 {
	return m.scale
}

func (m *Model) detectUnitScale(fallback float64) float64 {
	u := m.doc.Units.Length
	if u == nil {
		m.logger.Warn("no length unit declared, assuming default", zap.Float64("scale", fallback))
		return fallback
	}

	name := strings.ToUpper(strings.TrimSpace(u.Name))
	prefix := strings.ToUpper(strings.TrimSpace(u.Prefix))

	switch {
	case strings.Contains(name, "METER") || strings.Contains(name, "METRE"):
		if prefix == "" {
			prefix = name
		}
		switch {
		case strings.Contains(prefix, "MILLI"):
			return 0.001
		case strings.Contains(prefix, "CENTI"):
			return 0.01
		case strings.Contains(prefix, "DECI"):
			return 0.1
		case strings.Contains(prefix, "KILO"):
			return 1000
		default:
			return 1.0
		}
	case strings.Contains(name, "FOOT") || strings.Contains(name, "FEET"):
		return 0.3048
	case strings.Contains(name, "INCH"):
		return 0.0254
	}

	m.logger.Warn("unrecognised length unit, assuming default",
		zap.String("unit", u.Name),
		zap.String("prefix", u.Prefix),
		zap.Float64("scale", fallback),
	)
	return fallback
}

// ProjectInfo returns the run metadata the model can supply
func (m *Model) ProjectInfo() model.RunMeta {
	return model.RunMeta{
		ProjectName:  m.doc.Project.Name,
		ProjectID:    m.doc.Project.ID,
		BuildingName: m.doc.Building.Name,
		Schema:       m.doc.Schema,
		UnitScale:    m.scale,
		SourcePath:   m.path,
	}
}

// Elements returns the physical elements of the requested kinds, in file order
func (m *Model) Elements(kinds []model.ElementKind) []model.ElementRecord {
	wanted := make(map[model.ElementKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var records []model.ElementRecord
	for i := range m.doc.Elements {
		el := &m.doc.Elements[i]

		if excludedTypes[strings.ToLower(el.Type)] {
			continue
		}
		kind, ok := model.KindOf(el.Type)
		if !ok || !wanted[kind] {
			continue
		}
		if looksNonPhysical(el.Name) || looksNonPhysical(el.Tag) {
			m.logger.Debug("skipping non-physical element",
				zap.Int64("id", el.ID),
				zap.String("name", el.Name),
			)
			continue
		}

		rec := model.ElementRecord{
			ID:             el.ID,
			GlobalID:       el.GlobalID,
			Type:           el.Type,
			PredefinedType: el.PredefinedType,
			Name:           el.Name,
			Tag:            el.Tag,
			Kind:           kind,
			Handle:         el,
		}
		rec.Storey = m.StoreyName(rec)
		rec.Material = m.MaterialName(rec)
		records = append(records, rec)
	}

	m.logger.Info("elements listed", zap.Int("count", len(records)), zap.Int("in_file", len(m.doc.Elements)))
	return records
}

func looksNonPhysical(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range excludedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// StoreyName returns the name of the storey containing the element, or ""
func (m *Model) StoreyName(el model.ElementRecord) string {
	doc, ok := handle(el)
	if !ok {
		return ""
	}
	ref := strings.TrimSpace(doc.Storey)
	if ref == "" {
		return ""
	}
	if s, ok := m.storeys[ref]; ok {
		if s.Name != "" {
			return s.Name
		}
		return s.LongName
	}
	return ref
}

// MaterialName returns the first usable material name of the element, or ""
func (m *Model) MaterialName(el model.ElementRecord) string {
	doc, ok := handle(el)
	if !ok {
		return ""
	}
	for _, name := range doc.Materials {
		if n := strings.TrimSpace(name); n != "" {
			return n
		}
	}
	return ""
}

// StructuredQuantities returns the element's quantity set entries in declaration order.
// Entries without a declared kind get one inferred from the standard quantity name.
func (m *Model) StructuredQuantities(el model.ElementRecord) []model.Quantity {
	doc, ok := handle(el)
	if !ok {
		return nil
	}

	var out []model.Quantity
	for _, set := range doc.QuantitySets {
		for _, q := range set.Quantities {
			value, ok := model.ParseNumber(q.Value)
			if !ok {
				m.logger.Debug("skipping non-numeric quantity",
					zap.Int64("id", el.ID),
					zap.String("set", set.Name),
					zap.String("name", q.Name),
				)
				continue
			}
			kind := strings.ToLower(strings.TrimSpace(q.Kind))
			if kind == "" {
				kind = inferKind(q.Name)
			}
			out = append(out, model.Quantity{
				Set:   set.Name,
				Name:  q.Name,
				Kind:  kind,
				Value: value,
			})
		}
	}
	return out
}

// PropertySets returns the element's property sets keyed by set name
func (m *Model) PropertySets(el model.ElementRecord) map[string]map[string]any {
	doc, ok := handle(el)
	if !ok {
		return nil
	}
	return doc.PropertySets
}

// ComputeGeometry measures the element's shape in source units.
// Failures are *model.GeometryError.
func (m *Model) ComputeGeometry(ctx context.Context, el model.ElementRecord) (model.Geometry, error) {
	doc, ok := handle(el)
	if !ok {
		return model.Geometry{}, &model.GeometryError{ElementID: el.ID, Err: ErrNoGeometry}
	}

	var mesh geometry.Mesh
	var key string
	switch {
	case doc.Representation != "":
		shared, found := m.doc.Representations[doc.Representation]
		if !found {
			return model.Geometry{}, &model.GeometryError{
				ElementID: el.ID,
				Err:       fmt.Errorf("%w: %s", ErrUnknownShape, doc.Representation),
			}
		}
		mesh = shared
		if m.cache != nil {
			key = cache.Key(m.path, doc.Representation)
			if g, hit := m.cache.Get(key); hit {
				return forKind(g, el.Kind), nil
			}
		}
	case doc.Geometry != nil:
		mesh = *doc.Geometry
	default:
		return model.Geometry{}, &model.GeometryError{ElementID: el.ID, Err: ErrNoGeometry}
	}

	res, err := geometry.Measure(ctx, mesh)
	if err != nil {
		return model.Geometry{}, &model.GeometryError{ElementID: el.ID, Err: err}
	}

	g := model.Geometry{}
	if res.Volume > 0 {
		v := res.Volume
		g.Volume = &v
	}
	if res.Area > 0 {
		a := res.Area
		g.Area = &a
	}
	if l := res.BBox.MaxExtent(); l > 0 {
		g.Length = &l
	}

	if key != "" {
		m.cache.Set(key, g, m.ttl)
	}

	return forKind(g, el.Kind), nil
}

// forKind drops the bounding-box length for kinds not governed by length
func forKind(g model.Geometry, kind model.ElementKind) model.Geometry {
	if !kind.IsLinear() {
		g.Length = nil
	}
	return g
}

func handle(el model.ElementRecord) (*elementDoc, bool) {
	doc, ok := el.Handle.(*elementDoc)
	return doc, ok && doc != nil
}

// standardKinds infers a quantity kind from common IFC base quantity names
var standardKinds = map[string]string{
	"netvolume":        "volume",
	"grossvolume":      "volume",
	"volume":           "volume",
	"netarea":          "area",
	"grossarea":        "area",
	"area":             "area",
	"netsidearea":      "area",
	"grosssidearea":    "area",
	"netfootprintarea": "area",
	"totalsurfacearea": "area",
	"length":           "length",
	"netlength":        "length",
	"grosslength":      "length",
	"perimeter":        "length",
	"width":            "length",
	"height":           "length",
	"depth":            "length",
	"netweight":        "weight",
	"grossweight":      "weight",
	"count":            "count",
}

func inferKind(name string) string {
	return standardKinds[strings.ToLower(strings.TrimSpace(name))]
}
