// Package extract maps element records to canonical quantity records.
//
// Each quantity field is resolved independently through a fixed chain of
// tiers (structured quantity sets, quantity-like property sets, geometry)
// and normalized to metres with the run's unit scale factor.
package extract

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/takeoff/internal/metrics"
	"github.com/ppiankov/takeoff/internal/model"
)

// Source is the part of the model access layer the extractor reads
type Source interface {
	StructuredQuantities(el model.ElementRecord) []model.Quantity
	PropertySets(el model.ElementRecord) map[string]map[string]any
	ComputeGeometry(ctx context.Context, el model.ElementRecord) (model.Geometry, error)
}

// Throttle gates calls into the geometric kernel
type Throttle interface {
	Wait(ctx context.Context) error
}

// Options configures an Extractor
type Options struct {
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Throttle        Throttle
	GeometryTimeout time.Duration // per element, 0 = none
	QuantityMarkers []string      // property set name markers, default Qto and Quantities
}

// Extractor resolves quantity records. It is safe for concurrent use.
type Extractor struct {
	scale    float64
	chain    []Resolver
	source   Source
	logger   *zap.Logger
	metrics  *metrics.Metrics
	throttle Throttle
	timeout  time.Duration

	mu    sync.Mutex
	stats Stats
}

// NewExtractor creates an extractor for one model run. scale is the ratio of
// the model's linear unit to metres.
func NewExtractor(source Source, scale float64, opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	markers := opts.QuantityMarkers
	if len(markers) == 0 {
		markers = []string{"Qto", "Quantities"}
	}

	return &Extractor{
		scale:  scale,
		source: source,
		chain: []Resolver{
			&StructuredResolver{source: source},
			&PropertySetResolver{source: source, markers: markers},
			&GeometricResolver{},
		},
		logger:   logger,
		metrics:  opts.Metrics,
		throttle: opts.Throttle,
		timeout:  opts.GeometryTimeout,
		stats:    newStats(),
	}
}

// Scale returns the unit scale factor applied to every resolved value
func (e *Extractor) Scale() float64 {
	return e.scale
}

// Extract builds the quantity record of one element. It never fails and
// always reports a count of 1.
func (e *Extractor) Extract(ctx context.Context, el model.ElementRecord) model.QuantityRecord {
	rec := model.QuantityRecord{
		ElementID: el.ID,
		GlobalID:  el.GlobalID,
		Type:      el.Type,
		Category:  el.Category(),
		Name:      el.Name,
		Kind:      el.Kind,
		Storey:    model.OrPlaceholder(el.Storey),
		Material:  model.OrPlaceholder(el.Material),
		Count:     1,
	}

	s := &Subject{Element: el, extractor: e}
	for _, field := range model.Fields() {
		m := e.resolve(ctx, s, field)
		rec.SetMeasure(field, m)
		e.metrics.RecordResolution(field, m.Tier)
	}

	e.mu.Lock()
	e.stats.record(rec, s.geomFailed())
	e.mu.Unlock()
	e.metrics.RecordElement()

	return rec
}

// ExtractAll extracts elements sequentially, preserving input order
func (e *Extractor) ExtractAll(ctx context.Context, elements []model.ElementRecord) []model.QuantityRecord {
	records := make([]model.QuantityRecord, 0, len(elements))
	for _, el := range elements {
		records = append(records, e.Extract(ctx, el))
	}
	return records
}

// Stats returns a snapshot of the run statistics
func (e *Extractor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.clone()
}

func (e *Extractor) resolve(ctx context.Context, s *Subject, field model.Field) (m model.Measure) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("resolver panic",
				zap.Int64("element_id", s.Element.ID),
				zap.String("field", string(field)),
				zap.Any("panic", r),
			)
			m = model.Measure{}
		}
	}()

	for _, r := range e.chain {
		raw, ok := r.Resolve(ctx, s, field)
		if !ok {
			continue
		}
		return model.Measure{
			Value: raw * math.Pow(e.scale, float64(field.Power())),
			Tier:  r.Tier(),
		}
	}
	return model.Measure{}
}

// computeGeometry calls the kernel with throttling, timeout and panic isolation
func (e *Extractor) computeGeometry(ctx context.Context, el model.ElementRecord) (g model.Geometry, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &model.GeometryError{ElementID: el.ID, Err: fmt.Errorf("kernel panic: %v", r)}
			e.logger.Debug("geometry kernel panic",
				zap.Int64("element_id", el.ID),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		e.metrics.RecordGeometry(time.Since(start), err != nil)
		if err != nil {
			e.logger.Debug("geometry failed",
				zap.Int64("element_id", el.ID),
				zap.String("global_id", el.GlobalID),
				zap.String("type", el.Type),
				zap.Error(err),
			)
		}
	}()

	if e.throttle != nil {
		if werr := e.throttle.Wait(ctx); werr != nil {
			return model.Geometry{}, &model.GeometryError{ElementID: el.ID, Err: werr}
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	return e.source.ComputeGeometry(ctx, el)
}

// Subject is the per-element state shared by the resolvers of one extraction
type Subject struct {
	Element model.ElementRecord

	extractor *Extractor

	qtyLoaded bool
	qty       []model.Quantity

	geomLoaded bool
	geom       model.Geometry
	geomErr    error
}

// Geometry returns the element's geometry, computing it on first use
func (s *Subject) Geometry(ctx context.Context) (model.Geometry, error) {
	if !s.geomLoaded {
		s.geom, s.geomErr = s.extractor.computeGeometry(ctx, s.Element)
		s.geomLoaded = true
	}
	return s.geom, s.geomErr
}

func (s *Subject) quantities(src Source) []model.Quantity {
	if !s.qtyLoaded {
		s.qty = src.StructuredQuantities(s.Element)
		s.qtyLoaded = true
	}
	return s.qty
}

func (s *Subject) geomFailed() bool {
	return s.geomLoaded && s.geomErr != nil
}
