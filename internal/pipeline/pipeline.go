// Package pipeline orchestrates a take-off run: load the model, extract
// quantities, aggregate them into a BOQ, optionally price it and render it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/takeoff/internal/aggregate"
	"github.com/ppiankov/takeoff/internal/bim"
	"github.com/ppiankov/takeoff/internal/cache"
	"github.com/ppiankov/takeoff/internal/cost"
	"github.com/ppiankov/takeoff/internal/extract"
	"github.com/ppiankov/takeoff/internal/metrics"
	"github.com/ppiankov/takeoff/internal/model"
	"github.com/ppiankov/takeoff/internal/report"
	"github.com/ppiankov/takeoff/internal/worker"
)

// Pipeline runs take-offs with one configuration. It is safe for concurrent
// use; each Run works on its own model.
type Pipeline struct {
	config  *model.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
	limiter *worker.Limiter
	now     func() time.Time
}

// New creates a pipeline. logger and m may be nil.
func New(cfg *model.Config, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var c cache.Cache
	if !cfg.Geometry.CacheDisabled {
		c = cache.NewMemoryCache(cfg.Geometry.CacheTTL, 10*time.Minute)
	}

	return &Pipeline{
		config:  cfg,
		logger:  logger,
		metrics: m,
		cache:   c,
		limiter: worker.NewLimiter(cfg.Geometry.MaxPerSecond, cfg.Geometry.Burst),
		now:     time.Now,
	}
}

// Result is the outcome of one take-off run
type Result struct {
	Meta    model.RunMeta
	Records []model.QuantityRecord
	Items   []model.BOQItem
	Summary model.Summary
	Cost    *cost.Estimate
	Stats   extract.Stats

	// Empty is set when no elements remained after filtering. The result
	// still renders to a valid, empty report.
	Empty bool
}

// Run takes off a single model file
func (p *Pipeline) Run(ctx context.Context, modelPath string) (*Result, error) {
	level, err := model.ParseGroupingLevel(p.config.Grouping)
	if err != nil {
		return nil, err
	}

	// 1. Load
	start := time.Now()
	p.logger.Info("loading model", zap.String("path", modelPath))
	m, err := bim.Open(modelPath, bim.Options{
		Logger:           p.logger,
		Cache:            p.cache,
		CacheTTL:         p.config.Geometry.CacheTTL,
		DefaultUnitScale: p.config.Extraction.DefaultUnitScale,
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordStage("load", time.Since(start))

	meta := m.ProjectInfo()
	meta.RunID = uuid.NewString()
	meta.GroupingLevel = level
	meta.GeneratedAt = p.now().UTC()

	p.logger.Info("model loaded",
		zap.String("schema", m.Schema()),
		zap.Float64("unit_scale", m.UnitScaleFactor()),
		zap.String("project", meta.ProjectName),
	)

	// 2. List elements
	kinds, unknown := p.config.Elements.Kinds()
	if len(unknown) > 0 {
		p.logger.Warn("ignoring unknown element types", zap.Strings("types", unknown))
	}
	elements := m.Elements(kinds)
	meta.ElementCount = len(elements)

	if len(elements) == 0 {
		p.logger.Warn("no elements found after filtering", zap.Strings("types", p.config.Elements.Types))
		return &Result{
			Meta:    meta,
			Items:   []model.BOQItem{},
			Summary: aggregate.Summarize(nil),
			Empty:   true,
		}, nil
	}

	// 3. Extract
	start = time.Now()
	extractor := extract.NewExtractor(m, m.UnitScaleFactor(), extract.Options{
		Logger:          p.logger,
		Metrics:         p.metrics,
		Throttle:        p.limiter.For(modelPath),
		GeometryTimeout: p.config.Geometry.Timeout,
		QuantityMarkers: p.config.Extraction.QuantityMarkers,
	})
	records := worker.ExtractOrdered(ctx, extractor, elements, p.config.Extraction.Workers)
	stats := extractor.Stats()
	p.metrics.RecordStage("extract", time.Since(start))

	if stats.GeometryFailures > 0 {
		p.logger.Warn("extraction finished with geometry failures", stats.Fields()...)
	} else {
		p.logger.Info("extraction finished", stats.Fields()...)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// 4. Aggregate
	start = time.Now()
	items, err := aggregate.Generate(records, level)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	summary := aggregate.Summarize(items)
	p.metrics.RecordStage("aggregate", time.Since(start))
	p.metrics.SetItems(len(items))

	p.logger.Info("BOQ generated",
		zap.Int("items", len(items)),
		zap.String("grouping", string(level)),
	)

	result := &Result{
		Meta:    meta,
		Records: records,
		Items:   items,
		Summary: summary,
		Stats:   stats,
	}

	// 5. Cost (optional, never fatal)
	if p.config.Cost.Enabled {
		result.Cost = p.estimate(records)
	}

	return result, nil
}

// estimate prices the records broken down by type, storey and material, so
// every priced line carries one concrete element type whatever the display
// grouping.
func (p *Pipeline) estimate(records []model.QuantityRecord) *cost.Estimate {
	start := time.Now()
	defer func() { p.metrics.RecordStage("cost", time.Since(start)) }()

	book, err := cost.LoadRates(p.config.Cost.RatesPath)
	if err != nil {
		p.logger.Warn("skipping cost estimation", zap.Error(err))
		return nil
	}

	breakdown, err := aggregate.Generate(records, model.GroupByAll)
	if err != nil {
		p.logger.Warn("skipping cost estimation", zap.Error(err))
		return nil
	}

	est := book.Estimate(breakdown, p.config.Cost.Currency)
	if unpriced := est.Unpriced(); len(unpriced) > 0 {
		p.logger.Warn("no rate for element types", zap.Strings("types", unpriced))
	}
	p.logger.Info("cost estimated",
		zap.Int("lines", len(est.Items)),
		zap.Float64("grand_total", est.Summary.GrandTotal),
		zap.String("currency", est.Summary.Currency),
	)
	return est
}

// Report converts a result into the renderer's input
func (p *Pipeline) Report(result *Result) *report.Report {
	return &report.Report{
		Meta:      result.Meta,
		Items:     result.Items,
		Summary:   result.Summary,
		Cost:      result.Cost,
		Precision: p.config.Output.Precision,
	}
}

// Render writes the result to outputPath in the format its extension selects
func (p *Pipeline) Render(result *Result, outputPath string) error {
	start := time.Now()
	if err := report.Render(outputPath, p.Report(result)); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	p.metrics.RecordStage("render", time.Since(start))
	p.logger.Info("report written", zap.String("path", outputPath))
	return nil
}

// Execute runs a model and renders it. A run with no elements still writes
// its empty report and then returns model.ErrNoElements.
func (p *Pipeline) Execute(ctx context.Context, modelPath, outputPath string) (*Result, error) {
	result, err := p.Run(ctx, modelPath)
	if err != nil {
		p.metrics.RecordModel("failed")
		return nil, err
	}

	if err := p.Render(result, outputPath); err != nil {
		p.metrics.RecordModel("failed")
		return result, err
	}

	if result.Empty {
		p.metrics.RecordModel("empty")
		return result, model.ErrNoElements
	}
	p.metrics.RecordModel("ok")
	return result, nil
}

// Processor adapts the pipeline to the batch worker. Each model is written
// to outputDir under its base name with the format's extension.
func (p *Pipeline) Processor(outputDir string, format report.Format) worker.Processor {
	return &modelProcessor{pipeline: p, outputDir: outputDir, format: format}
}

type modelProcessor struct {
	pipeline  *Pipeline
	outputDir string
	format    report.Format
}

func (mp *modelProcessor) ProcessModel(ctx context.Context, modelPath string) (*worker.ModelOutcome, error) {
	out := OutputPath(mp.outputDir, modelPath, mp.format)
	result, err := mp.pipeline.Execute(ctx, modelPath, out)
	if err != nil && !errors.Is(err, model.ErrNoElements) {
		return nil, err
	}
	return &worker.ModelOutcome{
		OutputPath: out,
		Elements:   result.Meta.ElementCount,
		Items:      len(result.Items),
		Empty:      result.Empty,
	}, nil
}

// OutputPath derives a report path for a model inside dir
func OutputPath(dir, modelPath string, format report.Format) string {
	base := filepath.Base(modelPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"."+string(format))
}
