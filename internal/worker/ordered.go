package worker

import (
	"context"

	"github.com/ppiankov/takeoff/internal/model"
)

// Extractor turns one element into its quantity record. Implementations must be
// safe for concurrent use and must never fail.
type Extractor interface {
	Extract(ctx context.Context, el model.ElementRecord) model.QuantityRecord
}

type extractJob struct {
	index     int
	element   model.ElementRecord
	extractor Extractor
}

func (j *extractJob) Execute(ctx context.Context) Result {
	return &extractResult{
		index:  j.index,
		record: j.extractor.Extract(ctx, j.element),
	}
}

type extractResult struct {
	index  int
	record model.QuantityRecord
}

func (r *extractResult) GetError() error { return nil }

// ExtractOrdered extracts elements on a pool of workers and returns the
// records in input order, exactly as a sequential pass would.
func ExtractOrdered(ctx context.Context, ex Extractor, elements []model.ElementRecord, workers int) []model.QuantityRecord {
	records := make([]model.QuantityRecord, len(elements))
	if len(elements) == 0 {
		return records
	}

	if workers <= 1 {
		for i, el := range elements {
			records[i] = ex.Extract(ctx, el)
		}
		return records
	}

	if workers > len(elements) {
		workers = len(elements)
	}

	jobs := make([]Job, len(elements))
	for i, el := range elements {
		jobs[i] = &extractJob{index: i, element: el, extractor: ex}
	}

	done := make([]bool, len(elements))
	for _, res := range NewPoolWithContext(ctx, workers).Run(jobs) {
		r := res.(*extractResult)
		records[r.index] = r.record
		done[r.index] = true
	}

	// A cancelled pool may drop queued jobs; finish them inline so the
	// record count always matches the element count.
	for i, ok := range done {
		if !ok {
			records[i] = ex.Extract(ctx, elements[i])
		}
	}

	return records
}
