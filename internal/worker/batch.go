package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Processor defines the interface for taking off a single model file
type Processor interface {
	ProcessModel(ctx context.Context, modelPath string) (*ModelOutcome, error)
}

// ModelOutcome summarizes one processed model
type ModelOutcome struct {
	OutputPath string
	Elements   int
	Items      int
	Empty      bool
}

// ModelJob represents one model take-off job
type ModelJob struct {
	index     int
	ModelPath string
	Processor Processor
}

// Execute executes the model job
func (j *ModelJob) Execute(ctx context.Context) Result {
	outcome, err := j.Processor.ProcessModel(ctx, j.ModelPath)
	return &ModelResult{
		index:     j.index,
		ModelPath: j.ModelPath,
		Outcome:   outcome,
		Error:     err,
	}
}

// ModelResult represents the result of a model job
type ModelResult struct {
	index     int
	ModelPath string
	Outcome   *ModelOutcome
	Error     error
}

// GetError returns the error from the model result
func (r *ModelResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple models concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessModels processes models concurrently; results follow input order
func (b *BatchProcessor) ProcessModels(ctx context.Context, paths []string) []*ModelResult {
	if len(paths) == 0 {
		return []*ModelResult{}
	}

	jobs := make([]Job, len(paths))
	for i, path := range paths {
		jobs[i] = &ModelJob{index: i, ModelPath: path, Processor: b.processor}
	}

	results := make([]*ModelResult, len(paths))
	for _, res := range NewPoolWithContext(ctx, b.concurrency).Run(jobs) {
		r := res.(*ModelResult)
		results[r.index] = r
	}

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("model %s was not processed", paths[i])
			}
			results[i] = &ModelResult{index: i, ModelPath: paths[i], Error: err}
		}
	}

	return results
}

// ProcessFile reads model paths from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ModelResult, error) {
	paths, err := ReadModelPathsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read model list: %w", err)
	}

	return b.ProcessModels(ctx, paths), nil
}

// ReadModelPathsFromFile reads model paths from a file (one per line)
func ReadModelPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
