package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/takeoff/internal/metrics"
	"github.com/ppiankov/takeoff/internal/pipeline"
	"github.com/ppiankov/takeoff/internal/report"
	"github.com/ppiankov/takeoff/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	outputFormat string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Take off multiple models listed in a file in parallel",
	Long: `Batch processes multiple model files concurrently:
- Read model paths from the input file (one per line, # comments allowed)
- Take off models in parallel with a configurable worker count
- Write one report per model into the output directory

A model with no matching elements still gets an (empty) report and does not
count as a failure.

Example:
  takeoff batch models.txt
  takeoff batch models.txt --concurrency 4 --output-dir ./boq --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of models processed at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./takeoff-reports", "output directory for reports")
	batchCmd.Flags().StringVar(&outputFormat, "format", string(report.FormatXLSX), "report format (xlsx, json, pdf, html, arrow)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  takeoff Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Format:       %s\n", format)
	fmt.Fprintf(os.Stderr, "  Grouping:     %s\n", runConfig.Grouping)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	m := metrics.New()
	p := pipeline.New(runConfig, logger, m)
	processor := worker.NewBatchProcessor(p.Processor(outputDir, format), concurrency)

	results, err := processor.ProcessFile(ctx, file)
	writeMetrics(runConfig, m)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount, emptyCount, failureCount := 0, 0, 0
	for _, result := range results {
		switch {
		case result.Error != nil:
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ModelPath, result.Error)
		case result.Outcome.Empty:
			emptyCount++
			fmt.Fprintf(os.Stderr, "⚠ %s: no elements (empty report %s)\n", result.ModelPath, result.Outcome.OutputPath)
		default:
			successCount++
			fmt.Fprintf(os.Stderr, "✓ %s → %s (%d elements, %d items)\n",
				result.ModelPath, result.Outcome.OutputPath, result.Outcome.Elements, result.Outcome.Items)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d models\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Empty:     %d\n", emptyCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d models failed", failureCount, len(results))
	}
	return nil
}
