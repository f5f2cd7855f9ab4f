package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/takeoff/internal/aggregate"
	"github.com/ppiankov/takeoff/internal/metrics"
	"github.com/ppiankov/takeoff/internal/model"
	"github.com/ppiankov/takeoff/internal/pipeline"
	"github.com/ppiankov/takeoff/internal/report"
)

func runTakeoff(cmd *cobra.Command, args []string) error {
	modelPath, outputPath := args[0], args[1]

	// Reject an unsupported output before doing any work
	if _, err := report.FormatFor(outputPath); err != nil {
		return err
	}

	cfg := runConfig
	m := metrics.New()
	p := pipeline.New(cfg, logger, m)

	result, err := p.Execute(cmd.Context(), modelPath, outputPath)
	writeMetrics(cfg, m)

	switch {
	case errors.Is(err, model.ErrNoElements):
		fmt.Fprintf(os.Stderr, "⚠ No elements found for types %v; wrote empty report: %s\n", cfg.Elements.Types, outputPath)
		return err
	case err != nil:
		return fmt.Errorf("take-off failed: %w", err)
	}

	printSummary(cmd.OutOrStdout(), result, outputPath, cfg.Output.Precision)
	return nil
}

func writeMetrics(cfg *model.Config, m *metrics.Metrics) {
	if cfg.Output.MetricsFile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		logger.Warn("failed to write metrics file", zap.String("path", cfg.Output.MetricsFile), zap.Error(err))
	}
}

// printSummary prints the run summary to stdout
func printSummary(w io.Writer, result *pipeline.Result, outputPath string, precision int) {
	num := func(v float64) string { return fmt.Sprintf("%.*f", precision, v) }
	s := result.Summary

	fmt.Fprintf(w, "✓ Wrote BOQ: %s\n", outputPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Elements:      %d\n", result.Meta.ElementCount)
	fmt.Fprintf(w, "  BOQ items:     %d (grouped by %s)\n", s.TotalItems, result.Meta.GroupingLevel)
	fmt.Fprintf(w, "  Volume:        %s m³\n", num(s.TotalVolume))
	fmt.Fprintf(w, "  Area:          %s m²\n", num(s.TotalArea))
	fmt.Fprintf(w, "  Length:        %s m\n", num(s.TotalLength))
	fmt.Fprintf(w, "  Count:         %g\n", s.TotalCount)

	if len(s.ElementTypes) > 0 {
		names := make([]string, len(s.ElementTypes))
		for i, t := range s.ElementTypes {
			names[i] = aggregate.DisplayType(t)
		}
		fmt.Fprintf(w, "  Types:         %v\n", names)
	}

	st := result.Stats
	if st.Elements > 0 {
		parts := make([]string, 0, len(model.Fields()))
		for _, f := range model.Fields() {
			parts = append(parts, fmt.Sprintf("%s %d", f, st.Unresolved(f)))
		}
		fmt.Fprintf(w, "  Unresolved:    %s\n", strings.Join(parts, ", "))
	}
	if st.GeometryFailures > 0 {
		fmt.Fprintf(w, "  Geometry:      %d element(s) could not be measured\n", st.GeometryFailures)
	}

	if c := result.Cost; c != nil {
		total := num(c.Summary.GrandTotal)
		if c.Summary.Currency != "" {
			total += " " + c.Summary.Currency
		}
		fmt.Fprintf(w, "  Cost:          %s\n", total)
	}
	fmt.Fprintln(w)
}
