package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// boqSchema returns the Arrow schema of a BOQ table. Aggregates no record
// in the group resolved are null rather than zero.
func boqSchema(r *Report) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "item_no", Type: arrow.PrimitiveTypes.Int64},
		{Name: "element_type", Type: arrow.BinaryTypes.String},
		{Name: "description", Type: arrow.BinaryTypes.String},
		{Name: "unit", Type: arrow.BinaryTypes.String},
		{Name: "quantity", Type: arrow.PrimitiveTypes.Float64},
		{Name: "storey", Type: arrow.BinaryTypes.String},
		{Name: "material", Type: arrow.BinaryTypes.String},
		{Name: "volume_m3", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "area_m2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "length_m", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "count", Type: arrow.PrimitiveTypes.Float64},
	}

	m := r.Meta
	md := arrow.NewMetadata(
		[]string{"run_id", "schema", "source_path", "grouping_level", "unit_scale_factor", "project_name"},
		[]string{m.RunID, m.Schema, m.SourcePath, string(m.GroupingLevel), strconv.FormatFloat(m.UnitScale, 'g', -1, 64), m.ProjectName},
	)
	return arrow.NewSchema(fields, &md)
}

func writeArrow(w io.Writer, r *Report) error {
	schema := boqSchema(r)
	pool := memory.NewGoAllocator()

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	appendMeasure := func(fb *array.Float64Builder, v float64, resolved int) {
		if resolved == 0 {
			fb.AppendNull()
			return
		}
		fb.Append(v)
	}

	for _, it := range r.Items {
		b.Field(0).(*array.Int64Builder).Append(int64(it.ItemNo))
		b.Field(1).(*array.StringBuilder).Append(it.ElementType)
		b.Field(2).(*array.StringBuilder).Append(it.Description)
		b.Field(3).(*array.StringBuilder).Append(string(it.Unit))
		b.Field(4).(*array.Float64Builder).Append(it.Quantity)
		b.Field(5).(*array.StringBuilder).Append(it.Storey)
		b.Field(6).(*array.StringBuilder).Append(it.Material)
		appendMeasure(b.Field(7).(*array.Float64Builder), it.VolumeM3, it.VolumeResolved)
		appendMeasure(b.Field(8).(*array.Float64Builder), it.AreaM2, it.AreaResolved)
		appendMeasure(b.Field(9).(*array.Float64Builder), it.LengthM, it.LengthResolved)
		b.Field(10).(*array.Float64Builder).Append(it.Count)
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return nil
}
