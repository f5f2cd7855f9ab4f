package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/ppiankov/takeoff/internal/model"
)

var (
	pdfMuted    = &props.Color{Red: 80, Green: 80, Blue: 80}
	pdfHeaderBg = &props.Color{Red: 33, Green: 37, Blue: 41}
	pdfStripeBg = &props.Color{Red: 245, Green: 245, Blue: 245}
	pdfTotalBg  = &props.Color{Red: 240, Green: 240, Blue: 240}
)

// pdfColumn is one BOQ table column; widths sum to the 12-column grid
type pdfColumn struct {
	title string
	width int
	align align.Type
	value func(r *Report, it model.BOQItem) string
}

var pdfColumns = []pdfColumn{
	{"No.", 1, align.Center, func(_ *Report, it model.BOQItem) string { return strconv.Itoa(it.ItemNo) }},
	{"Description", 3, align.Left, func(_ *Report, it model.BOQItem) string { return it.Description }},
	{"Unit", 1, align.Center, func(_ *Report, it model.BOQItem) string { return string(it.Unit) }},
	{"Quantity", 1, align.Right, func(r *Report, it model.BOQItem) string { return r.formatNumber(it.Quantity) }},
	{"Storey", 1, align.Left, func(_ *Report, it model.BOQItem) string { return it.Storey }},
	{"Material", 1, align.Left, func(_ *Report, it model.BOQItem) string { return it.Material }},
	{"Volume", 1, align.Right, func(r *Report, it model.BOQItem) string { return r.formatNumber(it.VolumeM3) }},
	{"Area", 1, align.Right, func(r *Report, it model.BOQItem) string { return r.formatNumber(it.AreaM2) }},
	{"Length", 1, align.Right, func(r *Report, it model.BOQItem) string { return r.formatNumber(it.LengthM) }},
	{"Count", 1, align.Right, func(_ *Report, it model.BOQItem) string { return strconv.FormatFloat(it.Count, 'f', -1, 64) }},
}

func writePDF(w io.Writer, r *Report) error {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addPDFHeader(m, r)
	addPDFTableHeader(m)
	if len(r.Items) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("No elements were found for the selected element types.", props.Text{Size: 9, Align: align.Center}),
		)))
	}
	for i, it := range r.Items {
		addPDFRow(m, r, it, i%2 == 1)
	}
	addPDFSummary(m, r)
	if r.Cost != nil {
		addPDFCost(m, r)
	}

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("generate pdf: %w", err)
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func addPDFHeader(m core.Maroto, r *Report) {
	title := "Bill of Quantities"
	if r.Meta.ProjectName != "" {
		title += " - " + r.Meta.ProjectName
	}

	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
			),
		),
	)

	meta := props.Text{Size: 8, Align: align.Left, Color: pdfMuted}
	metaRight := meta
	metaRight.Align = align.Right
	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(text.New("Source: "+orDash(r.Meta.SourcePath), meta)),
			col.New(6).Add(text.New("Schema: "+orDash(r.Meta.Schema), metaRight)),
		),
		row.New(6).Add(
			col.New(6).Add(text.New("Grouping: "+orDash(string(r.Meta.GroupingLevel)), meta)),
			col.New(6).Add(text.New("Unit scale: "+strconv.FormatFloat(r.Meta.UnitScale, 'g', -1, 64), metaRight)),
		),
	)
	m.AddRows(row.New(4))
}

func addPDFTableHeader(m core.Maroto) {
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	cell := &props.Cell{BackgroundColor: pdfHeaderBg}

	cols := make([]core.Col, 0, len(pdfColumns))
	for _, c := range pdfColumns {
		cols = append(cols, col.New(c.width).Add(text.New(c.title, headerText)).WithStyle(cell))
	}
	m.AddRows(row.New(8).Add(cols...))
}

func addPDFRow(m core.Maroto, r *Report, it model.BOQItem, striped bool) {
	cols := make([]core.Col, 0, len(pdfColumns))
	for _, c := range pdfColumns {
		column := col.New(c.width).Add(text.New(c.value(r, it), props.Text{Size: 7, Align: c.align}))
		if striped {
			column = column.WithStyle(&props.Cell{BackgroundColor: pdfStripeBg})
		}
		cols = append(cols, column)
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addPDFSummary(m core.Maroto, r *Report) {
	m.AddRows(row.New(6))

	s := r.Summary
	label := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	cell := &props.Cell{BackgroundColor: pdfTotalBg}

	lines := [][2]string{
		{"Total items", strconv.Itoa(s.TotalItems)},
		{"Total volume (m³)", r.formatNumber(s.TotalVolume)},
		{"Total area (m²)", r.formatNumber(s.TotalArea)},
		{"Total length (m)", r.formatNumber(s.TotalLength)},
		{"Total count", strconv.FormatFloat(s.TotalCount, 'f', -1, 64)},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(7).Add(
				col.New(8).Add(text.New(l[0], label)).WithStyle(cell),
				col.New(4).Add(text.New(l[1], label)).WithStyle(cell),
			),
		)
	}
}

func addPDFCost(m core.Maroto, r *Report) {
	m.AddRows(row.New(6))
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("Cost Estimation", props.Text{Size: 11, Style: fontstyle.Bold}),
	)))

	body := props.Text{Size: 8, Align: align.Left}
	right := props.Text{Size: 8, Align: align.Right}
	for _, l := range r.Cost.Summary.ByType {
		m.AddRows(row.New(6).Add(
			col.New(8).Add(text.New(l.Category, body)),
			col.New(4).Add(text.New(r.formatNumber(l.TotalCost), right)),
		))
	}

	total := "Grand total"
	if r.Cost.Summary.Currency != "" {
		total += " (" + r.Cost.Summary.Currency + ")"
	}
	bold := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	m.AddRows(row.New(7).Add(
		col.New(8).Add(text.New(total, bold)).WithStyle(&props.Cell{BackgroundColor: pdfTotalBg}),
		col.New(4).Add(text.New(r.formatNumber(r.Cost.Summary.GrandTotal), bold)).WithStyle(&props.Cell{BackgroundColor: pdfTotalBg}),
	))
}
