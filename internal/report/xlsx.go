package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/takeoff/internal/aggregate"
	"github.com/ppiankov/takeoff/internal/model"
)

const (
	sheetSummary = "Summary"
	sheetProject = "Project Information"
	sheetCost    = "Cost Estimation"
	sheetNoData  = "No Data"

	maxSheetName = 31
)

type xlsxStyles struct {
	header int
	text   int
	number int
	label  int
}

func writeXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	styles, err := newXLSXStyles(f, r.precision())
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, styles, r); err != nil {
		return err
	}

	if len(r.Items) == 0 {
		if _, err := f.NewSheet(sheetNoData); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		f.SetCellValue(sheetNoData, "A1", "No elements were found for the selected element types.")
	} else {
		if err := writeTypeSheets(f, styles, r); err != nil {
			return err
		}
	}

	if r.Cost != nil {
		if err := writeCostSheet(f, styles, r); err != nil {
			return err
		}
	}

	if err := writeProjectSheet(f, styles, r); err != nil {
		return err
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

func newXLSXStyles(f *excelize.File, precision int) (xlsxStyles, error) {
	var s xlsxStyles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}

	s.text, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return s, fmt.Errorf("create text style: %w", err)
	}

	numFmt := "0"
	if precision > 0 {
		numFmt = "0." + strings.Repeat("0", precision)
	}
	s.number, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return s, fmt.Errorf("create number style: %w", err)
	}

	s.label, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return s, fmt.Errorf("create label style: %w", err)
	}

	return s, nil
}

// writeTypeSheets writes one BOQ sheet per element type. Storey and material
// groupings mix types within an item, so their sheets follow the grouping key.
func writeTypeSheets(f *excelize.File, st xlsxStyles, r *Report) error {
	bySheet := make(map[string][]model.BOQItem)
	var keys []string
	for _, it := range r.Items {
		k := sheetKey(it, r.Meta.GroupingLevel)
		if _, ok := bySheet[k]; !ok {
			keys = append(keys, k)
		}
		bySheet[k] = append(bySheet[k], it)
	}
	sort.Strings(keys)

	used := map[string]bool{
		strings.ToLower(sheetSummary): true,
		strings.ToLower(sheetProject): true,
		strings.ToLower(sheetCost):    true,
		strings.ToLower(sheetNoData):  true,
	}

	for _, k := range keys {
		label := k
		if level := r.Meta.GroupingLevel; level != model.GroupByStorey && level != model.GroupByMaterial {
			label = aggregate.DisplayType(k)
		}
		name := uniqueSheetName(label, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeItemTable(f, st, name, bySheet[k]); err != nil {
			return err
		}
	}
	return nil
}

func sheetKey(it model.BOQItem, level model.GroupingLevel) string {
	switch level {
	case model.GroupByStorey:
		return it.Storey
	case model.GroupByMaterial:
		return it.Material
	default:
		return it.ElementType
	}
}

func writeItemTable(f *excelize.File, st xlsxStyles, sheet string, items []model.BOQItem) error {
	if err := writeHeader(f, st, sheet, 1, Columns); err != nil {
		return err
	}

	widths := []float64{8, 18, 36, 7, 12, 18, 20, 12, 12, 12, 8}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, wd); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	for i, it := range items {
		row := i + 2
		values := []interface{}{
			it.ItemNo,
			sanitizeExcelCell(it.ElementType),
			sanitizeExcelCell(it.Description),
			string(it.Unit),
			it.Quantity,
			sanitizeExcelCell(it.Storey),
			sanitizeExcelCell(it.Material),
			it.VolumeM3,
			it.AreaM2,
			it.LengthM,
			it.Count,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		first, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellStyle(sheet, first, last, st.text)
		qty, _ := excelize.CoordinatesToCellName(5, row)
		_ = f.SetCellStyle(sheet, qty, qty, st.number)
		vol, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellStyle(sheet, vol, last, st.number)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, st xlsxStyles, r *Report) error {
	s := r.Summary
	rows := [][]interface{}{
		{"Total Items", s.TotalItems},
		{"Total Volume (m³)", s.TotalVolume},
		{"Total Area (m²)", s.TotalArea},
		{"Total Length (m)", s.TotalLength},
		{"Total Count", s.TotalCount},
		{"Element Types", strings.Join(s.ElementTypes, ", ")},
	}

	if err := writeHeader(f, st, sheetSummary, 1, []string{"Metric", "Value"}); err != nil {
		return err
	}
	for i, values := range rows {
		if err := setRow(f, sheetSummary, i+2, values); err != nil {
			return err
		}
	}
	_ = f.SetCellStyle(sheetSummary, "B3", "B5", st.number)
	_ = f.SetColWidth(sheetSummary, "A", "A", 22)
	_ = f.SetColWidth(sheetSummary, "B", "B", 40)
	return nil
}

func writeProjectSheet(f *excelize.File, st xlsxStyles, r *Report) error {
	if _, err := f.NewSheet(sheetProject); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeHeader(f, st, sheetProject, 1, []string{"Property", "Value"}); err != nil {
		return err
	}
	for i, kv := range r.projectRows() {
		if err := setRow(f, sheetProject, i+2, []interface{}{kv[0], sanitizeExcelCell(kv[1])}); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheetProject, "A", "A", 22)
	_ = f.SetColWidth(sheetProject, "B", "B", 60)
	return nil
}

func writeCostSheet(f *excelize.File, st xlsxStyles, r *Report) error {
	if _, err := f.NewSheet(sheetCost); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headers := []string{"Item No", "Description", "Unit", "Quantity", "Storey", "Rate", "Total Cost"}
	if err := writeHeader(f, st, sheetCost, 1, headers); err != nil {
		return err
	}

	row := 2
	for _, p := range r.Cost.Items {
		values := []interface{}{
			p.ItemNo,
			sanitizeExcelCell(p.Description),
			string(p.Unit),
			p.Quantity,
			sanitizeExcelCell(p.Storey),
			p.Rate,
			p.TotalCost,
		}
		if err := setRow(f, sheetCost, row, values); err != nil {
			return err
		}
		row++
	}

	s := r.Cost.Summary
	row++
	section := func(title string) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetCost, cell, title); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheetCost, cell, cell, st.label)
		row++
		return nil
	}

	if err := section("By Element Type"); err != nil {
		return err
	}
	for _, l := range s.ByType {
		if err := setRow(f, sheetCost, row, []interface{}{sanitizeExcelCell(l.Category), l.TotalCost}); err != nil {
			return err
		}
		row++
	}
	row++
	if err := section("By Storey"); err != nil {
		return err
	}
	for _, l := range s.ByStorey {
		if err := setRow(f, sheetCost, row, []interface{}{sanitizeExcelCell(l.Category), l.TotalCost}); err != nil {
			return err
		}
		row++
	}
	row++
	label := "Grand Total"
	if s.Currency != "" {
		label += " (" + s.Currency + ")"
	}
	if err := setRow(f, sheetCost, row, []interface{}{label, s.GrandTotal}); err != nil {
		return err
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetCellStyle(sheetCost, cell, cell, st.label)

	_ = f.SetColWidth(sheetCost, "A", "A", 22)
	_ = f.SetColWidth(sheetCost, "B", "B", 36)
	return nil
}

func writeHeader(f *excelize.File, st xlsxStyles, sheet string, row int, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := setRow(f, sheet, row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	return f.SetCellStyle(sheet, first, last, st.header)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

// uniqueSheetName cleans a sheet name, truncates it to the Excel limit and
// disambiguates it against names already used (case-insensitively)
func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = "Items"
	}

	candidate := truncateRunes(name, maxSheetName)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns thin borders on all four sides
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1,
		}
	}
	return borders
}
