package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

// GenerateResultsExcel writes the results table of a report to an XLSX
// workbook. Result cells get the same treatment as in the PDF.
func GenerateResultsExcel(model ReportRenderModel) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	withSpec := model.Flags.HasSpecificationColumn
	headers := []string{"S.No", "Parameter", "Unit", "Result", "Method"}
	widths := []float64{7, 40, 10, 14, 32}
	if withSpec {
		headers = append(headers, "Specification")
		widths = append(widths, 24)
	}

	columns := make([]string, len(headers))
	for i := range headers {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		columns[i] = name
		if err := f.SetColWidth(resultsSheet, name, name, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", name, err)
		}
	}
	lastCol := columns[len(columns)-1]

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{headerGray.Hex()},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	bodyStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	results := resultStyles{file: f, cache: map[string]int{}}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	if err := f.MergeCell(resultsSheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(resultsSheet, "A1", sanitizeExcelCell("Test Results: "+model.ReportIdentifier()))
	f.SetCellStyle(resultsSheet, "A1", lastCol+"1", titleStyle)

	if err := f.MergeCell(resultsSheet, "A2", lastCol+"2"); err != nil {
		return nil, fmt.Errorf("merge customer: %w", err)
	}
	f.SetCellValue(resultsSheet, "A2", sanitizeExcelCell("Customer: "+model.Customer.Name))
	f.SetCellStyle(resultsSheet, "A2", lastCol+"2", subtitleStyle)

	if err := f.MergeCell(resultsSheet, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(resultsSheet, "A3", "Date of Reporting: "+model.Dates.Reporting)
	f.SetCellStyle(resultsSheet, "A3", lastCol+"3", subtitleStyle)

	// ── Row 5: Column Headers ───────────────────────────────────────────

	for i, h := range headers {
		f.SetCellValue(resultsSheet, columns[i]+"5", h)
	}
	f.SetCellStyle(resultsSheet, "A5", lastCol+"5", headerStyle)

	// ── Data Rows (starting row 6) ──────────────────────────────────────

	row := 6
	if len(model.ResultRows) == 0 {
		rowStr := fmt.Sprintf("%d", row)
		if err := f.MergeCell(resultsSheet, "A"+rowStr, lastCol+rowStr); err != nil {
			return nil, fmt.Errorf("merge empty row: %w", err)
		}
		f.SetCellValue(resultsSheet, "A"+rowStr, NoResultsText)
		f.SetCellStyle(resultsSheet, "A"+rowStr, lastCol+rowStr, bodyStyle)
		row++
	}

	for _, r := range model.ResultRows {
		rowStr := fmt.Sprintf("%d", row)
		rs := ResolveRowStyle(r)

		values := []string{r.SNo, r.ParameterName, r.UnitDisplay, rs.DisplayValue, r.MethodName}
		if withSpec {
			spec := r.Specification
			if IsPlaceholderSpecification(spec) {
				spec = Placeholder
			}
			values = append(values, spec)
		}
		for i, v := range values {
			f.SetCellValue(resultsSheet, columns[i]+rowStr, sanitizeExcelCell(v))
		}
		f.SetCellStyle(resultsSheet, "A"+rowStr, lastCol+rowStr, bodyStyle)

		style, err := results.get(rs)
		if err != nil {
			return nil, err
		}
		f.SetCellStyle(resultsSheet, "D"+rowStr, "D"+rowStr, style)

		row++
	}

	// ── Remarks ─────────────────────────────────────────────────────────

	if len(model.RemarksLines) > 0 {
		row++
		f.SetCellValue(resultsSheet, fmt.Sprintf("A%d", row), "Remarks:")
		f.SetCellStyle(resultsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), titleStyle)
		row++
		for _, line := range model.RemarksLines {
			cell := fmt.Sprintf("A%d", row)
			if err := f.MergeCell(resultsSheet, cell, fmt.Sprintf("%s%d", lastCol, row)); err != nil {
				return nil, fmt.Errorf("merge remark: %w", err)
			}
			f.SetCellValue(resultsSheet, cell, sanitizeExcelCell(line))
			row++
		}
	}

	// ── Write to buffer ─────────────────────────────────────────────────

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

// resultStyles creates one excelize style per distinct result treatment.
type resultStyles struct {
	file  *excelize.File
	cache map[string]int
}

func (s resultStyles) get(rs RowStyle) (int, error) {
	key := fmt.Sprintf("%v|%v|%s|%t", rs.Background, rs.Text, rs.Align, rs.Bold)
	if id, ok := s.cache[key]; ok {
		return id, nil
	}

	align := rs.Align
	if align == "" {
		align = "center"
	}
	style := &excelize.Style{
		Font:      &excelize.Font{Size: 10, Bold: rs.Bold},
		Alignment: &excelize.Alignment{Horizontal: align, Vertical: "top"},
		Border:    thinBorders(),
	}
	if rs.Text != nil {
		style.Font.Color = strings.ToUpper(rs.Text.Hex())
	}
	if rs.Background != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{strings.ToUpper(rs.Background.Hex())},
			Pattern: 1,
		}
	}

	id, err := s.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create result style: %w", err)
	}
	s.cache[key] = id
	return id, nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
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

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
