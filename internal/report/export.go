package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"market-reconcile/internal/analysis"
	"market-reconcile/internal/metrics"
)

// BuildComparisonXLSX renders the table with unscaled numbers, one sheet for the
// summary and one for the rows. Sentinel metrics are written as their markers.
func BuildComparisonXLSX(t *analysis.ComparisonTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	rowsSheet := "comparison"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(rowsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Orientation comparison")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", t.From.String())
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", t.To.String())
	_ = f.SetCellValue(summarySheet, "A5", "Rated power (MW)")
	_ = f.SetCellValue(summarySheet, "B5", t.RatedPowerMW)
	_ = f.SetCellValue(summarySheet, "A6", "Average price (€/MWh)")
	_ = f.SetCellValue(summarySheet, "B6", metricCell(t.AveragePrice))

	header := Header(t)
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(rowsSheet, cell, h)
	}

	rows := append(append([]analysis.ComparisonRow{}, t.Rows...), t.Total)
	for i, r := range rows {
		values := []interface{}{r.Period.Label}
		for _, v := range r.Variants {
			values = append(values, metricCell(v.EquivalentHours))
		}
		for _, v := range r.Variants {
			values = append(values, v.Revenue)
		}
		values = append(values, orDash(r.EnergyLeader), orDash(r.RevenueLeader))
		if err := setRow(f, rowsSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	delta := []interface{}{DeltaLabel}
	for _, d := range t.Deltas {
		delta = append(delta, metricCell(d.Energy))
	}
	for _, d := range t.Deltas {
		delta = append(delta, metricCell(d.Revenue))
	}
	if err := setRow(f, rowsSheet, len(rows)+2, delta); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	metrics.IncExport("xlsx")
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// BuildComparisonPDF renders the display form of the table on one landscape page.
func BuildComparisonPDF(t *analysis.ComparisonTable) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Orientation comparison")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, kv := range Summary(t) {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", kv[0], kv[1])))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	header := Header(t)
	width := 270.0 / float64(len(header))

	pdf.SetFont("Arial", "B", 9)
	for _, h := range header {
		pdf.CellFormat(width, 6, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range Rows(t) {
		for i, c := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(width, 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	metrics.IncExport("pdf")
	return buf.Bytes(), nil
}
