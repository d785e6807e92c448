// Package report renders enriched import rows as a downloadable workbook.
package report

import (
	"bytes"
	"fmt"

	"AdvisorDesk/internal/pipeline"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Import Report"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Header = []string{
	"Row",
	"Client Name",
	"Client ID",
	"NRIC",
	"Email",
	"Phone",
	"Product Type",
	"Policy Type ID",
	"Fund Type",
	"Start Date",
	"End Date",
	"Premium Amount",
	"Premium Frequency",
	"Status",
	"Severity",
	"Note",
}

var columnWidths = []float64{6, 24, 10, 12, 28, 16, 20, 14, 14, 12, 12, 14, 16, 10, 10, 70}

// ImportReport writes one line per row with its note and highest severity.
// Rows that block approval are shaded.
func ImportReport(rows []pipeline.EnrichedRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	blockedStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FDE2E1"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create row style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i := range rows {
		row := &rows[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			i + 1,
			row.ClientName,
			row.ClientID,
			row.NRIC,
			row.Email,
			row.Phone,
			row.ProductType,
			row.PolicyTypeID,
			row.FundType,
			row.StartDate,
			row.EndDate,
			premium(row),
			row.PremiumFrequency,
			string(row.Status),
			Severity(row.Annotations),
			row.Note,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		if row.Blocking() {
			end, _ := excelize.CoordinatesToCellName(len(Header), i+2)
			if err := f.SetCellStyle(SheetName, cell, end, blockedStyle); err != nil {
				return nil, fmt.Errorf("failed to set row style: %w", err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Severity is the highest severity among the annotations, or "" for none.
func Severity(annotations []pipeline.Annotation) string {
	if len(annotations) == 0 {
		return ""
	}
	top := pipeline.SeverityInfo
	for _, a := range annotations {
		if a.Severity > top {
			top = a.Severity
		}
	}
	return top.String()
}

// premium keeps unparseable amounts as the text the user typed.
func premium(row *pipeline.EnrichedRow) interface{} {
	if row.PremiumRaw == "" {
		return ""
	}
	for _, a := range row.Annotations {
		if a.Code == pipeline.CodePremiumInvalid {
			return row.PremiumRaw
		}
	}
	return row.PremiumAmount.InexactFloat64()
}
