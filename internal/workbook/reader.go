// Package workbook reads the first sheet of an uploaded spreadsheet into
// header-keyed rows.
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"AdvisorDesk/internal/pipeline"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeader          = errors.New("sheet has no header row")
)

// Sheet is the first sheet of a workbook. Every row carries every header.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []pipeline.RawRow
}

// Read dispatches on the file extension.
func Read(filename string, data []byte) (*Sheet, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		name  string
		cells [][]string
		err   error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		name, cells, err = readXLSX(data)
	case ".xls":
		name, cells, err = readXLS(data)
	case ".csv":
		name, cells, err = readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return buildSheet(name, cells)
}

func readXLSX(data []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, fmt.Errorf("no sheets found in Excel file")
	}
	// Raw values keep date cells as serial numbers instead of the
	// locale-formatted text of their number format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return sheets[0], rows, nil
}

func readXLS(data []byte) (string, [][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", nil, fmt.Errorf("failed to open XLS file: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return "", nil, fmt.Errorf("no sheets found in XLS file")
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cols := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		rows = append(rows, cols)
	}
	return sheet.Name, rows, nil
}

func readCSV(data []byte) (string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, rec)
	}
	return "csv", rows, nil
}

// buildSheet takes the first non-empty row as the header. Blank header cells
// get a positional name so their column is not lost; fully empty data rows
// are skipped.
func buildSheet(name string, cells [][]string) (*Sheet, error) {
	start := -1
	for i, row := range cells {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}

	rawHeaders := cells[start]
	headers := make([]string, len(rawHeaders))
	used := make(map[string]int, len(rawHeaders))
	for i, h := range rawHeaders {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if n := used[h]; n > 0 {
			used[h] = n + 1
			h = fmt.Sprintf("%s (%d)", h, n+1)
		} else {
			used[h] = 1
		}
		headers[i] = h
	}

	sheet := &Sheet{Name: name, Headers: headers}
	for _, cellsRow := range cells[start+1:] {
		if blank(cellsRow) {
			continue
		}
		row := make(pipeline.RawRow, len(headers))
		for j, h := range headers {
			if j < len(cellsRow) {
				row[h] = strings.TrimSpace(cellsRow[j])
			} else {
				row[h] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
