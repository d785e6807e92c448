package workbook

import (
	"testing"
	"time"

	"AdvisorDesk/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"Client Name", "NRIC", "", "Email"},
		{"Tan Ah Kow", "S1234567D", "x", ""},
		{},
		{"Lim", "", "", "lim@example.sg"},
	})

	sheet, err := Read("clients.XLSX", data)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sheet.Name)
	assert.Equal(t, []string{"Client Name", "NRIC", "Column 3", "Email"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, pipeline.RawRow{"Client Name": "Tan Ah Kow", "NRIC": "S1234567D", "Column 3": "x", "Email": ""}, sheet.Rows[0])
	assert.Equal(t, pipeline.RawRow{"Client Name": "Lim", "NRIC": "", "Column 3": "", "Email": "lim@example.sg"}, sheet.Rows[1])
}

func TestReadXLSXDateCells(t *testing.T) {
	start := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2099, 6, 30, 0, 0, 0, 0, time.UTC)
	data := buildXLSX(t, [][]interface{}{
		{"Client Name", "Start Date", "End Date", "Premium Amount"},
		{"Tan Ah Kow", start, end, 1200.5},
	})

	sheet, err := Read("dates.xlsx", data)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	row := sheet.Rows[0]

	got, ok := pipeline.ParseDate(row["Start Date"], time.UTC)
	require.True(t, ok, "start date cell read as %q", row["Start Date"])
	assert.Equal(t, start, got)
	got, ok = pipeline.ParseDate(row["End Date"], time.UTC)
	require.True(t, ok, "end date cell read as %q", row["End Date"])
	assert.Equal(t, end, got)
	assert.Equal(t, "1200.5", row["Premium Amount"])

	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, pipeline.StatusActive, pipeline.DeriveStatus(row["End Date"], now, time.UTC))
	assert.Equal(t, pipeline.StatusExpired, pipeline.DeriveStatus(row["Start Date"], now, time.UTC))
}

func TestReadCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfName,Email,Email\nTan, tan@example.sg,alt@example.sg\n,,\nLee\n")

	sheet, err := Read("upload.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Email", "Email (2)"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "tan@example.sg", sheet.Rows[0]["Email"])
	assert.Equal(t, "alt@example.sg", sheet.Rows[0]["Email (2)"])
	assert.Equal(t, pipeline.RawRow{"Name": "Lee", "Email": "", "Email (2)": ""}, sheet.Rows[1])
}

func TestReadErrors(t *testing.T) {
	_, err := Read("notes.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("empty.csv", []byte("\n,,\n"))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Read("broken.xlsx", []byte("not a zip"))
	assert.Error(t, err)
}
