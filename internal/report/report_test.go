package report

import (
	"bytes"
	"testing"
	"time"

	"AdvisorDesk/internal/config"
	"AdvisorDesk/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func enrichedRows(t *testing.T) []pipeline.EnrichedRow {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) }
	records := []pipeline.Record{
		{"fullName": "Tan Ah Kow", "nric": "S1234567D", "email": "tan@example.sg", "productType": "Term Life", "premiumAmount": "1,200.50", "endDate": "2030-01-01"},
		{"fullName": "Lim Mei", "email": "lim@example.sg", "productType": "Whole Life", "premiumAmount": "lots"},
	}
	return pipeline.NewEnricher(config.DefaultReference(), time.UTC, now).Enrich(records, nil, nil)
}

func TestImportReport(t *testing.T) {
	rows := enrichedRows(t)
	data, err := ImportReport(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Header, got[0])

	assert.Equal(t, "Tan Ah Kow", got[1][1])
	assert.Equal(t, "C001", got[1][2])
	assert.Equal(t, "PT002", got[1][7])
	assert.Equal(t, "1200.5", got[1][11])
	assert.Equal(t, "Active", got[1][13])
	assert.Equal(t, "warning", got[1][14])
	assert.Equal(t, rows[0].Note, got[1][15])

	assert.Equal(t, "-", got[2][2])
	assert.Equal(t, "lots", got[2][11], "unparseable premium keeps the typed text")
	assert.Equal(t, "blocking", got[2][14])

	plain, err := f.GetCellStyle(SheetName, "B2")
	require.NoError(t, err)
	shaded, err := f.GetCellStyle(SheetName, "B3")
	require.NoError(t, err)
	assert.NotEqual(t, plain, shaded, "blocked rows are shaded")
}

func TestImportReportEmpty(t *testing.T) {
	data, err := ImportReport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, "", Severity(nil))
	assert.Equal(t, "info", Severity([]pipeline.Annotation{{Severity: pipeline.SeverityInfo}}))
	assert.Equal(t, "blocking", Severity([]pipeline.Annotation{
		{Severity: pipeline.SeverityWarning},
		{Severity: pipeline.SeverityBlocking},
		{Severity: pipeline.SeverityInfo},
	}))
}
