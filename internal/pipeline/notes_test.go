package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"AdvisorDesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(row EnrichedRow) []string {
	out := make([]string, len(row.Annotations))
	for i, a := range row.Annotations {
		out[i] = a.Code
	}
	return out
}

func TestNoteGeneratorChecks(t *testing.T) {
	g := NewNoteGenerator(config.DefaultReference(), sgt)
	dir := NewDirectory([]DirectoryEntry{{ClientID: "C001", NRIC: "S1234567D"}})

	tests := []struct {
		name   string
		row    EnrichedRow
		codes  []string
		prefix string
	}{
		{
			name:   "clean row",
			row:    EnrichedRow{NRIC: "S1234567D", ClientID: "C002", Email: "a@b.sg", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{},
			prefix: "",
		},
		{
			name:   "missing nric",
			row:    EnrichedRow{ClientID: "-", Phone: "+6591234567", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{CodeNRICMissing},
			prefix: MarkerBlocking,
		},
		{
			name:   "invalid nric is only a warning",
			row:    EnrichedRow{NRIC: "X1234567D", Email: "a@b.sg", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{CodeNRICInvalid},
			prefix: MarkerWarning,
		},
		{
			name:   "no contact",
			row:    EnrichedRow{NRIC: "S1234567D", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{CodeContactMissing},
			prefix: MarkerBlocking,
		},
		{
			name:   "bad email and phone",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "nope@", Phone: "+6571234567", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{CodeEmailInvalid, CodePhoneInvalid},
			prefix: MarkerWarning,
		},
		{
			name:   "missing product",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg"},
			codes:  []string{CodeProductMissing},
			prefix: MarkerBlocking,
		},
		{
			name:   "unknown product",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg", ProductType: "Pet Insurance"},
			codes:  []string{CodeProductUnknown},
			prefix: MarkerWarning,
		},
		{
			name:   "ilp without fund",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg", ProductType: "Investment-Linked", PolicyTypeID: "PT003"},
			codes:  []string{CodeFundMissing},
			prefix: MarkerWarning,
		},
		{
			name:   "ilp with unknown fund",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg", ProductType: "Investment-Linked", PolicyTypeID: "PT003", FundType: "Crypto"},
			codes:  []string{CodeFundInvalid},
			prefix: MarkerWarning,
		},
		{
			name:   "existing client",
			row:    EnrichedRow{NRIC: "S1234567D", ClientID: "C001", Email: "a@b.sg", ProductType: "Term Life", PolicyTypeID: "PT002"},
			codes:  []string{CodeExistingClient},
			prefix: MarkerWarning,
		},
		{
			name:   "bad premium and inverted dates",
			row:    EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg", ProductType: "Term Life", PolicyTypeID: "PT002", PremiumRaw: "lots", StartDate: "2026-05-01", EndDate: "2026-01-01"},
			codes:  []string{CodePremiumInvalid, CodeDatesInverted},
			prefix: MarkerWarning,
		},
		{
			name:   "everything wrong",
			row:    EnrichedRow{ClientID: "-"},
			codes:  []string{CodeNRICMissing, CodeContactMissing, CodeProductMissing},
			prefix: MarkerBlocking,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.row
			g.Annotate(&row, dir)
			assert.Equal(t, tt.codes, codes(row))
			if tt.prefix == "" {
				assert.Empty(t, row.Note)
			} else {
				assert.True(t, strings.HasPrefix(row.Note, tt.prefix+" "), row.Note)
			}
		})
	}
}

func TestUnknownProductSuggestion(t *testing.T) {
	g := NewNoteGenerator(config.DefaultReference(), sgt)
	row := EnrichedRow{NRIC: "S1234567D", Email: "a@b.sg", ProductType: "Term Lief"}
	g.Annotate(&row, nil)

	require.Len(t, row.Annotations, 1)
	assert.Contains(t, row.Annotations[0].Message, "did you mean 'Term Life'?")
}

func TestSeverityInvariant(t *testing.T) {
	g := NewNoteGenerator(config.DefaultReference(), sgt)
	nrics := []string{"", "S1234567D", "bad"}
	emails := []string{"", "a@b.sg", "bad"}
	phones := []string{"", "+6591234567", "123"}
	products := []string{"", "Term Life", "Investment-Linked", "Pet"}

	for _, n := range nrics {
		for _, e := range emails {
			for _, p := range phones {
				for _, prod := range products {
					row := EnrichedRow{NRIC: n, Email: e, Phone: p, ProductType: prod,
						PolicyTypeID: config.DefaultReference().ProductCode(prod)}
					g.Annotate(&row, nil)
					structural := n == "" || (e == "" && p == "") || prod == ""
					assert.Equal(t, structural, strings.Contains(row.Note, MarkerBlocking),
						"nric=%q email=%q phone=%q product=%q note=%q", n, e, p, prod, row.Note)
				}
			}
		}
	}
}

func TestRenderAndBullets(t *testing.T) {
	anns := []Annotation{
		{Code: "a", Severity: SeverityWarning, Message: "first"},
		{Code: "b", Severity: SeverityInfo, Message: "second"},
	}
	assert.Equal(t, "⚠️ first; second", Render(anns))
	assert.Equal(t, []string{"• first", "• second"}, Bullets(anns))
	assert.Equal(t, "", Render(nil))
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	row := EnrichedRow{ClientID: "C001", Annotations: []Annotation{
		{Code: CodeNRICMissing, Severity: SeverityBlocking, Message: "missing"},
		{Code: CodeEmailInvalid, Severity: SeverityWarning, Message: "email"},
		{Code: CodeExistingClient, Severity: SeverityInfo, Message: "existing"},
	}}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"warning"`)

	var back EnrichedRow
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, row.Annotations, back.Annotations)
	assert.True(t, back.Blocking())

	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
}
