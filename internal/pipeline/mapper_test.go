package pipeline

import (
	"testing"

	"AdvisorDesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMapperSuggest(t *testing.T) {
	m := NewHeaderMapper(config.DefaultReference())

	tests := []struct {
		header     string
		field      string
		confidence float64
	}{
		{"client_name", "fullName", 1.0},
		{"Client ID", "clientId", 1.0},
		{"Product-Type", "productType", 1.0},
		{"Fund Type", "fundTypeILP", 1.0},
		{"NRIC", "nric", 1.0},
		{"End Date", "endDate", 1.0},
		{"marital status", "maritalStatus", 1.0},
		{"Client Email Address", "email", 0.7},
		{"Premium", "premiumAmount", 0.7},
		{"Favourite Colour", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got := m.Suggest(tt.header)
			assert.Equal(t, tt.field, got.SuggestedField)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.False(t, got.ManuallyCorrected)
		})
	}
}

func TestHeaderMapperSubstringTieGoesToFirstField(t *testing.T) {
	ref := &config.Reference{CanonicalFields: []string{"startDate", "endDate"}}
	m := NewHeaderMapper(ref)

	got := m.Suggest("date")
	assert.Equal(t, "startDate", got.SuggestedField)
	assert.Equal(t, 0.7, got.Confidence)
}

func TestHeaderMapperExactBeatsEarlierSubstring(t *testing.T) {
	ref := &config.Reference{CanonicalFields: []string{"premiumAmount", "premium"}}
	m := NewHeaderMapper(ref)

	got := m.Suggest("Premium")
	assert.Equal(t, "premium", got.SuggestedField)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestApplyOverridesAndReview(t *testing.T) {
	m := NewHeaderMapper(config.DefaultReference())
	headers := []string{"client_name", "Colour", "Policy ID", "Mystery"}
	mapping := m.Map(headers)

	require.Equal(t, []string{"Colour", "Mystery"}, NeedsReview(headers, mapping))

	rejected := m.ApplyOverrides(mapping, map[string]string{
		"Colour":      "",
		"Mystery":     "policyId",
		"Unknown":     "email",
		"client_name": "notAField",
	})
	assert.Equal(t, []string{"Unknown", "client_name"}, rejected)
	assert.Equal(t, FieldMapping{SuggestedField: "policyId", Confidence: 1.0, ManuallyCorrected: true}, mapping["Mystery"])
	assert.Equal(t, FieldMapping{ManuallyCorrected: true}, mapping["Colour"])
	assert.Equal(t, "fullName", mapping["client_name"].SuggestedField)
	assert.Empty(t, NeedsReview(headers, mapping))
}
