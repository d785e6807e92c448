package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReference(t *testing.T) {
	ref := DefaultReference()

	require.Len(t, ref.ProductTypes, 16)
	assert.Equal(t, "PT001", ref.ProductCode("Whole Life"))
	assert.Equal(t, "PT016", ref.ProductCode(" Universal Life "))
	assert.Equal(t, "", ref.ProductCode("Pet Insurance"))
	assert.True(t, ref.IsInvestmentLinked("investment-linked"))
	assert.False(t, ref.IsInvestmentLinked("Term Life"))
	assert.True(t, ref.IsFundType("Growth"))
	assert.False(t, ref.IsFundType("growth"))
	assert.Equal(t, "fullName", ref.Aliases["client_name"])
}

func TestParseReferenceRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty fields", "version: 1\n"},
		{"duplicate product", "canonical_fields: [a]\nproduct_types:\n  - {name: A, code: P1}\n  - {name: A, code: P2}\n"},
		{"incomplete product", "canonical_fields: [a]\nproduct_types:\n  - {name: A}\n"},
		{"unknown ilp", "canonical_fields: [a]\ninvestment_linked: X\n"},
		{"not yaml", "canonical_fields: [a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReference([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
