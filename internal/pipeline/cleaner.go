package pipeline

import (
	"strings"
	"time"

	"AdvisorDesk/internal/config"

	"github.com/shopspring/decimal"
)

// ApplyMapping copies every mapped cell into its canonical field. Headers
// without a suggestion are dropped. When two headers map to the same field the
// first non-empty value in header order wins.
func ApplyMapping(headers []string, raw RawRow, mapping Mapping) Record {
	rec := make(Record, len(mapping))
	for _, h := range headers {
		fm, ok := mapping[h]
		if !ok || fm.SuggestedField == "" {
			continue
		}
		v := strings.TrimSpace(raw[h])
		if existing, taken := rec[fm.SuggestedField]; taken && existing != "" {
			continue
		}
		rec[fm.SuggestedField] = v
	}
	return rec
}

// Cleaner derives policy code, status and fund type for a mapped record.
type Cleaner struct {
	ref *config.Reference
	loc *time.Location
	now func() time.Time
}

func NewCleaner(ref *config.Reference, loc *time.Location, now func() time.Time) *Cleaner {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Cleaner{ref: ref, loc: loc, now: now}
}

var knownFields = map[string]bool{
	FieldClientName: true, FieldFullName: true, FieldClientID: true, FieldPolicyID: true,
	FieldEmail: true, FieldPhone: true, FieldNRIC: true, FieldProductType: true,
	FieldPolicyTypeID: true, FieldFundType: true, FieldStartDate: true, FieldEndDate: true,
	FieldPremiumAmount: true, FieldPremiumFrequency: true, FieldStatus: true,
}

// Clean never fails; problems surface later as annotations.
func (c *Cleaner) Clean(rec Record) EnrichedRow {
	name := rec[FieldFullName]
	if name == "" {
		name = rec[FieldClientName]
	}
	row := EnrichedRow{
		ClientName:       name,
		ClientID:         strings.TrimSpace(rec[FieldClientID]),
		PolicyID:         rec[FieldPolicyID],
		Email:            strings.TrimSpace(rec[FieldEmail]),
		Phone:            strings.TrimSpace(rec[FieldPhone]),
		NRIC:             NormalizeNRIC(rec[FieldNRIC]),
		ProductType:      strings.TrimSpace(rec[FieldProductType]),
		FundType:         strings.TrimSpace(rec[FieldFundType]),
		StartDate:        strings.TrimSpace(rec[FieldStartDate]),
		EndDate:          strings.TrimSpace(rec[FieldEndDate]),
		PremiumRaw:       strings.TrimSpace(rec[FieldPremiumAmount]),
		PremiumFrequency: strings.TrimSpace(rec[FieldPremiumFrequency]),
	}
	if row.ProductType == "-" {
		row.ProductType = ""
	}

	row.PolicyTypeID = c.ref.ProductCode(row.ProductType)
	row.Status = DeriveStatus(row.EndDate, c.now(), c.loc)
	if !c.ref.IsInvestmentLinked(row.ProductType) {
		row.FundType = ""
	}
	if amt, ok := parsePremium(row.PremiumRaw); ok {
		row.PremiumAmount = amt
	}

	for k, v := range rec {
		if knownFields[k] || v == "" {
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]string)
		}
		row.Extra[k] = v
	}
	return row
}

// NormalizeNRIC trims and upper-cases an NRIC. The placeholder "-" counts as empty.
func NormalizeNRIC(s string) string {
	n := strings.ToUpper(strings.TrimSpace(s))
	if n == "-" {
		return ""
	}
	return n
}

// parsePremium accepts plain and thousands-separated amounts, with an optional
// leading "$".
func parsePremium(raw string) (decimal.Decimal, bool) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		return decimal.Zero, false
	}
	amt, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return amt, true
}
