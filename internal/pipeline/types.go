// Package pipeline reconciles spreadsheet rows into client and policy records:
// header mapping, row cleaning, client identity resolution, annotation and
// batch-level hints. Everything here is synchronous and in-memory; rows are
// processed strictly in sheet order.
package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Canonical field names used by the pipeline.
const (
	FieldClientName       = "clientName"
	FieldFullName         = "fullName"
	FieldClientID         = "clientId"
	FieldPolicyID         = "policyId"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldNRIC             = "nric"
	FieldProductType      = "productType"
	FieldPolicyTypeID     = "policyTypeId"
	FieldFundType         = "fundTypeILP"
	FieldStartDate        = "startDate"
	FieldEndDate          = "endDate"
	FieldPremiumAmount    = "premiumAmount"
	FieldPremiumFrequency = "premiumFrequency"
	FieldStatus           = "status"
)

// RawRow is one spreadsheet row keyed by the original header text.
type RawRow map[string]string

// Record is a row after the field mapping has been applied.
type Record map[string]string

// FieldMapping is the suggestion for a single spreadsheet header.
type FieldMapping struct {
	SuggestedField    string  `json:"suggestedField"`
	Confidence        float64 `json:"confidence"`
	ManuallyCorrected bool    `json:"manuallyCorrected"`
}

// Mapping maps spreadsheet headers to their field suggestion.
type Mapping map[string]FieldMapping

type Status string

const (
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
	StatusUnknown Status = "Unknown"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityBlocking
)

func (s Severity) String() string {
	switch s {
	case SeverityBlocking:
		return "blocking"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "blocking":
		*s = SeverityBlocking
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Annotation is one data-quality message attached to a row.
type Annotation struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// EnrichedRow is the canonical unit produced by the pipeline.
type EnrichedRow struct {
	ClientName       string            `json:"clientName"`
	ClientID         string            `json:"clientId"`
	PolicyID         string            `json:"policyId,omitempty"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	NRIC             string            `json:"nric"`
	ProductType      string            `json:"productType"`
	PolicyTypeID     string            `json:"policyTypeId"`
	FundType         string            `json:"fundTypeILP"`
	StartDate        string            `json:"startDate"`
	EndDate          string            `json:"endDate"`
	PremiumAmount    decimal.Decimal   `json:"premiumAmount"`
	PremiumRaw       string            `json:"-"`
	PremiumFrequency string            `json:"premiumFrequency"`
	Status           Status            `json:"status"`
	Extra            map[string]string `json:"extra,omitempty"`
	Annotations      []Annotation      `json:"annotations"`
	Note             string            `json:"note"`
}

// Blocking reports whether the row carries a blocking annotation.
func (r *EnrichedRow) Blocking() bool {
	for _, a := range r.Annotations {
		if a.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// HasAnnotation reports whether an annotation with the same code and message is present.
func (r *EnrichedRow) HasAnnotation(a Annotation) bool {
	for _, existing := range r.Annotations {
		if existing.Code == a.Code && existing.Message == a.Message {
			return true
		}
	}
	return false
}

func (r *EnrichedRow) annotate(code string, sev Severity, msg string) {
	r.Annotations = append(r.Annotations, Annotation{Code: code, Severity: sev, Message: msg})
}

// DirectoryEntry is an already-persisted client.
type DirectoryEntry struct {
	ClientID string `json:"clientId"`
	NRIC     string `json:"nric"`
}

// Directory indexes persisted clients by normalized NRIC.
type Directory struct {
	byNRIC map[string]string
	ids    map[string]bool
}

func NewDirectory(entries []DirectoryEntry) *Directory {
	d := &Directory{
		byNRIC: make(map[string]string, len(entries)),
		ids:    make(map[string]bool, len(entries)),
	}
	for _, e := range entries {
		id := e.ClientID
		if id == "" {
			continue
		}
		d.ids[id] = true
		if nric := NormalizeNRIC(e.NRIC); nric != "" {
			if _, exists := d.byNRIC[nric]; !exists {
				d.byNRIC[nric] = id
			}
		}
	}
	return d
}

// Lookup returns the identifier recorded for a normalized NRIC.
func (d *Directory) Lookup(nric string) (string, bool) {
	if d == nil {
		return "", false
	}
	id, ok := d.byNRIC[nric]
	return id, ok
}

// Contains reports whether id is already used by a persisted client.
func (d *Directory) Contains(id string) bool {
	return d != nil && d.ids[id]
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ids)
}
