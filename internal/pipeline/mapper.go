package pipeline

import (
	"sort"
	"strings"

	"AdvisorDesk/internal/config"
)

const (
	exactConfidence     = 1.0
	substringConfidence = 0.7
)

var headerStripper = strings.NewReplacer("-", "", "_", "", " ", "")

func normalizeHeader(s string) string {
	return headerStripper.Replace(strings.ToLower(s))
}

// HeaderMapper suggests canonical fields for arbitrary spreadsheet headers.
type HeaderMapper struct {
	fields  []string
	aliases map[string]string
}

func NewHeaderMapper(ref *config.Reference) *HeaderMapper {
	aliases := make(map[string]string, len(ref.Aliases))
	for k, v := range ref.Aliases {
		aliases[normalizeHeader(k)] = v
	}
	fields := make([]string, len(ref.CanonicalFields))
	copy(fields, ref.CanonicalFields)
	return &HeaderMapper{fields: fields, aliases: aliases}
}

// Fields returns the canonical field list offered for manual overrides.
func (m *HeaderMapper) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

// Suggest maps a single header.
func (m *HeaderMapper) Suggest(header string) FieldMapping {
	h := normalizeHeader(header)
	if h == "" {
		return FieldMapping{}
	}
	if target, ok := m.aliases[h]; ok {
		return FieldMapping{SuggestedField: target, Confidence: exactConfidence}
	}
	for _, f := range m.fields {
		if normalizeHeader(f) == h {
			return FieldMapping{SuggestedField: f, Confidence: exactConfidence}
		}
	}
	for _, f := range m.fields {
		nf := normalizeHeader(f)
		if strings.Contains(h, nf) || strings.Contains(nf, h) {
			return FieldMapping{SuggestedField: f, Confidence: substringConfidence}
		}
	}
	return FieldMapping{}
}

// Map suggests a field for every header.
func (m *HeaderMapper) Map(headers []string) Mapping {
	out := make(Mapping, len(headers))
	for _, h := range headers {
		out[h] = m.Suggest(h)
	}
	return out
}

// ApplyOverrides records user corrections. An empty field clears the suggestion.
// Overrides naming a field outside the canonical list are returned as rejected.
func (m *HeaderMapper) ApplyOverrides(mapping Mapping, overrides map[string]string) (rejected []string) {
	known := make(map[string]bool, len(m.fields))
	for _, f := range m.fields {
		known[f] = true
	}
	for header, field := range overrides {
		if _, ok := mapping[header]; !ok {
			rejected = append(rejected, header)
			continue
		}
		if field != "" && !known[field] {
			rejected = append(rejected, header)
			continue
		}
		fm := FieldMapping{SuggestedField: field, ManuallyCorrected: true}
		if field != "" {
			fm.Confidence = exactConfidence
		}
		mapping[header] = fm
	}
	sort.Strings(rejected)
	return rejected
}

// NeedsReview lists headers, in the given order, whose mapping must be
// confirmed before preview.
func NeedsReview(headers []string, mapping Mapping) []string {
	var out []string
	for _, h := range headers {
		fm, ok := mapping[h]
		if !ok || fm.ManuallyCorrected {
			continue
		}
		if fm.SuggestedField == "" || fm.Confidence < config.ReviewThreshold {
			out = append(out, h)
		}
	}
	return out
}
