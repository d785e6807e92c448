package pipeline

import (
	"fmt"
	"strings"
	"time"

	"AdvisorDesk/internal/config"
)

// Enricher runs the full reconciliation over one batch.
type Enricher struct {
	ref     *config.Reference
	cleaner *Cleaner
	notes   *NoteGenerator
}

func NewEnricher(ref *config.Reference, loc *time.Location, now func() time.Time) *Enricher {
	return &Enricher{
		ref:     ref,
		cleaner: NewCleaner(ref, loc, now),
		notes:   NewNoteGenerator(ref, loc),
	}
}

// Enrich cleans, resolves and annotates every record in order, then applies
// client-level hints. dir may be nil when the directory is unavailable.
func (e *Enricher) Enrich(records []Record, dir *Directory, reserved []string) []EnrichedRow {
	resolver := NewIdentityResolver(dir, reserved)
	rows := make([]EnrichedRow, 0, len(records))
	for _, rec := range records {
		row := e.cleaner.Clean(rec)
		resolver.Resolve(&row)
		e.notes.Annotate(&row, dir)
		rows = append(rows, row)
	}
	return ApplyClientHints(rows)
}

// ApplyClientHints appends cross-row hints: several products for one client
// and repeated (client, product, start, end) entries. Rows without a client
// identifier take no part. Hints already on a row are not added again, so
// running it twice yields the same notes.
func ApplyClientHints(rows []EnrichedRow) []EnrichedRow {
	groups := make(map[string][]int)
	var order []string
	for i, row := range rows {
		if !hasClientID(row) {
			continue
		}
		if _, ok := groups[row.ClientID]; !ok {
			order = append(order, row.ClientID)
		}
		groups[row.ClientID] = append(groups[row.ClientID], i)
	}

	for _, id := range order {
		idx := groups[id]
		if len(idx) < 2 {
			continue
		}
		types := distinctProducts(rows, idx)
		var hint Annotation
		switch {
		case len(types) > 1:
			hint = Annotation{Code: CodeMultipleProducts, Severity: SeverityWarning,
				Message: fmt.Sprintf("Client has multiple product types in the table (%s)", strings.Join(types, ", "))}
		case len(types) == 1:
			hint = Annotation{Code: CodeRepeatedProduct, Severity: SeverityWarning,
				Message: fmt.Sprintf("Client has multiple policies for the same product type with different durations (%s)", types[0])}
		default:
			continue
		}
		for _, i := range idx {
			appendOnce(&rows[i], hint)
		}
	}

	dup := Annotation{Code: CodeDuplicatePolicy, Severity: SeverityWarning,
		Message: "Duplicate policy entry detected for the same client."}
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		if !hasClientID(rows[i]) {
			continue
		}
		key := strings.Join([]string{rows[i].ClientID, rows[i].ProductType, rows[i].StartDate, rows[i].EndDate}, "\x1f")
		if seen[key] {
			appendOnce(&rows[i], dup)
			continue
		}
		seen[key] = true
	}

	for i := range rows {
		rows[i].Note = Render(rows[i].Annotations)
	}
	return rows
}

// Blocked returns the indices of rows that must be fixed before approval.
func Blocked(rows []EnrichedRow) []int {
	var out []int
	for i := range rows {
		if rows[i].Blocking() {
			out = append(out, i)
		}
	}
	return out
}

func hasClientID(row EnrichedRow) bool {
	return row.ClientID != "" && row.ClientID != config.NoClientID
}

func distinctProducts(rows []EnrichedRow, idx []int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, i := range idx {
		p := strings.TrimSpace(rows[i].ProductType)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func appendOnce(row *EnrichedRow, a Annotation) {
	if !row.HasAnnotation(a) {
		row.Annotations = append(row.Annotations, a)
	}
}
