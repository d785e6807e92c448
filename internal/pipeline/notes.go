package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"AdvisorDesk/internal/config"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Severity markers prefixed to a rendered note.
const (
	MarkerBlocking = "❌"
	MarkerWarning  = "⚠️"
)

const (
	CodeNRICMissing      = "nric.missing"
	CodeNRICInvalid      = "nric.invalid"
	CodeContactMissing   = "contact.missing"
	CodeEmailInvalid     = "email.invalid"
	CodePhoneInvalid     = "phone.invalid"
	CodeProductMissing   = "product.missing"
	CodeProductUnknown   = "product.unknown"
	CodeFundMissing      = "fund.missing"
	CodeFundInvalid      = "fund.invalid"
	CodeExistingClient   = "client.existing"
	CodePremiumInvalid   = "premium.invalid"
	CodeDatesInverted    = "dates.inverted"
	CodeMultipleProducts = "client.multiple_products"
	CodeRepeatedProduct  = "client.repeated_product"
	CodeDuplicatePolicy  = "policy.duplicate"
)

// maxSuggestDistance bounds the edit distance for "did you mean" hints.
const maxSuggestDistance = 3

var (
	nricPattern  = regexp.MustCompile(`^[STFG]\d{7}[A-Z]$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+65\s?[89]\d{7}$`)
)

// IDSet reports identifiers that already belong to persisted clients.
type IDSet interface {
	Contains(id string) bool
}

// NoteGenerator runs the per-row data-quality checks.
type NoteGenerator struct {
	ref *config.Reference
	loc *time.Location
}

func NewNoteGenerator(ref *config.Reference, loc *time.Location) *NoteGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &NoteGenerator{ref: ref, loc: loc}
}

// Annotate appends check results to the row and re-renders its note.
func (g *NoteGenerator) Annotate(row *EnrichedRow, existing IDSet) {
	if row.NRIC == "" {
		row.annotate(CodeNRICMissing, SeverityBlocking, "Missing NRIC: required to assign client ID.")
	} else if !nricPattern.MatchString(row.NRIC) {
		row.annotate(CodeNRICInvalid, SeverityWarning, "Invalid NRIC format: expected format like S1234567A.")
	}

	if row.Email == "" && row.Phone == "" {
		row.annotate(CodeContactMissing, SeverityBlocking, "Missing both phone and email: at least one required.")
	}
	if row.Email != "" && !emailPattern.MatchString(row.Email) {
		row.annotate(CodeEmailInvalid, SeverityWarning, "Invalid email format.")
	}
	if row.Phone != "" && !phonePattern.MatchString(row.Phone) {
		row.annotate(CodePhoneInvalid, SeverityWarning, "Invalid phone number format (expected +65 XXXXXXXX starting with 8 or 9).")
	}

	switch {
	case row.ProductType == "":
		row.annotate(CodeProductMissing, SeverityBlocking, "Product type is missing.")
	case row.PolicyTypeID == "":
		msg := "Policy type not derived from product type " + quote(row.ProductType)
		if s := g.closestProduct(row.ProductType); s != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", quote(s))
		}
		row.annotate(CodeProductUnknown, SeverityWarning, msg+".")
	}

	if g.ref.IsInvestmentLinked(row.ProductType) {
		switch {
		case row.FundType == "":
			row.annotate(CodeFundMissing, SeverityWarning, "Missing fund type for Investment-Linked Plan.")
		case !g.ref.IsFundType(row.FundType):
			row.annotate(CodeFundInvalid, SeverityWarning,
				"Fund type must be one of: "+strings.Join(g.ref.FundTypes, ", "))
		}
	}

	if row.ClientID != "" && row.ClientID != config.NoClientID && existing != nil && existing.Contains(row.ClientID) {
		row.annotate(CodeExistingClient, SeverityInfo, "Existing client: client_id retained.")
	}

	if row.PremiumRaw != "" {
		if _, ok := parsePremium(row.PremiumRaw); !ok {
			row.annotate(CodePremiumInvalid, SeverityWarning, "Premium amount is not a number: "+quote(row.PremiumRaw)+".")
		}
	}
	start, okStart := ParseDate(row.StartDate, g.loc)
	end, okEnd := ParseDate(row.EndDate, g.loc)
	if okStart && okEnd && start.After(end) {
		row.annotate(CodeDatesInverted, SeverityWarning, "Start date is after end date.")
	}

	row.Note = Render(row.Annotations)
}

func (g *NoteGenerator) closestProduct(product string) string {
	best, bestDist := "", maxSuggestDistance+1
	p := []rune(strings.ToLower(product))
	for _, name := range g.ref.ProductNames() {
		d := levenshtein.DistanceForStrings(p, []rune(strings.ToLower(name)), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

func quote(s string) string { return "'" + s + "'" }

// Prefix returns the severity marker for a set of annotations.
func Prefix(annotations []Annotation) string {
	if len(annotations) == 0 {
		return ""
	}
	for _, a := range annotations {
		if a.Severity == SeverityBlocking {
			return MarkerBlocking
		}
	}
	return MarkerWarning
}

// Render produces the display note: the severity marker followed by the
// messages separated by "; ". A row without annotations renders as "".
func Render(annotations []Annotation) string {
	prefix := Prefix(annotations)
	if prefix == "" {
		return ""
	}
	msgs := make([]string, len(annotations))
	for i, a := range annotations {
		msgs[i] = a.Message
	}
	return prefix + " " + strings.Join(msgs, "; ")
}

// Bullets renders each message on its own bullet line.
func Bullets(annotations []Annotation) []string {
	out := make([]string, len(annotations))
	for i, a := range annotations {
		out[i] = "• " + a.Message
	}
	return out
}
