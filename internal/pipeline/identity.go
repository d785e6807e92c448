package pipeline

import (
	"fmt"

	"AdvisorDesk/internal/config"
)

const (
	CodeIDCorrected = "identity.corrected"
	CodeIDReused    = "identity.reused"
	CodeIDAssigned  = "identity.assigned"
)

// IdentityResolver assigns client identifiers across one batch. It is
// stateful: rows must be passed in sheet order and a resolver must not be
// shared between batches.
type IdentityResolver struct {
	dir      *Directory
	reserved map[string]bool
	byNRIC   map[string]string
	next     int
}

// NewIdentityResolver builds a resolver. reserved holds identifiers that are
// taken outside the directory (for example by rows already on screen).
func NewIdentityResolver(dir *Directory, reserved []string) *IdentityResolver {
	r := &IdentityResolver{
		dir:      dir,
		reserved: make(map[string]bool, len(reserved)),
		byNRIC:   make(map[string]string),
		next:     1,
	}
	for _, id := range reserved {
		r.reserved[id] = true
	}
	return r
}

// Resolve sets row.ClientID and records identity annotations.
func (r *IdentityResolver) Resolve(row *EnrichedRow) {
	nric := NormalizeNRIC(row.NRIC)
	row.NRIC = nric
	if nric == "" {
		row.ClientID = config.NoClientID
		return
	}

	if id, ok := r.dir.Lookup(nric); ok {
		if row.ClientID != "" && row.ClientID != id {
			row.annotate(CodeIDCorrected, SeverityWarning,
				fmt.Sprintf("Client ID corrected from %s to %s", row.ClientID, id))
		}
		row.ClientID = id
		r.byNRIC[nric] = id
		return
	}

	if id, ok := r.byNRIC[nric]; ok {
		row.ClientID = id
		row.annotate(CodeIDReused, SeverityWarning,
			fmt.Sprintf("Reused client ID from earlier row: %s", id))
		return
	}

	id := r.allocate()
	row.ClientID = id
	r.byNRIC[nric] = id
	row.annotate(CodeIDAssigned, SeverityWarning,
		fmt.Sprintf("New client – assigned ID: %s", id))
}

// allocate returns the lowest free identifier. The number is padded to at
// least three digits and keeps growing past C999.
func (r *IdentityResolver) allocate() string {
	for n := r.next; ; n++ {
		id := FormatClientID(n)
		if r.dir.Contains(id) || r.reserved[id] {
			continue
		}
		r.reserved[id] = true
		r.next = n + 1
		return id
	}
}

func FormatClientID(n int) string {
	return fmt.Sprintf("%s%0*d", config.ClientIDPrefix, config.ClientIDMinWidth, n)
}
