// Package directory reads the client directory used to keep client ids stable
// across imports.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"AdvisorDesk/internal/pipeline"
)

const loadQuery = `SELECT client_id, COALESCE(nric, '') FROM clients WHERE client_id IS NOT NULL`

// Loader fetches directory entries.
type Loader interface {
	Load(ctx context.Context) (*pipeline.Directory, error)
}

// SQLDirectory reads the clients table through database/sql.
type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Load returns every persisted client. Clients without an NRIC cannot be
// matched but still hold their identifier.
func (d *SQLDirectory) Load(ctx context.Context) (*pipeline.Directory, error) {
	rows, err := d.db.QueryContext(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var entries []pipeline.DirectoryEntry
	for rows.Next() {
		var id, nric string
		if err := rows.Scan(&id, &nric); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		entries = append(entries, pipeline.DirectoryEntry{
			ClientID: strings.TrimSpace(id),
			NRIC:     pipeline.NormalizeNRIC(nric),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read clients: %w", err)
	}
	return pipeline.NewDirectory(entries), nil
}

// Static serves a fixed directory. Used when no database is configured.
type Static []pipeline.DirectoryEntry

func (s Static) Load(context.Context) (*pipeline.Directory, error) {
	return pipeline.NewDirectory(s), nil
}
