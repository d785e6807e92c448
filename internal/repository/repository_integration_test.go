//go:build integration

// Run with: DATABASE_URL=postgres://... go test -tags=integration ./internal/repository/
package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"AdvisorDesk/internal/pipeline"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_SaveBatch(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	clientID := "IT" + uuid.NewString()[:8]
	store := NewPgxStore(pool, time.UTC)
	res, err := store.SaveBatch(ctx, uuid.New(), []pipeline.EnrichedRow{
		{ClientID: clientID, ClientName: "Integration", ProductType: "Term Life", StartDate: "2025-01-01", Status: pipeline.StatusActive},
		{ClientID: clientID, ClientName: "Integration", ProductType: "Whole Life", Status: pipeline.StatusUnknown},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Clients)
	assert.Equal(t, 2, res.Policies)

	counts, err := store.ProductTypeCounts(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, counts)

	// numeric(18,2) overflow on the second policy rolls back the whole batch
	orphan := clientID + "X"
	_, err = store.SaveBatch(ctx, uuid.New(), []pipeline.EnrichedRow{
		{ClientID: orphan, ProductType: "Term Life", Status: pipeline.StatusActive},
		{ClientID: orphan, ProductType: "Term Life", PremiumRaw: "1e30", PremiumAmount: decimal.RequireFromString("1e30"), Status: pipeline.StatusActive},
	})
	require.Error(t, err)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE client_id = $1`, orphan).Scan(&n))
	assert.Zero(t, n)
}
