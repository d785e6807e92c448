// Package repository persists approved import batches.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"AdvisorDesk/internal/logger"
	"AdvisorDesk/internal/pipeline"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrUnresolvedClient = errors.New("row has no client id")

const (
	insertBatchSQL = `INSERT INTO import_batches (batch_id, row_count) VALUES ($1, $2)`

	upsertClientSQL = `INSERT INTO clients (client_id, full_name, nric, email, phone)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
ON CONFLICT (client_id) DO UPDATE SET
	full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), clients.full_name),
	nric = COALESCE(EXCLUDED.nric, clients.nric),
	email = COALESCE(NULLIF(EXCLUDED.email, ''), clients.email),
	phone = COALESCE(NULLIF(EXCLUDED.phone, ''), clients.phone),
	updated_at = now()`

	insertPolicySQL = `INSERT INTO policies (batch_id, client_id, policy_ref, product_type, policy_type_id,
	fund_type, start_date, end_date, premium_amount, premium_frequency, status, note)
VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''), $11, $12)`

	productTypeCountsSQL = `SELECT product_type, COUNT(*) FROM policies GROUP BY product_type`
)

// Store is what the importer needs from persistence.
type Store interface {
	SaveBatch(ctx context.Context, batchID uuid.UUID, rows []pipeline.EnrichedRow) (SaveResult, error)
	ProductTypeCounts(ctx context.Context) ([]ProductTypeCount, error)
}

type SaveResult struct {
	BatchID  uuid.UUID `json:"batchId"`
	Clients  int       `json:"clients"`
	Policies int       `json:"policies"`
}

type ProductTypeCount struct {
	ProductType string `json:"productType"`
	Count       int    `json:"count"`
}

// PgxStore writes batches through a pgx pool.
type PgxStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPgxStore(pool *pgxpool.Pool, loc *time.Location) *PgxStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PgxStore{pool: pool, loc: loc}
}

// SaveBatch stores every row in a single transaction. Either all clients and
// policies land or none do.
func (s *PgxStore) SaveBatch(ctx context.Context, batchID uuid.UUID, rows []pipeline.EnrichedRow) (SaveResult, error) {
	batch, res, err := BuildBatch(batchID, rows, s.loc)
	if err != nil {
		return SaveResult{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.L().Warn("rollback failed", zap.String("batch_id", batchID.String()), zap.Error(err))
		}
	}()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return SaveResult{}, fmt.Errorf("statement %d of batch %s: %w", i+1, batchID, err)
		}
	}
	// the batch must be closed before the transaction is used again
	if err := br.Close(); err != nil {
		return SaveResult{}, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("failed to commit batch %s: %w", batchID, err)
	}
	logger.L().Info("import batch saved",
		zap.String("batch_id", batchID.String()),
		zap.Int("clients", res.Clients),
		zap.Int("policies", res.Policies))
	return res, nil
}

// BuildBatch queues the batch header, one upsert per distinct client (first
// row wins) and one insert per policy row.
func BuildBatch(batchID uuid.UUID, rows []pipeline.EnrichedRow, loc *time.Location) (*pgx.Batch, SaveResult, error) {
	res := SaveResult{BatchID: batchID}
	batch := &pgx.Batch{}
	batch.Queue(insertBatchSQL, batchID, len(rows))

	seen := make(map[string]bool)
	for i, row := range rows {
		if row.ClientID == "" || row.ClientID == "-" {
			return nil, SaveResult{}, fmt.Errorf("row %d: %w", i+1, ErrUnresolvedClient)
		}
		if seen[row.ClientID] {
			continue
		}
		seen[row.ClientID] = true
		batch.Queue(upsertClientSQL, row.ClientID, row.ClientName, row.NRIC, row.Email, row.Phone)
		res.Clients++
	}

	for _, row := range rows {
		var premium any
		if row.PremiumRaw != "" {
			premium = row.PremiumAmount
		}
		batch.Queue(insertPolicySQL,
			batchID, row.ClientID, row.PolicyID, row.ProductType, row.PolicyTypeID,
			row.FundType, dateArg(row.StartDate, loc), dateArg(row.EndDate, loc),
			premium, row.PremiumFrequency, string(row.Status), row.Note)
		res.Policies++
	}
	return batch, res, nil
}

// dateArg is nil when the cell is blank or unparseable.
func dateArg(v string, loc *time.Location) any {
	t, ok := pipeline.ParseDate(v, loc)
	if !ok {
		return nil
	}
	return t
}

// ProductTypeCounts counts persisted policies per product type, most common first.
func (s *PgxStore) ProductTypeCounts(ctx context.Context) ([]ProductTypeCount, error) {
	rows, err := s.pool.Query(ctx, productTypeCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to count product types: %w", err)
	}
	defer rows.Close()

	var out []ProductTypeCount
	for rows.Next() {
		var c ProductTypeCount
		if err := rows.Scan(&c.ProductType, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan product type count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortCounts(out)
	return out, nil
}

// SortCounts orders by count descending, then product type.
func SortCounts(counts []ProductTypeCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ProductType < counts[j].ProductType
	})
}

// Extremes returns the most and least common product types of sorted counts.
func Extremes(counts []ProductTypeCount) (most, least ProductTypeCount, ok bool) {
	if len(counts) == 0 {
		return ProductTypeCount{}, ProductTypeCount{}, false
	}
	return counts[0], counts[len(counts)-1], true
}
