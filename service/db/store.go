package db

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/okdsgnr/Strata/service/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Store provides database operations for the snapshot engine. It implements
// the engine's SnapshotRepository, WhaleRepository, LabelSource, and
// SearchLog contracts on top of a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If m is nil, no query metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// Pool exposes the underlying connection pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema applies the embedded schema. All statements are idempotent,
// so calling it on every startup is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// record times a query for metrics. Call as: defer s.record("name")().
func (s *Store) record(query string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.RecordDBQuery(query, time.Since(start).Seconds())
	}
}

// Helper functions to convert between postgres types and domain types.
// NUMERIC columns travel as text so decimal values survive round trips
// without float conversion.

func numericFromDecimal(d decimal.Decimal) string {
	return d.String()
}

func numericFromDecimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func decimalFromNumeric(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func decimalPtrFromNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
