package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Queryable is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// work the same inside and outside a unit of work
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// NUMERIC columns are selected as ::TEXT and written as $n::NUMERIC so no
// precision is lost through float conversion.

func numeric(d decimal.Decimal) string {
	return d.String()
}

// parseNumerics parses text-encoded NUMERIC values into their targets
func parseNumerics(pairs map[*decimal.Decimal]string) error {
	for dst, s := range pairs {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		*dst = d
	}
	return nil
}
