package repository

import (
	"context"
	"errors"
	"fmt"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BiggestWinRepository implements the BiggestWinRepository interface. The
// table refuses deletes, so the row only ever moves forward by update.
type BiggestWinRepository struct {
	q Queryable
}

// NewBiggestWinRepository creates a new biggest win repository
func NewBiggestWinRepository(db *database.DB) *BiggestWinRepository {
	return &BiggestWinRepository{q: db.Pool}
}

func newBiggestWinRepository(q Queryable) *BiggestWinRepository {
	return &BiggestWinRepository{q: q}
}

func (r *BiggestWinRepository) scan(row pgx.Row) (*entities.BiggestWin, error) {
	var b entities.BiggestWin
	var amount, multiplier string
	if err := row.Scan(&b.ID, &amount, &multiplier, &b.RoundID, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := parseNumerics(map[*decimal.Decimal]string{&b.Amount: amount, &b.Multiplier: multiplier}); err != nil {
		return nil, fmt.Errorf("failed to parse biggest win: %w", err)
	}
	return &b, nil
}

func (r *BiggestWinRepository) Get(ctx context.Context) (*entities.BiggestWin, error) {
	query := `SELECT id, amount::TEXT, multiplier::TEXT, round_id, updated_at FROM biggest_win WHERE id = $1`
	record, err := r.scan(r.q.QueryRow(ctx, query, entities.SingletonID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get biggest win: %w", err)
	}
	return record, nil
}

// GetForUpdate creates the row if needed and locks it
func (r *BiggestWinRepository) GetForUpdate(ctx context.Context) (*entities.BiggestWin, error) {
	if _, err := r.q.Exec(ctx, `INSERT INTO biggest_win (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, entities.SingletonID); err != nil {
		return nil, fmt.Errorf("failed to ensure biggest win row: %w", err)
	}

	query := `SELECT id, amount::TEXT, multiplier::TEXT, round_id, updated_at FROM biggest_win WHERE id = $1 FOR UPDATE`
	record, err := r.scan(r.q.QueryRow(ctx, query, entities.SingletonID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock biggest win: %w", err)
	}
	return record, nil
}

func (r *BiggestWinRepository) Update(ctx context.Context, record *entities.BiggestWin) error {
	query := `
		UPDATE biggest_win
		SET amount = $2::NUMERIC, multiplier = $3::NUMERIC, round_id = $4, updated_at = $5
		WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query,
		entities.SingletonID,
		numeric(record.Amount),
		numeric(record.Multiplier),
		record.RoundID,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update biggest win: %w", err)
	}
	return nil
}
