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

// JackpotRepository implements the JackpotRepository interface over the
// single jackpot row
type JackpotRepository struct {
	q Queryable
}

// NewJackpotRepository creates a new jackpot repository
func NewJackpotRepository(db *database.DB) *JackpotRepository {
	return &JackpotRepository{q: db.Pool}
}

func newJackpotRepository(q Queryable) *JackpotRepository {
	return &JackpotRepository{q: q}
}

func (r *JackpotRepository) scan(row pgx.Row) (*entities.Jackpot, error) {
	var j entities.Jackpot
	var amount string
	if err := row.Scan(&j.ID, &amount, &j.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if j.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse jackpot amount: %w", err)
	}
	return &j, nil
}

// Get returns the jackpot, zero when the row has not been created yet
func (r *JackpotRepository) Get(ctx context.Context) (*entities.Jackpot, error) {
	jackpot, err := r.scan(r.q.QueryRow(ctx, `SELECT id, amount::TEXT, updated_at FROM jackpot WHERE id = $1`, entities.SingletonID))
	if errors.Is(err, pgx.ErrNoRows) {
		return &entities.Jackpot{ID: entities.SingletonID, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jackpot: %w", err)
	}
	return jackpot, nil
}

// GetForUpdate creates the row if needed and locks it
func (r *JackpotRepository) GetForUpdate(ctx context.Context) (*entities.Jackpot, error) {
	if _, err := r.q.Exec(ctx, `INSERT INTO jackpot (id, amount) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`, entities.SingletonID); err != nil {
		return nil, fmt.Errorf("failed to ensure jackpot row: %w", err)
	}

	jackpot, err := r.scan(r.q.QueryRow(ctx, `SELECT id, amount::TEXT, updated_at FROM jackpot WHERE id = $1 FOR UPDATE`, entities.SingletonID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock jackpot: %w", err)
	}
	return jackpot, nil
}

func (r *JackpotRepository) SetAmount(ctx context.Context, amount decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE jackpot SET amount = $2::NUMERIC, updated_at = NOW() WHERE id = $1`,
		entities.SingletonID, numeric(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to set jackpot amount: %w", err)
	}
	return nil
}
