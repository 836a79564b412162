package repository

import (
	"context"
	"errors"
	"fmt"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(q Queryable) *UserRepository {
	return &UserRepository{q: q}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `
		SELECT id, username, balance_cached::TEXT, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entities.User
	var balance string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	if user.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("failed to parse balance of user %d: %w", id, err)
	}
	return &user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, username string, initialBalance decimal.Decimal) (*entities.User, error) {
	query := `
		INSERT INTO users (username, balance_cached)
		VALUES ($1, $2::NUMERIC)
		RETURNING id, created_at, updated_at
	`

	user := &entities.User{
		Username: username,
		Balance:  initialBalance,
	}
	err := r.q.QueryRow(ctx, query, username, numeric(initialBalance)).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, entities.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return user, nil
}

// DebitIfSufficient subtracts amount in a single conditional update, so two
// concurrent debits can never overdraw the balance
func (r *UserRepository) DebitIfSufficient(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	query := `
		UPDATE users
		SET balance_cached = balance_cached - $2::NUMERIC, updated_at = NOW()
		WHERE id = $1 AND balance_cached >= $2::NUMERIC
		RETURNING balance_cached::TEXT
	`

	var balance string
	err := r.q.QueryRow(ctx, query, id, numeric(amount)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to debit user %d: %w", id, err)
	}

	newBalance, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse balance of user %d: %w", id, err)
	}
	return newBalance, true, nil
}

// AdjustBalance atomically adds a signed delta
func (r *UserRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users
		SET balance_cached = balance_cached + $2::NUMERIC, updated_at = NOW()
		WHERE id = $1
		RETURNING balance_cached::TEXT
	`

	var balance string
	err := r.q.QueryRow(ctx, query, id, numeric(delta)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("user %d not found", id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance of user %d: %w", id, err)
	}

	newBalance, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance of user %d: %w", id, err)
	}
	return newBalance, nil
}
