package repository

import (
	"context"
	"fmt"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/shopspring/decimal"
)

// PayoutCategoryRepository implements the PayoutCategoryRepository interface
type PayoutCategoryRepository struct {
	q Queryable
}

// NewPayoutCategoryRepository creates a new payout category repository
func NewPayoutCategoryRepository(db *database.DB) *PayoutCategoryRepository {
	return &PayoutCategoryRepository{q: db.Pool}
}

func newPayoutCategoryRepository(q Queryable) *PayoutCategoryRepository {
	return &PayoutCategoryRepository{q: q}
}

func (r *PayoutCategoryRepository) list(ctx context.Context, onlyActive bool) ([]*entities.PayoutCategory, error) {
	query := `
		SELECT id, matched_count, percent::TEXT, coefficient::TEXT, active
		FROM payout_categories
		WHERE active OR NOT $1
		ORDER BY matched_count
	`

	rows, err := r.q.Query(ctx, query, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*entities.PayoutCategory, 0)
	for rows.Next() {
		var c entities.PayoutCategory
		var percent, coefficient string
		if err := rows.Scan(&c.ID, &c.MatchedCount, &percent, &coefficient, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan payout category: %w", err)
		}
		if err := parseNumerics(map[*decimal.Decimal]string{&c.Percent: percent, &c.Coefficient: coefficient}); err != nil {
			return nil, fmt.Errorf("failed to parse payout category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// GetAll returns every configured category, active or not
func (r *PayoutCategoryRepository) GetAll(ctx context.Context) ([]*entities.PayoutCategory, error) {
	categories, err := r.list(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout categories: %w", err)
	}
	return categories, nil
}

func (r *PayoutCategoryRepository) GetActive(ctx context.Context) ([]*entities.PayoutCategory, error) {
	categories, err := r.list(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get active payout categories: %w", err)
	}
	return categories, nil
}

// Upsert creates or replaces the category for its matched count
func (r *PayoutCategoryRepository) Upsert(ctx context.Context, category *entities.PayoutCategory) error {
	query := `
		INSERT INTO payout_categories (matched_count, percent, coefficient, active)
		VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4)
		ON CONFLICT (matched_count) DO UPDATE
		SET percent = EXCLUDED.percent, coefficient = EXCLUDED.coefficient, active = EXCLUDED.active
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		category.MatchedCount,
		numeric(category.Percent),
		numeric(category.Coefficient),
		category.Active,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert payout category %d: %w", category.MatchedCount, err)
	}
	return nil
}
