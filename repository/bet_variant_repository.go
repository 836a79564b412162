package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BetVariantRepository implements the BetVariantRepository interface
type BetVariantRepository struct {
	q Queryable
}

// NewBetVariantRepository creates a new bet variant repository
func NewBetVariantRepository(db *database.DB) *BetVariantRepository {
	return &BetVariantRepository{q: db.Pool}
}

func newBetVariantRepository(q Queryable) *BetVariantRepository {
	return &BetVariantRepository{q: q}
}

// CreateForCoupon inserts count empty variants in one statement
func (r *BetVariantRepository) CreateForCoupon(ctx context.Context, couponID int64, count int) ([]int64, error) {
	query := `
		INSERT INTO bet_variants (coupon_id)
		SELECT $1 FROM generate_series(1, $2)
		RETURNING id
	`

	rows, err := r.q.Query(ctx, query, couponID, count)
	if err != nil {
		return nil, fmt.Errorf("failed to create variants for coupon %d: %w", couponID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect variant ids for coupon %d: %w", couponID, err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CreateSelections copies selections in bulk; a coupon can carry tens of
// thousands of rows
func (r *BetVariantRepository) CreateSelections(ctx context.Context, selections []*entities.SelectedOutcome) (int64, error) {
	if len(selections) == 0 {
		return 0, nil
	}

	n, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"selected_outcomes"},
		[]string{"variant_id", "match_id", "outcome"},
		pgx.CopyFromSlice(len(selections), func(i int) ([]any, error) {
			s := selections[i]
			return []any{s.VariantID, s.MatchID, string(s.Outcome)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create %d selections: %w", len(selections), err)
	}
	return n, nil
}

func scanVariants(rows pgx.Rows) ([]*entities.BetVariant, error) {
	defer rows.Close()

	variants := make([]*entities.BetVariant, 0)
	for rows.Next() {
		var v entities.BetVariant
		var win, multiplier string
		if err := rows.Scan(&v.ID, &v.CouponID, &v.MatchedCount, &win, &multiplier, &v.IsWin); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if err := parseNumerics(map[*decimal.Decimal]string{&v.WinAmount: win, &v.WinMultiplier: multiplier}); err != nil {
			return nil, fmt.Errorf("failed to parse variant amounts: %w", err)
		}
		variants = append(variants, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return variants, nil
}

func (r *BetVariantRepository) GetByCoupon(ctx context.Context, couponID int64) ([]*entities.BetVariant, error) {
	query := `
		SELECT id, coupon_id, matched_count, win_amount::TEXT, win_multiplier::TEXT, is_win
		FROM bet_variants
		WHERE coupon_id = $1
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, couponID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants of coupon %d: %w", couponID, err)
	}
	return scanVariants(rows)
}

func (r *BetVariantRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.BetVariant, error) {
	query := `
		SELECT v.id, v.coupon_id, v.matched_count, v.win_amount::TEXT, v.win_multiplier::TEXT, v.is_win
		FROM bet_variants v
		JOIN coupons c ON c.id = v.coupon_id
		WHERE c.round_id = $1
		ORDER BY v.id
	`
	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variants of round %d: %w", roundID, err)
	}
	return scanVariants(rows)
}

func (r *BetVariantRepository) GetSelectionsByRound(ctx context.Context, roundID int64) (map[int64][]entities.Pick, error) {
	query := `
		SELECT so.variant_id, so.match_id, so.outcome
		FROM selected_outcomes so
		JOIN bet_variants v ON v.id = so.variant_id
		JOIN coupons c ON c.id = v.coupon_id
		WHERE c.round_id = $1
		ORDER BY so.variant_id, so.match_id
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get selections of round %d: %w", roundID, err)
	}
	defer rows.Close()

	picks := make(map[int64][]entities.Pick)
	for rows.Next() {
		var variantID int64
		var pick entities.Pick
		if err := rows.Scan(&variantID, &pick.MatchID, &pick.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		picks[variantID] = append(picks[variantID], pick)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}
	return picks, nil
}

func (r *BetVariantRepository) UpdateMatchedCounts(ctx context.Context, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(counts))
	values := make([]int32, 0, len(counts))
	for id, count := range counts {
		ids = append(ids, id)
		values = append(values, int32(count))
	}

	query := `
		UPDATE bet_variants v
		SET matched_count = u.matched_count
		FROM unnest($1::BIGINT[], $2::INTEGER[]) AS u(id, matched_count)
		WHERE v.id = u.id
	`
	if _, err := r.q.Exec(ctx, query, ids, values); err != nil {
		return fmt.Errorf("failed to update matched counts of %d variants: %w", len(counts), err)
	}
	return nil
}

func (r *BetVariantRepository) UpdateResults(ctx context.Context, variants []*entities.BetVariant) error {
	if len(variants) == 0 {
		return nil
	}

	ids := make([]int64, len(variants))
	wins := make([]string, len(variants))
	multipliers := make([]string, len(variants))
	isWin := make([]bool, len(variants))
	for i, v := range variants {
		ids[i] = v.ID
		wins[i] = numeric(v.WinAmount)
		multipliers[i] = numeric(v.WinMultiplier)
		isWin[i] = v.IsWin
	}

	query := `
		UPDATE bet_variants v
		SET win_amount = u.win::NUMERIC, win_multiplier = u.multiplier::NUMERIC, is_win = u.is_win
		FROM unnest($1::BIGINT[], $2::TEXT[], $3::TEXT[], $4::BOOLEAN[]) AS u(id, win, multiplier, is_win)
		WHERE v.id = u.id
	`
	if _, err := r.q.Exec(ctx, query, ids, wins, multipliers, isWin); err != nil {
		return fmt.Errorf("failed to update results of %d variants: %w", len(variants), err)
	}
	return nil
}

func (r *BetVariantRepository) GetTopWins(ctx context.Context, since time.Time, limit int) ([]*entities.WinRecord, error) {
	query := `
		SELECT v.id, c.id, c.round_id, c.user_id, u.username,
		       v.win_amount::TEXT, v.win_multiplier::TEXT, c.created_at
		FROM bet_variants v
		JOIN coupons c ON c.id = v.coupon_id
		JOIN users u ON u.id = c.user_id
		WHERE v.is_win AND v.win_amount > 0 AND c.created_at >= $1
		ORDER BY v.win_amount DESC, v.id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wins: %w", err)
	}
	defer rows.Close()

	var records []*entities.WinRecord
	for rows.Next() {
		var w entities.WinRecord
		var win, multiplier string
		if err := rows.Scan(&w.VariantID, &w.CouponID, &w.RoundID, &w.UserID, &w.Username, &win, &multiplier, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan win record: %w", err)
		}
		if err := parseNumerics(map[*decimal.Decimal]string{&w.WinAmount: win, &w.WinMultiplier: multiplier}); err != nil {
			return nil, fmt.Errorf("failed to parse win record: %w", err)
		}
		records = append(records, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top wins: %w", err)
	}
	return records, nil
}
