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

const couponColumns = `id, user_id, round_id, amount_total::TEXT, num_variants, created_at, win_amount_total::TEXT, is_winner, is_seen`

// CouponRepository implements the CouponRepository interface
type CouponRepository struct {
	q Queryable
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *database.DB) *CouponRepository {
	return &CouponRepository{q: db.Pool}
}

func newCouponRepository(q Queryable) *CouponRepository {
	return &CouponRepository{q: q}
}

func scanCoupon(row pgx.Row) (*entities.Coupon, error) {
	var c entities.Coupon
	var amount, win string
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.RoundID,
		&amount,
		&c.NumVariants,
		&c.CreatedAt,
		&win,
		&c.IsWinner,
		&c.IsSeen,
	)
	if err != nil {
		return nil, err
	}
	if err := parseNumerics(map[*decimal.Decimal]string{&c.AmountTotal: amount, &c.WinAmountTotal: win}); err != nil {
		return nil, fmt.Errorf("failed to parse coupon amounts: %w", err)
	}
	return &c, nil
}

func (r *CouponRepository) Create(ctx context.Context, coupon *entities.Coupon) error {
	query := `
		INSERT INTO coupons (user_id, round_id, amount_total, num_variants, is_seen)
		VALUES ($1, $2, $3::NUMERIC, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		coupon.UserID,
		coupon.RoundID,
		numeric(coupon.AmountTotal),
		coupon.NumVariants,
		coupon.IsSeen,
	).Scan(&coupon.ID, &coupon.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create coupon for user %d: %w", coupon.UserID, err)
	}
	coupon.WinAmountTotal = decimal.Zero
	return nil
}

func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*entities.Coupon, error) {
	coupon, err := scanCoupon(r.q.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon %d: %w", id, err)
	}
	return coupon, nil
}

func (r *CouponRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.Coupon, error) {
	rows, err := r.q.Query(ctx, `SELECT `+couponColumns+` FROM coupons WHERE round_id = $1 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get coupons of round %d: %w", roundID, err)
	}
	defer rows.Close()

	var coupons []*entities.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return coupons, nil
}

// UpdateResults writes settlement results of many coupons in one UPDATE
func (r *CouponRepository) UpdateResults(ctx context.Context, coupons []*entities.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}

	ids := make([]int64, len(coupons))
	wins := make([]string, len(coupons))
	winners := make([]bool, len(coupons))
	seen := make([]bool, len(coupons))
	for i, c := range coupons {
		ids[i] = c.ID
		wins[i] = numeric(c.WinAmountTotal)
		winners[i] = c.IsWinner
		seen[i] = c.IsSeen
	}

	query := `
		UPDATE coupons c
		SET win_amount_total = v.win::NUMERIC, is_winner = v.is_winner, is_seen = v.is_seen
		FROM unnest($1::BIGINT[], $2::TEXT[], $3::BOOLEAN[], $4::BOOLEAN[]) AS v(id, win, is_winner, is_seen)
		WHERE c.id = v.id
	`

	if _, err := r.q.Exec(ctx, query, ids, wins, winners, seen); err != nil {
		return fmt.Errorf("failed to update results of %d coupons: %w", len(coupons), err)
	}
	return nil
}

// ClaimUnseenWin flips every unseen winning coupon of the user to seen and
// returns the newest of them
func (r *CouponRepository) ClaimUnseenWin(ctx context.Context, userID int64) (*entities.Coupon, error) {
	query := `
		WITH claimed AS (
			UPDATE coupons
			SET is_seen = TRUE
			WHERE user_id = $1 AND is_winner AND NOT is_seen
			RETURNING ` + couponColumns + `
		)
		SELECT * FROM claimed
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	coupon, err := scanCoupon(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim unseen win of user %d: %w", userID, err)
	}
	return coupon, nil
}

func (r *CouponRepository) GetUserRoundSummary(ctx context.Context, userID, roundID int64) (*entities.UserRoundSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount_total), 0)::TEXT, COALESCE(SUM(win_amount_total), 0)::TEXT
		FROM coupons
		WHERE user_id = $1 AND round_id = $2
	`

	summary := &entities.UserRoundSummary{UserID: userID, RoundID: roundID}
	var staked, won string
	if err := r.q.QueryRow(ctx, query, userID, roundID).Scan(&summary.CouponCount, &staked, &won); err != nil {
		return nil, fmt.Errorf("failed to summarize coupons of user %d in round %d: %w", userID, roundID, err)
	}
	if err := parseNumerics(map[*decimal.Decimal]string{&summary.TotalStaked: staked, &summary.TotalWon: won}); err != nil {
		return nil, fmt.Errorf("failed to parse round summary: %w", err)
	}
	return summary, nil
}
