package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SeededRound is a round created directly in the database with its matches
type SeededRound struct {
	Round    *entities.Round
	MatchIDs []int64
}

// CreateTestUser inserts a user with the given balance and returns its ID
func CreateTestUser(t *testing.T, db *database.DB, username string, balance string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO users (username, balance_cached)
		VALUES ($1, $2::NUMERIC)
		RETURNING id
	`, username, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTestRound inserts a round in the given status with numMatches
// fixtures between seeded teams. Selection rounds get an open window.
func CreateTestRound(t *testing.T, db *database.DB, status entities.RoundStatus, numMatches int) *SeededRound {
	t.Helper()
	ctx := context.Background()

	seeded := &SeededRound{
		Round: &entities.Round{Status: status, LivePool: decimal.Zero},
	}

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var startTime, selectionEnd *time.Time
		if status != entities.RoundStatusWaiting {
			now := time.Now().UTC()
			end := now.Add(3 * time.Minute)
			startTime, selectionEnd = &now, &end
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO rounds (status, start_time, selection_end_time)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, string(status), startTime, selectionEnd).Scan(&seeded.Round.ID, &seeded.Round.CreatedAt); err != nil {
			return fmt.Errorf("insert round: %w", err)
		}
		seeded.Round.StartTime = startTime
		seeded.Round.SelectionEndTime = selectionEnd

		rows, err := tx.Query(ctx, `SELECT id FROM teams ORDER BY id LIMIT $1`, numMatches*2)
		if err != nil {
			return err
		}
		teamIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}
		if len(teamIDs) < numMatches*2 {
			return fmt.Errorf("only %d teams seeded", len(teamIDs))
		}

		for i := 0; i < numMatches; i++ {
			var matchID int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO matches (round_id, team1_id, team2_id)
				VALUES ($1, $2, $3)
				RETURNING id
			`, seeded.Round.ID, teamIDs[2*i], teamIDs[2*i+1]).Scan(&matchID); err != nil {
				return fmt.Errorf("insert match: %w", err)
			}
			seeded.MatchIDs = append(seeded.MatchIDs, matchID)
		}
		return nil
	})
	require.NoError(t, err)
	return seeded
}

// CreateTestCoupon inserts a coupon with one variant per pick list and
// returns the coupon ID and variant IDs
func CreateTestCoupon(t *testing.T, db *database.DB, userID, roundID int64, amount string, variants [][]entities.Pick) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	var couponID int64
	var variantIDs []int64
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO coupons (user_id, round_id, amount_total, num_variants)
			VALUES ($1, $2, $3::NUMERIC, $4)
			RETURNING id
		`, userID, roundID, amount, len(variants)).Scan(&couponID); err != nil {
			return err
		}

		for _, picks := range variants {
			var variantID int64
			if err := tx.QueryRow(ctx, `INSERT INTO bet_variants (coupon_id) VALUES ($1) RETURNING id`, couponID).Scan(&variantID); err != nil {
				return err
			}
			for _, p := range picks {
				if _, err := tx.Exec(ctx, `
					INSERT INTO selected_outcomes (variant_id, match_id, outcome)
					VALUES ($1, $2, $3)
				`, variantID, p.MatchID, string(p.Outcome)); err != nil {
					return err
				}
			}
			variantIDs = append(variantIDs, variantID)
		}
		return nil
	})
	require.NoError(t, err)
	return couponID, variantIDs
}
