package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RoundStatsRepository implements the RoundStatsRepository interface
type RoundStatsRepository struct {
	q Queryable
}

// NewRoundStatsRepository creates a new round stats repository
func NewRoundStatsRepository(db *database.DB) *RoundStatsRepository {
	return &RoundStatsRepository{q: db.Pool}
}

func newRoundStatsRepository(q Queryable) *RoundStatsRepository {
	return &RoundStatsRepository{q: q}
}

// Create inserts the stats record; the unique round_id makes a second
// settlement of the same round fail
func (r *RoundStatsRepository) Create(ctx context.Context, stats *entities.RoundStats) error {
	categoriesJSON, err := json.Marshal(stats.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal category stats: %w", err)
	}
	bestJSON, err := json.Marshal(stats.BestMultiplier)
	if err != nil {
		return fmt.Errorf("failed to marshal best multiplier: %w", err)
	}
	biggestJSON, err := json.Marshal(stats.BiggestWin)
	if err != nil {
		return fmt.Errorf("failed to marshal biggest win: %w", err)
	}

	query := `
		INSERT INTO round_stats
		(round_id, policy, total_pool, payout_pool, jackpot_before, jackpot_after, jackpot_absorbed,
		 rolled_over, total_win, winners_count, categories, best_multiplier, biggest_win)
		VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		        $8::NUMERIC, $9::NUMERIC, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		stats.RoundID,
		stats.Policy,
		numeric(stats.TotalPool),
		numeric(stats.PayoutPool),
		numeric(stats.JackpotBefore),
		numeric(stats.JackpotAfter),
		numeric(stats.JackpotAbsorbed),
		numeric(stats.RolledOver),
		numeric(stats.TotalWin),
		stats.WinnersCount,
		categoriesJSON,
		bestJSON,
		biggestJSON,
	).Scan(&stats.ID, &stats.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stats for round %d: %w", stats.RoundID, err)
	}
	return nil
}

// GetByRound returns the stats of a round, nil while it is unsettled
func (r *RoundStatsRepository) GetByRound(ctx context.Context, roundID int64) (*entities.RoundStats, error) {
	query := `
		SELECT id, round_id, policy, total_pool::TEXT, payout_pool::TEXT, jackpot_before::TEXT,
		       jackpot_after::TEXT, jackpot_absorbed::TEXT, rolled_over::TEXT, total_win::TEXT,
		       winners_count, categories, best_multiplier, biggest_win, created_at
		FROM round_stats
		WHERE round_id = $1
	`

	var s entities.RoundStats
	var totalPool, payoutPool, before, after, absorbed, rolled, totalWin string
	var categoriesJSON, bestJSON, biggestJSON []byte
	err := r.q.QueryRow(ctx, query, roundID).Scan(
		&s.ID,
		&s.RoundID,
		&s.Policy,
		&totalPool,
		&payoutPool,
		&before,
		&after,
		&absorbed,
		&rolled,
		&totalWin,
		&s.WinnersCount,
		&categoriesJSON,
		&bestJSON,
		&biggestJSON,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats of round %d: %w", roundID, err)
	}

	if err := parseNumerics(map[*decimal.Decimal]string{
		&s.TotalPool:       totalPool,
		&s.PayoutPool:      payoutPool,
		&s.JackpotBefore:   before,
		&s.JackpotAfter:    after,
		&s.JackpotAbsorbed: absorbed,
		&s.RolledOver:      rolled,
		&s.TotalWin:        totalWin,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse stats of round %d: %w", roundID, err)
	}

	if err := json.Unmarshal(categoriesJSON, &s.Categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category stats: %w", err)
	}
	if err := json.Unmarshal(bestJSON, &s.BestMultiplier); err != nil {
		return nil, fmt.Errorf("failed to unmarshal best multiplier: %w", err)
	}
	if err := json.Unmarshal(biggestJSON, &s.BiggestWin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal biggest win: %w", err)
	}
	return &s, nil
}
