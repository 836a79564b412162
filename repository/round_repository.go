package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const roundColumns = `id, status, start_time, selection_end_time, end_time, live_pool::TEXT, game_hash, created_at`

// RoundRepository implements the RoundRepository interface
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

func newRoundRepository(q Queryable) *RoundRepository {
	return &RoundRepository{q: q}
}

func scanRound(row pgx.Row) (*entities.Round, error) {
	var round entities.Round
	var livePool string
	err := row.Scan(
		&round.ID,
		&round.Status,
		&round.StartTime,
		&round.SelectionEndTime,
		&round.EndTime,
		&livePool,
		&round.GameHash,
		&round.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if round.LivePool, err = decimal.NewFromString(livePool); err != nil {
		return nil, fmt.Errorf("failed to parse live pool: %w", err)
	}
	return &round, nil
}

func (r *RoundRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return round, err
}

func (r *RoundRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.Round, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*entities.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// Create inserts a round and fills its generated fields
func (r *RoundRepository) Create(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (status, start_time, selection_end_time, live_pool)
		VALUES ($1, $2, $3, $4::NUMERIC)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		string(round.Status),
		round.StartTime,
		round.SelectionEndTime,
		numeric(round.LivePool),
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

func (r *RoundRepository) GetByID(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return round, nil
}

// GetByIDForUpdate locks the round row until the transaction ends
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := r.getOne(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock round %d: %w", id, err)
	}
	return round, nil
}

func (r *RoundRepository) GetOldestByStatus(ctx context.Context, status entities.RoundStatus) (*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE status = $1 ORDER BY created_at, id LIMIT 1`
	round, err := r.getOne(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest %s round: %w", status, err)
	}
	return round, nil
}

func (r *RoundRepository) GetByStatus(ctx context.Context, status entities.RoundStatus) ([]*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE status = $1 ORDER BY created_at, id`
	rounds, err := r.getMany(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s rounds: %w", status, err)
	}
	return rounds, nil
}

func (r *RoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status IN ('selection', 'calculation', 'payout')
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	round, err := r.getOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	return round, nil
}

func (r *RoundRepository) CountUnfinished(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM rounds WHERE status <> 'finished'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished rounds: %w", err)
	}
	return count, nil
}

func (r *RoundRepository) GetNextSelectionEnd(ctx context.Context) (*time.Time, error) {
	var end *time.Time
	err := r.q.QueryRow(ctx, `SELECT MIN(selection_end_time) FROM rounds WHERE status = 'selection'`).Scan(&end)
	if err != nil {
		return nil, fmt.Errorf("failed to get next selection end: %w", err)
	}
	return end, nil
}

// TransitionStatus is a compare-and-set on the status column
func (r *RoundRepository) TransitionStatus(ctx context.Context, id int64, from, to entities.RoundStatus) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE rounds SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("failed to move round %d from %s to %s: %w", id, from, to, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *RoundRepository) OpenSelection(ctx context.Context, id int64, startTime, selectionEndTime time.Time) (bool, error) {
	query := `
		UPDATE rounds
		SET status = 'selection', start_time = $2, selection_end_time = $3
		WHERE id = $1 AND status = 'waiting'
	`
	result, err := r.q.Exec(ctx, query, id, startTime, selectionEndTime)
	if err != nil {
		return false, fmt.Errorf("failed to open selection of round %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *RoundRepository) Finish(ctx context.Context, id int64, endTime time.Time) (bool, error) {
	result, err := r.q.Exec(ctx,
		`UPDATE rounds SET status = 'finished', end_time = $2 WHERE id = $1 AND status = 'payout'`,
		id, endTime,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finish round %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// IncrementLivePool adds to the pool with a single UPDATE. The status guard
// makes a stake fail once betting has closed.
func (r *RoundRepository) IncrementLivePool(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE rounds
		SET live_pool = live_pool + $2::NUMERIC
		WHERE id = $1 AND status = 'selection'
		RETURNING live_pool::TEXT
	`

	var pool string
	err := r.q.QueryRow(ctx, query, id, numeric(amount)).Scan(&pool)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, entities.ErrRoundNotAcceptingBets
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to increment live pool of round %d: %w", id, err)
	}

	newPool, err := decimal.NewFromString(pool)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse live pool of round %d: %w", id, err)
	}
	return newPool, nil
}

func (r *RoundRepository) SetGameHash(ctx context.Context, id int64, hash string) error {
	_, err := r.q.Exec(ctx, `UPDATE rounds SET game_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set game hash of round %d: %w", id, err)
	}
	return nil
}

func (r *RoundRepository) ListFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE status = 'finished' ORDER BY end_time DESC, id DESC LIMIT $1`
	rounds, err := r.getMany(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished rounds: %w", err)
	}
	return rounds, nil
}
