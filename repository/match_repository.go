package repository

import (
	"context"
	"fmt"
	"sort"

	"totopool/database"
	"totopool/domain/entities"

	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q Queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

func newMatchRepository(q Queryable) *MatchRepository {
	return &MatchRepository{q: q}
}

// CreateBatch copies the fixtures of a round in one round trip
func (r *MatchRepository) CreateBatch(ctx context.Context, matches []*entities.Match) error {
	if len(matches) == 0 {
		return nil
	}

	_, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"matches"},
		[]string{"round_id", "team1_id", "team2_id"},
		pgx.CopyFromSlice(len(matches), func(i int) ([]any, error) {
			m := matches[i]
			return []any{m.RoundID, m.Team1ID, m.Team2ID}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create %d matches: %w", len(matches), err)
	}
	return nil
}

// GetByRound returns the matches of a round with team names, ordered by ID
func (r *MatchRepository) GetByRound(ctx context.Context, roundID int64) ([]*entities.Match, error) {
	query := `
		SELECT m.id, m.round_id, m.team1_id, m.team2_id, t1.name, t2.name, m.result
		FROM matches m
		JOIN teams t1 ON t1.id = m.team1_id
		JOIN teams t2 ON t2.id = m.team2_id
		WHERE m.round_id = $1
		ORDER BY m.id
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches of round %d: %w", roundID, err)
	}
	defer rows.Close()

	matches := make([]*entities.Match, 0)
	for rows.Next() {
		var m entities.Match
		if err := rows.Scan(&m.ID, &m.RoundID, &m.Team1ID, &m.Team2ID, &m.Team1Name, &m.Team2Name, &m.Result); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// SetResults writes all results in one UPDATE. The result IS NULL guard keeps
// a result from ever being overwritten.
func (r *MatchRepository) SetResults(ctx context.Context, roundID int64, results map[int64]entities.Outcome) (int64, error) {
	ids := make([]int64, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	outcomes := make([]string, len(ids))
	for i, id := range ids {
		outcomes[i] = string(results[id])
	}

	query := `
		UPDATE matches m
		SET result = v.result
		FROM unnest($2::BIGINT[], $3::TEXT[]) AS v(id, result)
		WHERE m.id = v.id AND m.round_id = $1 AND m.result IS NULL
	`

	tag, err := r.q.Exec(ctx, query, roundID, ids, outcomes)
	if err != nil {
		return 0, fmt.Errorf("failed to set results of round %d: %w", roundID, err)
	}
	return tag.RowsAffected(), nil
}
