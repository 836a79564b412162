package repository

import (
	"context"
	"fmt"

	"totopool/database"
	"totopool/domain/entities"
)

// TeamRepository implements the TeamRepository interface
type TeamRepository struct {
	q Queryable
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.DB) *TeamRepository {
	return &TeamRepository{q: db.Pool}
}

func newTeamRepository(q Queryable) *TeamRepository {
	return &TeamRepository{q: q}
}

func (r *TeamRepository) Create(ctx context.Context, team *entities.Team) error {
	query := `
		INSERT INTO teams (name, country, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.q.QueryRow(ctx, query, team.Name, team.Country, team.IsActive).Scan(&team.ID, &team.CreatedAt); err != nil {
		return fmt.Errorf("failed to create team %s: %w", team.Name, err)
	}
	return nil
}

func (r *TeamRepository) GetActive(ctx context.Context) ([]*entities.Team, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, country, is_active, created_at FROM teams WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active teams: %w", err)
	}
	defer rows.Close()

	var teams []*entities.Team
	for rows.Next() {
		var team entities.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Country, &team.IsActive, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &team)
	}
	return teams, rows.Err()
}
