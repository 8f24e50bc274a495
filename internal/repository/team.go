package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

type TeamRepo struct {
	base
}

func NewTeamRepo(db DBTX, logger *logger.Logger) *TeamRepo {
	return &TeamRepo{base{
		db:     db,
		logger: logger.Component("repository/team"),
	}}
}

// TeamExists reports whether a team with id is present.
func (r *TeamRepo) TeamExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`

	err := r.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team exists: %w", err)
	}

	return exists, nil
}

// Create inserts the team and its initial members in one transaction.
func (r *TeamRepo) Create(ctx context.Context, team *domain.Team) error {
	team.MemberIDs = domain.UniqueIDs(team.MemberIDs)

	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO teams (name, description)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`, team.Name, team.Description).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert team: %w", classify(err))
		}

		for _, userID := range team.MemberIDs {
			if err := insertTeamMember(ctx, tx, team.ID, userID); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var team domain.Team
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		WHERE id = $1
	`, id).Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	team.MemberIDs, err = collectIDs(ctx, r.db,
		`SELECT user_id FROM team_members WHERE team_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get team members: %w", err)
	}

	return &team, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]*domain.Team, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	teams := []*domain.Team{}
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, &team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	links, err := collectLinks(ctx, r.db, `SELECT team_id, user_id FROM team_members`)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	for _, team := range teams {
		team.MemberIDs = linksFor(links, team.ID)
	}

	return teams, nil
}

// Update writes name and description. Membership changes go through
// AddMember and RemoveMember.
func (r *TeamRepo) Update(ctx context.Context, team *domain.Team) error {
	err := r.db.QueryRow(ctx, `
		UPDATE teams
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at
	`, team.Name, team.Description, team.ID).Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTeamNotFound
		}
		return fmt.Errorf("update team: %w", classify(err))
	}
	return nil
}

// Delete removes the team and its membership rows. Projects that reference
// the team are left untouched.
func (r *TeamRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepo) AddMember(ctx context.Context, teamID, userID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "teams", teamID, domain.ErrTeamNotFound); err != nil {
			return err
		}
		return insertTeamMember(ctx, tx, teamID, userID)
	})
}

func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "teams", teamID, domain.ErrTeamNotFound); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
		if err != nil {
			return fmt.Errorf("delete team member: %w", err)
		}
		return nil
	})
}

func insertTeamMember(ctx context.Context, db DBTX, teamID, userID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, teamID, userID)
	if err != nil {
		return fmt.Errorf("insert team member %d: %w", userID, classify(err))
	}
	return nil
}
