package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

type TeamRepo struct {
	c *conn
}

func (r *TeamRepo) TeamExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.c.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team exists: %w", err)
	}
	return exists, nil
}

func (r *TeamRepo) Create(ctx context.Context, team *domain.Team) error {
	team.MemberIDs = domain.UniqueIDs(team.MemberIDs)
	now := r.c.timestamp()

	return r.c.withTx(ctx, func(q DBTX) error {
		result, err := q.ExecContext(ctx, `
			INSERT INTO teams (name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?)`,
			team.Name, nullable(team.Description), now, now)
		if err != nil {
			return fmt.Errorf("insert team: %w", classify(err))
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get team id: %w", err)
		}

		for _, userID := range team.MemberIDs {
			if err := insertLink(ctx, q, "team_members", "team_id", "user_id", id, userID); err != nil {
				return err
			}
		}

		team.ID = id
		team.CreatedAt = now
		team.UpdatedAt = now
		return nil
	})
}

func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var team domain.Team
	err := r.c.q.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		WHERE id = ?`, id).Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	team.MemberIDs, err = collectIDs(ctx, r.c.q, `SELECT user_id FROM team_members WHERE team_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get team members: %w", err)
	}
	return &team, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]*domain.Team, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	_ = rows.Close()

	links, err := collectLinks(ctx, r.c.q, `SELECT team_id, user_id FROM team_members`)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	for _, team := range teams {
		team.MemberIDs = linksFor(links, team.ID)
	}
	return teams, nil
}

func (r *TeamRepo) Update(ctx context.Context, team *domain.Team) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx,
		`UPDATE teams SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		team.Name, nullable(team.Description), now, team.ID)
	if err != nil {
		return fmt.Errorf("update team: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrTeamNotFound
	}
	team.UpdatedAt = now
	return nil
}

// Delete leaves projects of the team pointing at the removed id.
func (r *TeamRepo) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.c.q, "teams", id, domain.ErrTeamNotFound)
}

func (r *TeamRepo) AddMember(ctx context.Context, teamID, userID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "teams", teamID, r.c.timestamp(), domain.ErrTeamNotFound); err != nil {
			return err
		}
		return insertLink(ctx, q, "team_members", "team_id", "user_id", teamID, userID)
	})
}

func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "teams", teamID, r.c.timestamp(), domain.ErrTeamNotFound); err != nil {
			return err
		}
		return deleteLink(ctx, q, "team_members", "team_id", "user_id", teamID, userID)
	})
}
