package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

const projectColumns = `id, name, description, team_id, created_at, updated_at`

type ProjectRepo struct {
	c *conn
}

func (r *ProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	project.RepositoryIDs = domain.UniqueIDs(project.RepositoryIDs)
	now := r.c.timestamp()

	return r.c.withTx(ctx, func(q DBTX) error {
		result, err := q.ExecContext(ctx, `
			INSERT INTO projects (name, description, team_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			project.Name, nullable(project.Description), project.TeamID, now, now)
		if err != nil {
			return fmt.Errorf("insert project: %w", classify(err))
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get project id: %w", err)
		}

		for _, repoID := range project.RepositoryIDs {
			if err := insertLink(ctx, q, "project_repositories", "project_id", "repository_id", id, repoID); err != nil {
				return err
			}
		}

		project.ID = id
		project.CreatedAt = now
		project.UpdatedAt = now
		return nil
	})
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.c.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.TeamID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	p.RepositoryIDs, err = collectIDs(ctx, r.c.q,
		`SELECT repository_id FROM project_repositories WHERE project_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get project repositories: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
}

func (r *ProjectRepo) ListByTeam(ctx context.Context, teamID int64) ([]*domain.Project, error) {
	return r.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE team_id = ? ORDER BY id`, teamID)
}

func (r *ProjectRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.TeamID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	_ = rows.Close()

	links, err := collectLinks(ctx, r.c.q, `SELECT project_id, repository_id FROM project_repositories`)
	if err != nil {
		return nil, fmt.Errorf("list project repositories: %w", err)
	}
	for _, p := range projects {
		p.RepositoryIDs = linksFor(links, p.ID)
	}
	return projects, nil
}

func (r *ProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, team_id = ?, updated_at = ? WHERE id = ?`,
		project.Name, nullable(project.Description), project.TeamID, now, project.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrProjectNotFound
	}
	project.UpdatedAt = now
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.c.q, "projects", id, domain.ErrProjectNotFound)
}

func (r *ProjectRepo) AddRepository(ctx context.Context, projectID, repoID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "projects", projectID, r.c.timestamp(), domain.ErrProjectNotFound); err != nil {
			return err
		}
		return insertLink(ctx, q, "project_repositories", "project_id", "repository_id", projectID, repoID)
	})
}

func (r *ProjectRepo) RemoveRepository(ctx context.Context, projectID, repoID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "projects", projectID, r.c.timestamp(), domain.ErrProjectNotFound); err != nil {
			return err
		}
		return deleteLink(ctx, q, "project_repositories", "project_id", "repository_id", projectID, repoID)
	})
}
