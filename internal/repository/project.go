package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

type ProjectRepo struct {
	base
}

func NewProjectRepo(db DBTX, logger *logger.Logger) *ProjectRepo {
	return &ProjectRepo{base{
		db:     db,
		logger: logger.Component("repository/project"),
	}}
}

// Create inserts the project with its initial repositories. The team
// reference is stored as given; callers check it exists beforehand.
func (r *ProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	project.RepositoryIDs = domain.UniqueIDs(project.RepositoryIDs)

	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO projects (name, description, team_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, project.Name, project.Description, project.TeamID).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert project: %w", classify(err))
		}

		for _, repoID := range project.RepositoryIDs {
			if err := insertProjectRepository(ctx, tx, project.ID, repoID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var project domain.Project
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, team_id, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&project.ID, &project.Name, &project.Description, &project.TeamID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	project.RepositoryIDs, err = collectIDs(ctx, r.db,
		`SELECT repository_id FROM project_repositories WHERE project_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get project repositories: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return r.list(ctx, `
		SELECT id, name, description, team_id, created_at, updated_at
		FROM projects
		ORDER BY id
	`)
}

func (r *ProjectRepo) ListByTeam(ctx context.Context, teamID int64) ([]*domain.Project, error) {
	return r.list(ctx, `
		SELECT id, name, description, team_id, created_at, updated_at
		FROM projects
		WHERE team_id = $1
		ORDER BY id
	`, teamID)
}

func (r *ProjectRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

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

	links, err := collectLinks(ctx, r.db, `SELECT project_id, repository_id FROM project_repositories`)
	if err != nil {
		return nil, fmt.Errorf("list project repositories: %w", err)
	}
	for _, p := range projects {
		p.RepositoryIDs = linksFor(links, p.ID)
	}

	return projects, nil
}

func (r *ProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	err := r.db.QueryRow(ctx, `
		UPDATE projects
		SET name = $1, description = $2, team_id = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING created_at, updated_at
	`, project.Name, project.Description, project.TeamID, project.ID).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProjectNotFound
		}
		return fmt.Errorf("update project: %w", classify(err))
	}
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepo) AddRepository(ctx context.Context, projectID, repoID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "projects", projectID, domain.ErrProjectNotFound); err != nil {
			return err
		}
		return insertProjectRepository(ctx, tx, projectID, repoID)
	})
}

func (r *ProjectRepo) RemoveRepository(ctx context.Context, projectID, repoID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "projects", projectID, domain.ErrProjectNotFound); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM project_repositories WHERE project_id = $1 AND repository_id = $2`, projectID, repoID)
		if err != nil {
			return fmt.Errorf("delete project repository: %w", err)
		}
		return nil
	})
}

func insertProjectRepository(ctx context.Context, db DBTX, projectID, repoID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO project_repositories (project_id, repository_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, projectID, repoID)
	if err != nil {
		return fmt.Errorf("insert project repository %d: %w", repoID, classify(err))
	}
	return nil
}
