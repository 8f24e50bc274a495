package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

type RepoRepo struct {
	c *conn
}

func (r *RepoRepo) Create(ctx context.Context, repo *domain.Repository) error {
	repo.BranchIDs = domain.UniqueIDs(repo.BranchIDs)
	now := r.c.timestamp()

	return r.c.withTx(ctx, func(q DBTX) error {
		result, err := q.ExecContext(ctx, `
			INSERT INTO repositories (name, selected_branch, created_at, updated_at)
			VALUES (?, ?, ?, ?)`,
			repo.Name, nullable(repo.SelectedBranch), now, now)
		if err != nil {
			return fmt.Errorf("insert repository: %w", classify(err))
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get repository id: %w", err)
		}

		for _, branchID := range repo.BranchIDs {
			if err := insertLink(ctx, q, "repository_branches", "repository_id", "branch_id", id, branchID); err != nil {
				return err
			}
		}

		repo.ID = id
		repo.CreatedAt = now
		repo.UpdatedAt = now
		return nil
	})
}

func (r *RepoRepo) GetByID(ctx context.Context, id int64) (*domain.Repository, error) {
	var repo domain.Repository
	err := r.c.q.QueryRowContext(ctx, `
		SELECT id, name, selected_branch, created_at, updated_at
		FROM repositories
		WHERE id = ?`, id).Scan(&repo.ID, &repo.Name, &repo.SelectedBranch, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("get repository: %w", err)
	}

	repo.BranchIDs, err = collectIDs(ctx, r.c.q,
		`SELECT branch_id FROM repository_branches WHERE repository_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get repository branches: %w", err)
	}
	return &repo, nil
}

func (r *RepoRepo) List(ctx context.Context) ([]*domain.Repository, error) {
	rows, err := r.c.q.QueryContext(ctx, `
		SELECT id, name, selected_branch, created_at, updated_at
		FROM repositories
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	repos := []*domain.Repository{}
	for rows.Next() {
		var repo domain.Repository
		if err := rows.Scan(&repo.ID, &repo.Name, &repo.SelectedBranch, &repo.CreatedAt, &repo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, &repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	_ = rows.Close()

	links, err := collectLinks(ctx, r.c.q, `SELECT repository_id, branch_id FROM repository_branches`)
	if err != nil {
		return nil, fmt.Errorf("list repository branches: %w", err)
	}
	for _, repo := range repos {
		repo.BranchIDs = linksFor(links, repo.ID)
	}
	return repos, nil
}

func (r *RepoRepo) Update(ctx context.Context, repo *domain.Repository) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx,
		`UPDATE repositories SET name = ?, selected_branch = ?, updated_at = ? WHERE id = ?`,
		repo.Name, nullable(repo.SelectedBranch), now, repo.ID)
	if err != nil {
		return fmt.Errorf("update repository: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrRepositoryNotFound
	}
	repo.UpdatedAt = now
	return nil
}

func (r *RepoRepo) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.c.q, "repositories", id, domain.ErrRepositoryNotFound)
}

func (r *RepoRepo) AddBranch(ctx context.Context, repoID, branchID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "repositories", repoID, r.c.timestamp(), domain.ErrRepositoryNotFound); err != nil {
			return err
		}
		return insertLink(ctx, q, "repository_branches", "repository_id", "branch_id", repoID, branchID)
	})
}

func (r *RepoRepo) RemoveBranch(ctx context.Context, repoID, branchID int64) error {
	return r.c.withTx(ctx, func(q DBTX) error {
		if err := touch(ctx, q, "repositories", repoID, r.c.timestamp(), domain.ErrRepositoryNotFound); err != nil {
			return err
		}
		return deleteLink(ctx, q, "repository_branches", "repository_id", "branch_id", repoID, branchID)
	})
}
