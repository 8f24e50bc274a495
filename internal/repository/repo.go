package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

type RepoRepo struct {
	base
}

func NewRepoRepo(db DBTX, logger *logger.Logger) *RepoRepo {
	return &RepoRepo{base{
		db:     db,
		logger: logger.Component("repository/repo"),
	}}
}

func (r *RepoRepo) Create(ctx context.Context, repo *domain.Repository) error {
	repo.BranchIDs = domain.UniqueIDs(repo.BranchIDs)

	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO repositories (name, selected_branch)
			VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`, repo.Name, repo.SelectedBranch).Scan(&repo.ID, &repo.CreatedAt, &repo.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert repository: %w", classify(err))
		}

		for _, branchID := range repo.BranchIDs {
			if err := insertRepositoryBranch(ctx, tx, repo.ID, branchID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepoRepo) GetByID(ctx context.Context, id int64) (*domain.Repository, error) {
	var repo domain.Repository
	err := r.db.QueryRow(ctx, `
		SELECT id, name, selected_branch, created_at, updated_at
		FROM repositories
		WHERE id = $1
	`, id).Scan(&repo.ID, &repo.Name, &repo.SelectedBranch, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("get repository: %w", err)
	}

	repo.BranchIDs, err = collectIDs(ctx, r.db,
		`SELECT branch_id FROM repository_branches WHERE repository_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get repository branches: %w", err)
	}

	return &repo, nil
}

func (r *RepoRepo) List(ctx context.Context) ([]*domain.Repository, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, selected_branch, created_at, updated_at
		FROM repositories
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query repositories: %w", err)
	}
	defer rows.Close()

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

	links, err := collectLinks(ctx, r.db, `SELECT repository_id, branch_id FROM repository_branches`)
	if err != nil {
		return nil, fmt.Errorf("list repository branches: %w", err)
	}
	for _, repo := range repos {
		repo.BranchIDs = linksFor(links, repo.ID)
	}

	return repos, nil
}

func (r *RepoRepo) Update(ctx context.Context, repo *domain.Repository) error {
	err := r.db.QueryRow(ctx, `
		UPDATE repositories
		SET name = $1, selected_branch = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at
	`, repo.Name, repo.SelectedBranch, repo.ID).Scan(&repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRepositoryNotFound
		}
		return fmt.Errorf("update repository: %w", classify(err))
	}
	return nil
}

// Delete removes the repository and its association rows. Servers keep
// their repository_id.
func (r *RepoRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRepositoryNotFound
	}
	return nil
}

func (r *RepoRepo) AddBranch(ctx context.Context, repoID, branchID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "repositories", repoID, domain.ErrRepositoryNotFound); err != nil {
			return err
		}
		return insertRepositoryBranch(ctx, tx, repoID, branchID)
	})
}

func (r *RepoRepo) RemoveBranch(ctx context.Context, repoID, branchID int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := touch(ctx, tx, "repositories", repoID, domain.ErrRepositoryNotFound); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM repository_branches WHERE repository_id = $1 AND branch_id = $2`, repoID, branchID)
		if err != nil {
			return fmt.Errorf("delete repository branch: %w", err)
		}
		return nil
	})
}

func insertRepositoryBranch(ctx context.Context, db DBTX, repoID, branchID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO repository_branches (repository_id, branch_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, repoID, branchID)
	if err != nil {
		return fmt.Errorf("insert repository branch %d: %w", branchID, classify(err))
	}
	return nil
}
