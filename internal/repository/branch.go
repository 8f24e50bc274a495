package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

type BranchRepo struct {
	base
}

func NewBranchRepo(db DBTX, logger *logger.Logger) *BranchRepo {
	return &BranchRepo{base{
		db:     db,
		logger: logger.Component("repository/branch"),
	}}
}

func (r *BranchRepo) Create(ctx context.Context, branch *domain.Branch) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO branches (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`, branch.Name).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert branch: %w", classify(err))
	}
	return nil
}

func (r *BranchRepo) GetByID(ctx context.Context, id int64) (*domain.Branch, error) {
	var branch domain.Branch
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM branches
		WHERE id = $1
	`, id).Scan(&branch.ID, &branch.Name, &branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBranchNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &branch, nil
}

func (r *BranchRepo) List(ctx context.Context) ([]*domain.Branch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM branches
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	branches := []*domain.Branch{}
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.CreatedAt, &branch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, &branch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return branches, nil
}

func (r *BranchRepo) Update(ctx context.Context, branch *domain.Branch) error {
	err := r.db.QueryRow(ctx, `
		UPDATE branches
		SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING created_at, updated_at
	`, branch.Name, branch.ID).Scan(&branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBranchNotFound
		}
		return fmt.Errorf("update branch: %w", classify(err))
	}
	return nil
}

func (r *BranchRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete branch: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBranchNotFound
	}
	return nil
}
