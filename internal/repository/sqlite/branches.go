package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

type BranchRepo struct {
	c *conn
}

func (r *BranchRepo) Create(ctx context.Context, branch *domain.Branch) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx,
		`INSERT INTO branches (name, created_at, updated_at) VALUES (?, ?, ?)`,
		branch.Name, now, now)
	if err != nil {
		return fmt.Errorf("insert branch: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get branch id: %w", err)
	}

	branch.ID = id
	branch.CreatedAt = now
	branch.UpdatedAt = now
	return nil
}

func (r *BranchRepo) GetByID(ctx context.Context, id int64) (*domain.Branch, error) {
	var b domain.Branch
	err := r.c.q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM branches WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBranchNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

func (r *BranchRepo) List(ctx context.Context) ([]*domain.Branch, error) {
	rows, err := r.c.q.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM branches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	branches := []*domain.Branch{}
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return branches, nil
}

func (r *BranchRepo) Update(ctx context.Context, branch *domain.Branch) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx,
		`UPDATE branches SET name = ?, updated_at = ? WHERE id = ?`,
		branch.Name, now, branch.ID)
	if err != nil {
		return fmt.Errorf("update branch: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrBranchNotFound
	}
	branch.UpdatedAt = now
	return nil
}

func (r *BranchRepo) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.c.q, "branches", id, domain.ErrBranchNotFound)
}
