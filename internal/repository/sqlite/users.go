package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

const userColumns = `id, email, password, birth_date, first_name, last_name, slack_token,
	is_active, is_admin, last_login, created_at, updated_at`

type UserRepo struct {
	c *conn
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.BirthDate,
		&user.FirstName,
		&user.LastName,
		&user.SlackToken,
		&user.IsActive,
		&user.IsAdmin,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	now := r.c.timestamp()

	result, err := r.c.q.ExecContext(ctx, `
		INSERT INTO users (email, password, birth_date, first_name, last_name, slack_token,
			is_active, is_admin, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Password,
		nullable(user.BirthDate),
		user.FirstName,
		user.LastName,
		nullable(user.SlackToken),
		boolToInt(user.IsActive),
		boolToInt(user.IsAdmin),
		nullable(user.LastLogin),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get user id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.c.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.c.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.c.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	now := r.c.timestamp()

	result, err := r.c.q.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password = ?, birth_date = ?, first_name = ?, last_name = ?,
			slack_token = ?, is_active = ?, is_admin = ?, last_login = ?, updated_at = ?
		WHERE id = ?`,
		user.Email,
		user.Password,
		nullable(user.BirthDate),
		user.FirstName,
		user.LastName,
		nullable(user.SlackToken),
		boolToInt(user.IsActive),
		boolToInt(user.IsAdmin),
		nullable(user.LastLogin),
		now,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}

	user.UpdatedAt = now
	return nil
}

func (r *UserRepo) SetIsActive(ctx context.Context, id int64, isActive bool) (*domain.User, error) {
	result, err := r.c.q.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(isActive), r.c.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}
