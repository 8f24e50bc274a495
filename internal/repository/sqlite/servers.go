package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

const serverColumns = `id, name, ip, url, repository_id, created_at, updated_at`

type ServerRepo struct {
	c *conn
}

func scanServer(row rowScanner) (*domain.Server, error) {
	var s domain.Server
	if err := row.Scan(&s.ID, &s.Name, &s.IP, &s.URL, &s.RepositoryID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServerRepo) Create(ctx context.Context, server *domain.Server) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx, `
		INSERT INTO servers (name, ip, url, repository_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		server.Name, nullable(server.IP), nullable(server.URL), nullable(server.RepositoryID), now, now)
	if err != nil {
		return fmt.Errorf("insert server: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get server id: %w", err)
	}

	server.ID = id
	server.CreatedAt = now
	server.UpdatedAt = now
	return nil
}

func (r *ServerRepo) GetByID(ctx context.Context, id int64) (*domain.Server, error) {
	server, err := scanServer(r.c.q.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrServerNotFound
		}
		return nil, fmt.Errorf("get server: %w", err)
	}
	return server, nil
}

func (r *ServerRepo) List(ctx context.Context) ([]*domain.Server, error) {
	return r.list(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id`)
}

func (r *ServerRepo) ListByRepository(ctx context.Context, repoID int64) ([]*domain.Server, error) {
	return r.list(ctx, `SELECT `+serverColumns+` FROM servers WHERE repository_id = ? ORDER BY id`, repoID)
}

func (r *ServerRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Server, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	servers := []*domain.Server{}
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return servers, nil
}

func (r *ServerRepo) Update(ctx context.Context, server *domain.Server) error {
	now := r.c.timestamp()
	result, err := r.c.q.ExecContext(ctx, `
		UPDATE servers
		SET name = ?, ip = ?, url = ?, repository_id = ?, updated_at = ?
		WHERE id = ?`,
		server.Name, nullable(server.IP), nullable(server.URL), nullable(server.RepositoryID), now, server.ID)
	if err != nil {
		return fmt.Errorf("update server: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrServerNotFound
	}
	server.UpdatedAt = now
	return nil
}

func (r *ServerRepo) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.c.q, "servers", id, domain.ErrServerNotFound)
}
