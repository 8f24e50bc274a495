package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const serverColumns = `id, name, ip, url, repository_id, created_at, updated_at`

type ServerRepo struct {
	base
}

func NewServerRepo(db DBTX, logger *logger.Logger) *ServerRepo {
	return &ServerRepo{base{
		db:     db,
		logger: logger.Component("repository/server"),
	}}
}

func scanServer(row pgx.Row) (*domain.Server, error) {
	var s domain.Server
	if err := row.Scan(&s.ID, &s.Name, &s.IP, &s.URL, &s.RepositoryID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServerRepo) Create(ctx context.Context, server *domain.Server) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO servers (name, ip, url, repository_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, server.Name, server.IP, server.URL, server.RepositoryID).Scan(&server.ID, &server.CreatedAt, &server.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert server: %w", classify(err))
	}
	return nil
}

func (r *ServerRepo) GetByID(ctx context.Context, id int64) (*domain.Server, error) {
	server, err := scanServer(r.db.QueryRow(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	return r.list(ctx, `SELECT `+serverColumns+` FROM servers WHERE repository_id = $1 ORDER BY id`, repoID)
}

func (r *ServerRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Server, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

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
	err := r.db.QueryRow(ctx, `
		UPDATE servers
		SET name = $1, ip = $2, url = $3, repository_id = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING created_at, updated_at
	`, server.Name, server.IP, server.URL, server.RepositoryID, server.ID).Scan(&server.CreatedAt, &server.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrServerNotFound
		}
		return fmt.Errorf("update server: %w", classify(err))
	}
	return nil
}

func (r *ServerRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete server: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return domain.ErrServerNotFound
	}
	return nil
}
