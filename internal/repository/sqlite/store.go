// Package sqlite implements repository.Store on top of modernc.org/sqlite.
// Timestamps are taken from the Go clock in UTC.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
	"time"
)

// DBTX is implemented by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q      DBTX
	db     *sql.DB // nil when q is already a transaction
	logger *logger.Logger
	now    func() time.Time
}

func (c *conn) withTx(ctx context.Context, fn func(q DBTX) error) error {
	if c.db == nil {
		return fn(c.q)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("failed to rollback transaction",
				"error", rbErr,
				"original_error", err,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (c *conn) timestamp() time.Time {
	return c.now().UTC()
}

// classify maps SQLite constraint failures onto domain errors.
func classify(err error) error {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	default:
		return err
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func touch(ctx context.Context, q DBTX, table string, id int64, at time.Time, notFound error) error {
	result, err := q.ExecContext(ctx, "UPDATE "+table+" SET updated_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("touch %s: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

func collectIDs(ctx context.Context, q DBTX, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.UniqueIDs(ids), nil
}

func linksFor(links map[int64][]int64, id int64) []int64 {
	return domain.UniqueIDs(links[id])
}

func collectLinks(ctx context.Context, q DBTX, query string) (map[int64][]int64, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	links := make(map[int64][]int64)
	for rows.Next() {
		var owner, target int64
		if err := rows.Scan(&owner, &target); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links[owner] = append(links[owner], target)
	}
	return links, rows.Err()
}

// insertLink adds an association row, ignoring duplicates.
func insertLink(ctx context.Context, q DBTX, table, ownerCol, targetCol string, owner, target int64) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT DO NOTHING", table, ownerCol, targetCol)
	if _, err := q.ExecContext(ctx, query, owner, target); err != nil {
		return fmt.Errorf("insert %s %d: %w", table, target, classify(err))
	}
	return nil
}

func deleteLink(ctx context.Context, q DBTX, table, ownerCol, targetCol string, owner, target int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", table, ownerCol, targetCol)
	if _, err := q.ExecContext(ctx, query, owner, target); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func deleteRow(ctx context.Context, q DBTX, table string, id int64, notFound error) error {
	result, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

type Store struct {
	c *conn

	users    *UserRepo
	teams    *TeamRepo
	projects *ProjectRepo
	repos    *RepoRepo
	branches *BranchRepo
	servers  *ServerRepo
}

func NewStore(db *sql.DB, logger *logger.Logger) *Store {
	return newStore(&conn{
		q:      db,
		db:     db,
		logger: logger.Component("repository/sqlite"),
		now:    time.Now,
	})
}

func newStore(c *conn) *Store {
	return &Store{
		c:        c,
		users:    &UserRepo{c},
		teams:    &TeamRepo{c},
		projects: &ProjectRepo{c},
		repos:    &RepoRepo{c},
		branches: &BranchRepo{c},
		servers:  &ServerRepo{c},
	}
}

func (s *Store) Users() repository.UserRepository       { return s.users }
func (s *Store) Teams() repository.TeamRepository       { return s.teams }
func (s *Store) Projects() repository.ProjectRepository { return s.projects }
func (s *Store) Repos() repository.RepoRepository       { return s.repos }
func (s *Store) Branches() repository.BranchRepository  { return s.branches }
func (s *Store) Servers() repository.ServerRepository   { return s.servers }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.c.withTx(ctx, func(q DBTX) error {
		return fn(newStore(&conn{q: q, logger: s.c.logger, now: s.c.now}))
	})
}

// nullable unwraps optional fields into driver values.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
