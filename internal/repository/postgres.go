package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is implemented by *pgxpool.Pool and pgx.Tx, so every repository runs
// unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// postgres SQLSTATE codes mapped onto domain errors
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeStringTooLong       = "22001"
)

// classify tags integrity and field violations raised by the server with the
// matching domain error. The driver error stays in the chain.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation, codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
	case codeNotNullViolation, codeStringTooLong:
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	default:
		return err
	}
}

type base struct {
	db     DBTX
	logger *logger.Logger
}

// withTx runs fn in a transaction. When db is already a transaction pgx
// opens a savepoint instead.
func (b *base) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				b.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// touch refreshes updated_at of one row, reporting notFound when it is gone.
func touch(ctx context.Context, db DBTX, table string, id int64, notFound error) error {
	tag, err := db.Exec(ctx, "UPDATE "+table+" SET updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("touch %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// collectIDs runs a single-column id query.
func collectIDs(ctx context.Context, db DBTX, query string, args ...any) ([]int64, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return domain.UniqueIDs(ids), nil
}

// collectLinks groups the (owner, target) pairs of an association table.
func collectLinks(ctx context.Context, db DBTX, query string) (map[int64][]int64, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[int64][]int64)
	for rows.Next() {
		var owner, target int64
		if err := rows.Scan(&owner, &target); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links[owner] = append(links[owner], target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

func linksFor(links map[int64][]int64, id int64) []int64 {
	return domain.UniqueIDs(links[id])
}

// PostgresStore is the pgx implementation of Store.
type PostgresStore struct {
	db     DBTX
	logger *logger.Logger

	users    *UserRepo
	teams    *TeamRepo
	projects *ProjectRepo
	repos    *RepoRepo
	branches *BranchRepo
	servers  *ServerRepo
}

func NewPostgresStore(db DBTX, logger *logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		logger:   logger,
		users:    NewUserRepo(db, logger),
		teams:    NewTeamRepo(db, logger),
		projects: NewProjectRepo(db, logger),
		repos:    NewRepoRepo(db, logger),
		branches: NewBranchRepo(db, logger),
		servers:  NewServerRepo(db, logger),
	}
}

func (s *PostgresStore) Users() UserRepository       { return s.users }
func (s *PostgresStore) Teams() TeamRepository       { return s.teams }
func (s *PostgresStore) Projects() ProjectRepository { return s.projects }
func (s *PostgresStore) Repos() RepoRepository       { return s.repos }
func (s *PostgresStore) Branches() BranchRepository  { return s.branches }
func (s *PostgresStore) Servers() ServerRepository   { return s.servers }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	b := &base{db: s.db, logger: s.logger.Component("repository/postgres")}
	return b.withTx(ctx, func(tx pgx.Tx) error {
		return fn(NewPostgresStore(tx, s.logger))
	})
}
