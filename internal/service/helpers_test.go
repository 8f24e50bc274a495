package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/password"
	sqlitedb "github.com/ZertGraf/deploy-tracker/internal/pkg/sqlite"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	sqliterepo "github.com/ZertGraf/deploy-tracker/internal/repository/sqlite"
	"github.com/ZertGraf/deploy-tracker/migrations"
	"github.com/stretchr/testify/require"
)

// low work factors keep hashing fast in tests
const (
	testIterations = 1000
	testBcryptCost = 4
)

func newTestPasswords(t *testing.T, algorithm string, iterations int) *password.Manager {
	t.Helper()
	m, err := password.NewManagerFor(algorithm, iterations, testBcryptCost)
	require.NoError(t, err)
	return m
}

func newSQLiteStore(t *testing.T) repository.Store {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlitedb.New(logger.NewNop(), filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(conn.Close)

	m := sqlitedb.NewMigrator(conn.DB(), &sqlitedb.MigrationConfig{
		TableName: "schema_version",
		Enabled:   true,
		Source:    migrations.SQLite(),
	}, logger.NewNop())
	require.NoError(t, m.RunMigrations(ctx))

	return sqliterepo.NewStore(conn.DB(), logger.NewNop())
}

func ptr[T any](v T) *T { return &v }
