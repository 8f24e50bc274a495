package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/postgres"
	"github.com/ZertGraf/deploy-tracker/migrations"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 90 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=deploy_tracker",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	conn, err := postgres.New(logger.NewNop(), &postgres.Config{
		Host:              "localhost",
		Port:              port,
		Username:          "postgres",
		Password:          "postgres",
		Database:          "deploy_tracker",
		Schema:            "public",
		SSLMode:           "disable",
		MaxConns:          4,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, pool.Retry(func() error {
		return conn.Connect(ctx)
	}))
	t.Cleanup(conn.Close)

	m := postgres.NewMigrator(conn.Pool(), &postgres.MigrationConfig{
		Timeout:   time.Minute,
		TableName: "schema_version",
		Enabled:   true,
		Source:    migrations.Postgres(),
	}, logger.NewNop())
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Health(ctx))

	return NewPostgresStore(conn.Pool(), logger.NewNop())
}

func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	birth := time.Date(1988, 3, 1, 0, 0, 0, 0, time.UTC)
	alice := &domain.User{Email: "alice@example.com", Password: "!x", BirthDate: &birth, IsActive: true}
	require.NoError(t, s.Users().Create(ctx, alice))
	assert.NotZero(t, alice.ID)

	err := s.Users().Create(ctx, &domain.User{Email: "alice@example.com", Password: "!y", IsActive: true})
	require.ErrorIs(t, err, domain.ErrIntegrity)

	got, err := s.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "1988-03-01", got.BirthDate.Format(time.DateOnly))

	team := &domain.Team{Name: "platform", MemberIDs: []int64{alice.ID}}
	require.NoError(t, s.Teams().Create(ctx, team))
	require.NoError(t, s.Teams().AddMember(ctx, team.ID, alice.ID))
	require.ErrorIs(t, s.Teams().AddMember(ctx, team.ID, 9999), domain.ErrIntegrity)

	fetchedTeam, err := s.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID}, fetchedTeam.MemberIDs)

	branch := &domain.Branch{Name: "main"}
	require.NoError(t, s.Branches().Create(ctx, branch))

	repo := &domain.Repository{Name: "api", BranchIDs: []int64{branch.ID}}
	require.NoError(t, s.Repos().Create(ctx, repo))

	project := &domain.Project{Name: "shop", TeamID: team.ID, RepositoryIDs: []int64{repo.ID}}
	require.NoError(t, s.Projects().Create(ctx, project))

	ip := "2001:db8::1"
	server := &domain.Server{Name: "web-1", IP: &ip, RepositoryID: &repo.ID}
	require.NoError(t, s.Servers().Create(ctx, server))

	require.NoError(t, s.Teams().Delete(ctx, team.ID))
	orphan, err := s.Projects().GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, orphan.TeamID)
	assert.Equal(t, []int64{repo.ID}, orphan.RepositoryIDs)

	require.NoError(t, s.Repos().Delete(ctx, repo.ID))
	gotServer, err := s.Servers().GetByID(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, ip, *gotServer.IP)
	assert.Equal(t, repo.ID, *gotServer.RepositoryID)

	err = s.WithinTx(ctx, func(tx Store) error {
		if err := tx.Users().Create(ctx, &domain.User{Email: "bob@example.com", Password: "!x", IsActive: true}); err != nil {
			return err
		}
		return tx.Users().Create(ctx, &domain.User{Email: "bob@example.com", Password: "!x", IsActive: true})
	})
	require.ErrorIs(t, err, domain.ErrIntegrity)

	_, err = s.Users().GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
