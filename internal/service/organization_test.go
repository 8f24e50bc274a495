package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrganizationService(t *testing.T) (*OrganizationService, *AccountService) {
	store := newSQLiteStore(t)
	return NewOrganizationService(store, logger.NewNop()),
		NewAccountService(store, newTestPasswords(t, "pbkdf2_sha256", testIterations), logger.NewNop())
}

func TestCreateProject_MissingTeam(t *testing.T) {
	store := newStoreMock()
	svc := NewOrganizationService(store, logger.NewNop())

	store.teams.On("TeamExists", mock.Anything, int64(5)).Return(false, nil).Once()

	_, err := svc.CreateProject(context.Background(), &domain.Project{Name: "api", TeamID: 5})
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	store.projects.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestCreateProject_TeamLookupError(t *testing.T) {
	store := newStoreMock()
	svc := NewOrganizationService(store, logger.NewNop())
	boom := errors.New("boom")

	store.teams.On("TeamExists", mock.Anything, int64(5)).Return(false, boom).Once()

	_, err := svc.CreateProject(context.Background(), &domain.Project{Name: "api", TeamID: 5})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrIntegrity)
}

func TestOrganizationValidation(t *testing.T) {
	store := newStoreMock()
	svc := NewOrganizationService(store, logger.NewNop())
	ctx := context.Background()
	long := strings.Repeat("n", domain.MaxNameLength+1)

	tests := []struct {
		name string
		call func() error
	}{
		{"team without name", func() error { _, err := svc.CreateTeam(ctx, &domain.Team{}); return err }},
		{"team name too long", func() error { _, err := svc.CreateTeam(ctx, &domain.Team{Name: long}); return err }},
		{"team description too long", func() error {
			_, err := svc.CreateTeam(ctx, &domain.Team{Name: "a", Description: &long})
			return err
		}},
		{"nil team", func() error { _, err := svc.CreateTeam(ctx, nil); return err }},
		{"project without team", func() error { _, err := svc.CreateProject(ctx, &domain.Project{Name: "p"}); return err }},
		{"project name too long", func() error {
			_, err := svc.UpdateProject(ctx, &domain.Project{ID: 1, Name: long, TeamID: 1})
			return err
		}},
		{"repository without name", func() error { _, err := svc.CreateRepository(ctx, &domain.Repository{}); return err }},
		{"branch name too long", func() error { _, err := svc.CreateBranch(ctx, &domain.Branch{Name: long}); return err }},
		{"server bad ip", func() error {
			_, err := svc.CreateServer(ctx, &domain.Server{Name: "s", IP: ptr("300.1.1.1")})
			return err
		}},
		{"server empty ip", func() error {
			_, err := svc.CreateServer(ctx, &domain.Server{Name: "s", IP: ptr("")})
			return err
		}},
		{"server bad url", func() error {
			_, err := svc.CreateServer(ctx, &domain.Server{Name: "s", URL: ptr("not a url")})
			return err
		}},
		{"server url without scheme", func() error {
			_, err := svc.CreateServer(ctx, &domain.Server{Name: "s", URL: ptr("example.com")})
			return err
		}},
		{"team name too long in cyrillic", func() error {
			_, err := svc.CreateTeam(ctx, &domain.Team{Name: strings.Repeat("Д", domain.MaxNameLength+1)})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), domain.ErrValidation)
		})
	}

	store.assertExpectations(t)
}

func TestUpdateProject_SameTeamSkipsTeamCheck(t *testing.T) {
	store := newStoreMock()
	svc := NewOrganizationService(store, logger.NewNop())
	ctx := context.Background()

	stored := &domain.Project{ID: 3, Name: "api", TeamID: 7}
	store.projects.On("GetByID", mock.Anything, int64(3)).Return(stored, nil)
	store.projects.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.UpdateProject(ctx, &domain.Project{ID: 3, Name: "api-v2", TeamID: 7})
	require.NoError(t, err)

	store.teams.AssertNotCalled(t, "TeamExists", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestUpdateProject_MissingProject(t *testing.T) {
	store := newStoreMock()
	svc := NewOrganizationService(store, logger.NewNop())

	store.projects.On("GetByID", mock.Anything, int64(3)).Return(nil, domain.ErrProjectNotFound).Once()

	_, err := svc.UpdateProject(context.Background(), &domain.Project{ID: 3, Name: "api", TeamID: 7})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	store.projects.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrganizationValidation_CountsCharacters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrganizationService(t)

	name := strings.Repeat("Д", domain.MaxNameLength)
	team, err := svc.CreateTeam(ctx, &domain.Team{Name: name, Description: ptr(strings.Repeat("é", domain.MaxNameLength))})
	require.NoError(t, err)
	assert.Equal(t, name, team.Name)

	branch, err := svc.CreateBranch(ctx, &domain.Branch{Name: strings.Repeat("é", domain.MaxNameLength)})
	require.NoError(t, err)

	branch.Name = strings.Repeat("é", domain.MaxNameLength+1)
	_, err = svc.UpdateBranch(ctx, branch)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrganizationFlow_TeamsAndProjects(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newOrganizationService(t)

	alice, err := accounts.CreateUser(ctx, "alice@example.com", nil, nil)
	require.NoError(t, err)
	bob, err := accounts.CreateUser(ctx, "bob@example.com", nil, nil)
	require.NoError(t, err)

	team, err := svc.CreateTeam(ctx, &domain.Team{Name: "platform", MemberIDs: []int64{alice.ID}})
	require.NoError(t, err)
	created := team.CreatedAt

	require.NoError(t, svc.AddTeamMember(ctx, team.ID, bob.ID))
	require.NoError(t, svc.AddTeamMember(ctx, team.ID, bob.ID))

	team, err = svc.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID, bob.ID}, team.MemberIDs)
	assert.True(t, created.Equal(team.CreatedAt))
	assert.False(t, team.UpdatedAt.Before(team.CreatedAt))

	require.NoError(t, svc.RemoveTeamMember(ctx, team.ID, alice.ID))

	team.Name = "platform-core"
	team.Description = ptr("runtime")
	team, err = svc.UpdateTeam(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, "platform-core", team.Name)
	assert.Equal(t, []int64{bob.ID}, team.MemberIDs)

	project, err := svc.CreateProject(ctx, &domain.Project{Name: "deployer", TeamID: team.ID})
	require.NoError(t, err)

	_, err = svc.CreateProject(ctx, &domain.Project{Name: "ghost", TeamID: team.ID + 100})
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	project.Description = ptr("ships builds")
	project, err = svc.UpdateProject(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, "ships builds", *project.Description)

	require.NoError(t, svc.DeleteTeam(ctx, team.ID))
	assert.ErrorIs(t, svc.DeleteTeam(ctx, team.ID), domain.ErrTeamNotFound)

	// the project outlives its team and keeps the reference
	orphan, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, orphan.TeamID)

	byTeam, err := svc.ListTeamProjects(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, byTeam, 1)

	// it can still be edited while the team is gone
	orphan.Name = "deployer-legacy"
	orphan, err = svc.UpdateProject(ctx, orphan)
	require.NoError(t, err)
	assert.Equal(t, "deployer-legacy", orphan.Name)
	assert.Equal(t, team.ID, orphan.TeamID)

	// but not moved to another missing team
	orphan.TeamID = team.ID + 100
	_, err = svc.UpdateProject(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	infra, err := svc.CreateTeam(ctx, &domain.Team{Name: "infra"})
	require.NoError(t, err)
	orphan.TeamID = infra.ID
	orphan, err = svc.UpdateProject(ctx, orphan)
	require.NoError(t, err)
	assert.Equal(t, infra.ID, orphan.TeamID)
	require.NoError(t, svc.DeleteTeam(ctx, infra.ID))

	teams, err := svc.ListTeams(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	require.NoError(t, svc.DeleteProject(ctx, project.ID))
	_, err = svc.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestOrganizationFlow_RepositoriesBranchesServers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrganizationService(t)

	team, err := svc.CreateTeam(ctx, &domain.Team{Name: "web"})
	require.NoError(t, err)

	main, err := svc.CreateBranch(ctx, &domain.Branch{Name: "main"})
	require.NoError(t, err)
	release, err := svc.CreateBranch(ctx, &domain.Branch{Name: "release"})
	require.NoError(t, err)

	repo, err := svc.CreateRepository(ctx, &domain.Repository{Name: "storefront", BranchIDs: []int64{main.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.AddRepositoryBranch(ctx, repo.ID, release.ID))
	require.NoError(t, svc.AddRepositoryBranch(ctx, repo.ID, release.ID))
	assert.ErrorIs(t, svc.AddRepositoryBranch(ctx, repo.ID, 999), domain.ErrIntegrity)

	repo.SelectedBranch = &release.ID
	repo, err = svc.UpdateRepository(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []int64{main.ID, release.ID}, repo.BranchIDs)
	assert.Equal(t, release.ID, *repo.SelectedBranch)

	project, err := svc.CreateProject(ctx, &domain.Project{Name: "shop", TeamID: team.ID, RepositoryIDs: []int64{repo.ID}})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveProjectRepository(ctx, project.ID, repo.ID))
	require.NoError(t, svc.RemoveProjectRepository(ctx, project.ID, repo.ID))
	require.NoError(t, svc.AddProjectRepository(ctx, project.ID, repo.ID))
	assert.ErrorIs(t, svc.AddProjectRepository(ctx, project.ID+1, repo.ID), domain.ErrProjectNotFound)

	server, err := svc.CreateServer(ctx, &domain.Server{
		Name:         "web-1",
		IP:           ptr("192.168.1.10"),
		URL:          ptr("https://web-1.example.com"),
		RepositoryID: &repo.ID,
	})
	require.NoError(t, err)

	v6, err := svc.CreateServer(ctx, &domain.Server{Name: "web-2", IP: ptr("fe80::1")})
	require.NoError(t, err)

	servers, err := svc.ListRepositoryServers(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, server.ID, servers[0].ID)

	v6.RepositoryID = &repo.ID
	_, err = svc.UpdateServer(ctx, v6)
	require.NoError(t, err)

	all, err := svc.ListServers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.RemoveRepositoryBranch(ctx, repo.ID, main.ID))
	require.NoError(t, svc.DeleteBranch(ctx, release.ID))
	repo, err = svc.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Empty(t, repo.BranchIDs)

	main.Name = "trunk"
	renamed, err := svc.UpdateBranch(ctx, main)
	require.NoError(t, err)
	assert.Equal(t, "trunk", renamed.Name)

	branches, err := svc.ListBranches(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 1)

	require.NoError(t, svc.DeleteRepository(ctx, repo.ID))
	repos, err := svc.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Empty(t, repos)

	kept, err := svc.GetServer(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.ID, *kept.RepositoryID)

	require.NoError(t, svc.DeleteServer(ctx, server.ID))
	_, err = svc.GetServer(ctx, server.ID)
	assert.ErrorIs(t, err, domain.ErrServerNotFound)
}
