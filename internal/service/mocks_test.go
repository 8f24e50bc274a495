package service

import (
	"context"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	"github.com/stretchr/testify/mock"
)

type storeMock struct {
	mock.Mock
	users    *userRepoMock
	teams    *teamRepoMock
	projects *projectRepoMock
}

var _ repository.Store = (*storeMock)(nil)

func newStoreMock() *storeMock {
	return &storeMock{
		users:    &userRepoMock{},
		teams:    &teamRepoMock{},
		projects: &projectRepoMock{},
	}
}

func (m *storeMock) Users() repository.UserRepository       { return m.users }
func (m *storeMock) Teams() repository.TeamRepository       { return m.teams }
func (m *storeMock) Projects() repository.ProjectRepository { return m.projects }
func (m *storeMock) Repos() repository.RepoRepository       { return nil }
func (m *storeMock) Branches() repository.BranchRepository  { return nil }
func (m *storeMock) Servers() repository.ServerRepository   { return nil }

// WithinTx hands the mock itself to fn; rollback is the store's concern.
func (m *storeMock) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *storeMock) assertExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.teams.AssertExpectations(t)
	m.projects.AssertExpectations(t)
}

type userRepoMock struct{ mock.Mock }

var _ repository.UserRepository = (*userRepoMock)(nil)

func (m *userRepoMock) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userRepoMock) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *userRepoMock) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *userRepoMock) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *userRepoMock) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userRepoMock) SetIsActive(ctx context.Context, id int64, isActive bool) (*domain.User, error) {
	args := m.Called(ctx, id, isActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type teamRepoMock struct{ mock.Mock }

var _ repository.TeamRepository = (*teamRepoMock)(nil)

func (m *teamRepoMock) TeamExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *teamRepoMock) Create(ctx context.Context, team *domain.Team) error {
	return m.Called(ctx, team).Error(0)
}

func (m *teamRepoMock) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *teamRepoMock) List(ctx context.Context) ([]*domain.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Team), args.Error(1)
}

func (m *teamRepoMock) Update(ctx context.Context, team *domain.Team) error {
	return m.Called(ctx, team).Error(0)
}

func (m *teamRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *teamRepoMock) AddMember(ctx context.Context, teamID, userID int64) error {
	return m.Called(ctx, teamID, userID).Error(0)
}

func (m *teamRepoMock) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return m.Called(ctx, teamID, userID).Error(0)
}

type projectRepoMock struct{ mock.Mock }

var _ repository.ProjectRepository = (*projectRepoMock)(nil)

func (m *projectRepoMock) Create(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *projectRepoMock) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *projectRepoMock) List(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *projectRepoMock) ListByTeam(ctx context.Context, teamID int64) ([]*domain.Project, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *projectRepoMock) Update(ctx context.Context, project *domain.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *projectRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *projectRepoMock) AddRepository(ctx context.Context, projectID, repoID int64) error {
	return m.Called(ctx, projectID, repoID).Error(0)
}

func (m *projectRepoMock) RemoveRepository(ctx context.Context, projectID, repoID int64) error {
	return m.Called(ctx, projectID, repoID).Error(0)
}
