package repository

import (
	"context"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
)

// UserRepository persists account records. Email uniqueness is enforced by
// the storage engine and surfaces as domain.ErrIntegrity.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetIsActive(ctx context.Context, id int64, isActive bool) (*domain.User, error)
}

type TeamRepository interface {
	TeamExists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	List(ctx context.Context) ([]*domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, teamID, userID int64) error
	RemoveMember(ctx context.Context, teamID, userID int64) error
}

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id int64) error
	AddRepository(ctx context.Context, projectID, repoID int64) error
	RemoveRepository(ctx context.Context, projectID, repoID int64) error
}

// RepoRepository persists source repositories.
type RepoRepository interface {
	Create(ctx context.Context, repo *domain.Repository) error
	GetByID(ctx context.Context, id int64) (*domain.Repository, error)
	List(ctx context.Context) ([]*domain.Repository, error)
	Update(ctx context.Context, repo *domain.Repository) error
	Delete(ctx context.Context, id int64) error
	AddBranch(ctx context.Context, repoID, branchID int64) error
	RemoveBranch(ctx context.Context, repoID, branchID int64) error
}

type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
	List(ctx context.Context) ([]*domain.Branch, error)
	Update(ctx context.Context, branch *domain.Branch) error
	Delete(ctx context.Context, id int64) error
}

type ServerRepository interface {
	Create(ctx context.Context, server *domain.Server) error
	GetByID(ctx context.Context, id int64) (*domain.Server, error)
	List(ctx context.Context) ([]*domain.Server, error)
	ListByRepository(ctx context.Context, repoID int64) ([]*domain.Server, error)
	Update(ctx context.Context, server *domain.Server) error
	Delete(ctx context.Context, id int64) error
}

// Store groups the repositories of one backend. Repositories obtained from
// the Store passed to a WithinTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Teams() TeamRepository
	Projects() ProjectRepository
	Repos() RepoRepository
	Branches() BranchRepository
	Servers() ServerRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
