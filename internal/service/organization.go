package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// OrganizationService manages teams, projects, repositories, branches and
// servers. Writes are validated before they reach the store.
type OrganizationService struct {
	store  repository.Store
	logger *logger.Logger
}

func NewOrganizationService(store repository.Store, logger *logger.Logger) *OrganizationService {
	return &OrganizationService{
		store:  store,
		logger: logger.Component("service/organization"),
	}
}

// teams

func (s *OrganizationService) CreateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	if err := validateTeam(team); err != nil {
		return nil, err
	}

	if err := s.store.Teams().Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.logger.Info("team created",
		"team_id", team.ID,
		"name", team.Name,
		"members_count", len(team.MemberIDs),
	)

	return team, nil
}

func (s *OrganizationService) GetTeam(ctx context.Context, id int64) (*domain.Team, error) {
	team, err := s.store.Teams().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

func (s *OrganizationService) ListTeams(ctx context.Context) ([]*domain.Team, error) {
	teams, err := s.store.Teams().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// UpdateTeam writes name and description; membership is left as stored.
func (s *OrganizationService) UpdateTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	if err := validateTeam(team); err != nil {
		return nil, err
	}

	if err := s.store.Teams().Update(ctx, team); err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}

	s.logger.Info("team updated", "team_id", team.ID)

	return s.GetTeam(ctx, team.ID)
}

// DeleteTeam removes the team. Its projects keep the dangling team id.
func (s *OrganizationService) DeleteTeam(ctx context.Context, id int64) error {
	if err := s.store.Teams().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	s.logger.Info("team deleted", "team_id", id)
	return nil
}

func (s *OrganizationService) AddTeamMember(ctx context.Context, teamID, userID int64) error {
	if err := s.store.Teams().AddMember(ctx, teamID, userID); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}

	s.logger.Info("team member added", "team_id", teamID, "user_id", userID)
	return nil
}

func (s *OrganizationService) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	if err := s.store.Teams().RemoveMember(ctx, teamID, userID); err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}

	s.logger.Info("team member removed", "team_id", teamID, "user_id", userID)
	return nil
}

// projects

func (s *OrganizationService) CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.ensureTeam(ctx, project.TeamID); err != nil {
		return nil, err
	}

	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("project created",
		"project_id", project.ID,
		"team_id", project.TeamID,
		"repositories_count", len(project.RepositoryIDs),
	)

	return project, nil
}

func (s *OrganizationService) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	project, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

func (s *OrganizationService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	projects, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *OrganizationService) ListTeamProjects(ctx context.Context, teamID int64) ([]*domain.Project, error) {
	projects, err := s.store.Projects().ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team projects: %w", err)
	}
	return projects, nil
}

func (s *OrganizationService) UpdateProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	if err := validateProject(project); err != nil {
		return nil, err
	}

	current, err := s.store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	// a project may keep pointing at a deleted team, but cannot be moved to one
	if current.TeamID != project.TeamID {
		if err := s.ensureTeam(ctx, project.TeamID); err != nil {
			return nil, err
		}
	}

	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.logger.Info("project updated", "project_id", project.ID, "team_id", project.TeamID)

	return s.GetProject(ctx, project.ID)
}

func (s *OrganizationService) DeleteProject(ctx context.Context, id int64) error {
	if err := s.store.Projects().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.logger.Info("project deleted", "project_id", id)
	return nil
}

func (s *OrganizationService) AddProjectRepository(ctx context.Context, projectID, repoID int64) error {
	if err := s.store.Projects().AddRepository(ctx, projectID, repoID); err != nil {
		return fmt.Errorf("add project repository: %w", err)
	}

	s.logger.Info("project repository added", "project_id", projectID, "repository_id", repoID)
	return nil
}

func (s *OrganizationService) RemoveProjectRepository(ctx context.Context, projectID, repoID int64) error {
	if err := s.store.Projects().RemoveRepository(ctx, projectID, repoID); err != nil {
		return fmt.Errorf("remove project repository: %w", err)
	}

	s.logger.Info("project repository removed", "project_id", projectID, "repository_id", repoID)
	return nil
}

// ensureTeam rejects creating or reassigning a project to a team that does
// not exist.
func (s *OrganizationService) ensureTeam(ctx context.Context, teamID int64) error {
	exists, err := s.store.Teams().TeamExists(ctx, teamID)
	if err != nil {
		return fmt.Errorf("check team exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: team %d does not exist", domain.ErrIntegrity, teamID)
	}
	return nil
}

// repositories

func (s *OrganizationService) CreateRepository(ctx context.Context, repo *domain.Repository) (*domain.Repository, error) {
	if err := validateRepository(repo); err != nil {
		return nil, err
	}

	if err := s.store.Repos().Create(ctx, repo); err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}

	s.logger.Info("repository created",
		"repository_id", repo.ID,
		"name", repo.Name,
		"branches_count", len(repo.BranchIDs),
	)

	return repo, nil
}

func (s *OrganizationService) GetRepository(ctx context.Context, id int64) (*domain.Repository, error) {
	repo, err := s.store.Repos().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return repo, nil
}

func (s *OrganizationService) ListRepositories(ctx context.Context) ([]*domain.Repository, error) {
	repos, err := s.store.Repos().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}

func (s *OrganizationService) UpdateRepository(ctx context.Context, repo *domain.Repository) (*domain.Repository, error) {
	if err := validateRepository(repo); err != nil {
		return nil, err
	}

	if err := s.store.Repos().Update(ctx, repo); err != nil {
		return nil, fmt.Errorf("update repository: %w", err)
	}

	s.logger.Info("repository updated", "repository_id", repo.ID)

	return s.GetRepository(ctx, repo.ID)
}

func (s *OrganizationService) DeleteRepository(ctx context.Context, id int64) error {
	if err := s.store.Repos().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}

	s.logger.Info("repository deleted", "repository_id", id)
	return nil
}

func (s *OrganizationService) AddRepositoryBranch(ctx context.Context, repoID, branchID int64) error {
	if err := s.store.Repos().AddBranch(ctx, repoID, branchID); err != nil {
		return fmt.Errorf("add repository branch: %w", err)
	}

	s.logger.Info("repository branch added", "repository_id", repoID, "branch_id", branchID)
	return nil
}

func (s *OrganizationService) RemoveRepositoryBranch(ctx context.Context, repoID, branchID int64) error {
	if err := s.store.Repos().RemoveBranch(ctx, repoID, branchID); err != nil {
		return fmt.Errorf("remove repository branch: %w", err)
	}

	s.logger.Info("repository branch removed", "repository_id", repoID, "branch_id", branchID)
	return nil
}

// branches

func (s *OrganizationService) CreateBranch(ctx context.Context, branch *domain.Branch) (*domain.Branch, error) {
	if err := validateBranch(branch); err != nil {
		return nil, err
	}

	if err := s.store.Branches().Create(ctx, branch); err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}

	s.logger.Info("branch created", "branch_id", branch.ID, "name", branch.Name)

	return branch, nil
}

func (s *OrganizationService) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	branch, err := s.store.Branches().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return branch, nil
}

func (s *OrganizationService) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	branches, err := s.store.Branches().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

func (s *OrganizationService) UpdateBranch(ctx context.Context, branch *domain.Branch) (*domain.Branch, error) {
	if err := validateBranch(branch); err != nil {
		return nil, err
	}

	if err := s.store.Branches().Update(ctx, branch); err != nil {
		return nil, fmt.Errorf("update branch: %w", err)
	}

	s.logger.Info("branch updated", "branch_id", branch.ID)

	return s.GetBranch(ctx, branch.ID)
}

func (s *OrganizationService) DeleteBranch(ctx context.Context, id int64) error {
	if err := s.store.Branches().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}

	s.logger.Info("branch deleted", "branch_id", id)
	return nil
}

// servers

func (s *OrganizationService) CreateServer(ctx context.Context, server *domain.Server) (*domain.Server, error) {
	if err := validateServer(server); err != nil {
		return nil, err
	}

	if err := s.store.Servers().Create(ctx, server); err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	s.logger.Info("server created",
		"server_id", server.ID,
		"name", server.Name,
		"repository_id", server.RepositoryID,
	)

	return server, nil
}

func (s *OrganizationService) GetServer(ctx context.Context, id int64) (*domain.Server, error) {
	server, err := s.store.Servers().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	return server, nil
}

func (s *OrganizationService) ListServers(ctx context.Context) ([]*domain.Server, error) {
	servers, err := s.store.Servers().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return servers, nil
}

func (s *OrganizationService) ListRepositoryServers(ctx context.Context, repoID int64) ([]*domain.Server, error) {
	servers, err := s.store.Servers().ListByRepository(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("list repository servers: %w", err)
	}
	return servers, nil
}

func (s *OrganizationService) UpdateServer(ctx context.Context, server *domain.Server) (*domain.Server, error) {
	if err := validateServer(server); err != nil {
		return nil, err
	}

	if err := s.store.Servers().Update(ctx, server); err != nil {
		return nil, fmt.Errorf("update server: %w", err)
	}

	s.logger.Info("server updated", "server_id", server.ID)

	return s.GetServer(ctx, server.ID)
}

func (s *OrganizationService) DeleteServer(ctx context.Context, id int64) error {
	if err := s.store.Servers().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete server: %w", err)
	}

	s.logger.Info("server deleted", "server_id", id)
	return nil
}

func validateTeam(team *domain.Team) error {
	if team == nil {
		return fmt.Errorf("%w: team is nil", domain.ErrValidation)
	}
	return validationError(ValidateStruct(team,
		Field(&team.Name, Required, RuneLength(1, domain.MaxNameLength)),
		Field(&team.Description, RuneLength(0, domain.MaxNameLength)),
	))
}

func validateProject(project *domain.Project) error {
	if project == nil {
		return fmt.Errorf("%w: project is nil", domain.ErrValidation)
	}
	return validationError(ValidateStruct(project,
		Field(&project.Name, Required, RuneLength(1, domain.MaxNameLength)),
		Field(&project.Description, RuneLength(0, domain.MaxNameLength)),
		Field(&project.TeamID, Required),
	))
}

func validateRepository(repo *domain.Repository) error {
	if repo == nil {
		return fmt.Errorf("%w: repository is nil", domain.ErrValidation)
	}
	return validationError(ValidateStruct(repo,
		Field(&repo.Name, Required, RuneLength(1, domain.MaxNameLength)),
	))
}

func validateBranch(branch *domain.Branch) error {
	if branch == nil {
		return fmt.Errorf("%w: branch is nil", domain.ErrValidation)
	}
	return validationError(ValidateStruct(branch,
		Field(&branch.Name, Required, RuneLength(1, domain.MaxNameLength)),
	))
}

func validateServer(server *domain.Server) error {
	if server == nil {
		return fmt.Errorf("%w: server is nil", domain.ErrValidation)
	}
	return validationError(ValidateStruct(server,
		Field(&server.Name, Required, RuneLength(1, domain.MaxNameLength)),
		Field(&server.IP, NilOrNotEmpty, is.IP),
		Field(&server.URL, NilOrNotEmpty, is.URL, is.RequestURL, RuneLength(0, domain.MaxURLLength)),
	))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var errs Errors
	if errors.As(err, &errs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errs)
	}
	return err
}
