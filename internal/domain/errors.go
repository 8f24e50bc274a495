package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrIntegrity          = errors.New("integrity violation")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrServerNotFound     = errors.New("server not found")
)

// IsNotFound reports whether err is one of the entity lookup misses.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrRepositoryNotFound) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrServerNotFound)
}
