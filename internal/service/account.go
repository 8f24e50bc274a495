package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/password"
	"github.com/ZertGraf/deploy-tracker/internal/repository"
	. "github.com/go-ozzo/ozzo-validation"
	"strings"
	"time"
)

type AccountService struct {
	store     repository.Store
	passwords *password.Manager
	logger    *logger.Logger
	now       func() time.Time
}

func NewAccountService(store repository.Store, passwords *password.Manager, logger *logger.Logger) *AccountService {
	return &AccountService{
		store:     store,
		passwords: passwords,
		logger:    logger.Component("service/account"),
		now:       time.Now,
	}
}

// ProfileUpdate replaces the optional profile fields of a user.
type ProfileUpdate struct {
	BirthDate  *time.Time
	FirstName  string
	LastName   string
	SlackToken *string
}

// CreateUser stores a regular active account. A nil rawPassword leaves the
// account with an unusable password.
func (s *AccountService) CreateUser(ctx context.Context, email string, birthDate *time.Time, rawPassword *string) (*domain.User, error) {
	user, err := s.newUser(email, birthDate, rawPassword)
	if err != nil {
		return nil, err
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"email", user.Email,
		"usable_password", password.IsUsable(user.Password),
	)

	return user, nil
}

// CreateSuperuser creates the account and promotes it to admin in one
// transaction.
func (s *AccountService) CreateSuperuser(ctx context.Context, email string, birthDate *time.Time, rawPassword string) (*domain.User, error) {
	if rawPassword == "" {
		return nil, fmt.Errorf("%w: password required", domain.ErrValidation)
	}

	user, err := s.newUser(email, birthDate, &rawPassword)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		user.IsAdmin = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("superuser created",
		"user_id", user.ID,
		"email", user.Email,
	)

	return user, nil
}

func (s *AccountService) newUser(email string, birthDate *time.Time, rawPassword *string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrValidation)
	}

	encoded, err := s.passwords.Make(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:     domain.NormalizeEmail(email),
		BirthDate: birthDate,
		Password:  encoded,
		IsActive:  true,
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate returns the active user owning email when rawPassword
// matches. Every failure is reported as ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, rawPassword string) (*domain.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// hash once so unknown emails cost the same as wrong passwords
			_, _ = s.passwords.Make(&rawPassword)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.CheckPassword(ctx, user, rawPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	s.logger.Info("user authenticated", "user_id", user.ID)

	return user, nil
}

// CheckPassword verifies rawPassword against the stored hash. A match on an
// outdated hash re-encodes and saves it.
func (s *AccountService) CheckPassword(ctx context.Context, user *domain.User, rawPassword string) (bool, error) {
	ok, mustUpdate, err := s.passwords.Check(rawPassword, user.Password)
	if err != nil {
		s.logger.Warn("stored password hash rejected",
			"user_id", user.ID,
			"error", err,
		)
		return false, nil
	}
	if !ok || !mustUpdate {
		return ok, nil
	}

	encoded, err := s.passwords.Make(&rawPassword)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	user.Password = encoded
	if err := s.store.Users().Update(ctx, user); err != nil {
		return false, fmt.Errorf("upgrade password hash: %w", err)
	}

	s.logger.Info("password hash upgraded",
		"user_id", user.ID,
		"algorithm", s.passwords.Preferred().Algorithm(),
	)

	return true, nil
}

func (s *AccountService) SetPassword(ctx context.Context, id int64, rawPassword string) (*domain.User, error) {
	if rawPassword == "" {
		return nil, fmt.Errorf("%w: password required", domain.ErrValidation)
	}
	return s.replacePassword(ctx, id, &rawPassword)
}

func (s *AccountService) SetUnusablePassword(ctx context.Context, id int64) (*domain.User, error) {
	return s.replacePassword(ctx, id, nil)
}

func (s *AccountService) replacePassword(ctx context.Context, id int64, rawPassword *string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.Password, err = s.passwords.Make(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed",
		"user_id", id,
		"usable", rawPassword != nil,
	)

	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.BirthDate = update.BirthDate
	user.FirstName = update.FirstName
	user.LastName = update.LastName
	user.SlackToken = update.SlackToken

	if err := validateUser(user); err != nil {
		return nil, err
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("user profile updated", "user_id", id)

	return user, nil
}

// SetActive enables or disables an account. Accounts are deactivated rather
// than deleted.
func (s *AccountService) SetActive(ctx context.Context, id int64, isActive bool) (*domain.User, error) {
	user, err := s.store.Users().SetIsActive(ctx, id, isActive)
	if err != nil {
		return nil, fmt.Errorf("set is_active: %w", err)
	}

	s.logger.Info("user activity status changed",
		"user_id", id,
		"is_active", isActive,
	)

	return user, nil
}

func (s *AccountService) SetAdmin(ctx context.Context, id int64, isAdmin bool) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.IsAdmin = isAdmin
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("set is_admin: %w", err)
	}

	s.logger.Info("user admin flag changed",
		"user_id", id,
		"is_admin", isAdmin,
	)

	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AccountService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func validateUser(user *domain.User) error {
	return validationError(ValidateStruct(user,
		Field(&user.Email, Required, RuneLength(1, domain.MaxEmailLength)),
		Field(&user.FirstName, RuneLength(0, domain.MaxProfileLength)),
		Field(&user.LastName, RuneLength(0, domain.MaxProfileLength)),
		Field(&user.SlackToken, NilOrNotEmpty, RuneLength(0, domain.MaxProfileLength)),
	))
}
