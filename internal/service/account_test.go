package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZertGraf/deploy-tracker/internal/domain"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockAccountService(t *testing.T) (*AccountService, *storeMock) {
	store := newStoreMock()
	svc := NewAccountService(store, newTestPasswords(t, password.PBKDF2Algorithm, testIterations), logger.NewNop())
	return svc, store
}

func newAccountService(t *testing.T) *AccountService {
	return NewAccountService(newSQLiteStore(t), newTestPasswords(t, password.PBKDF2Algorithm, testIterations), logger.NewNop())
}

func TestCreateUser_NormalizesAndHashes(t *testing.T) {
	ctx := context.Background()
	svc, store := newMockAccountService(t)

	store.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "Alice@example.com" &&
			u.IsActive && !u.IsAdmin &&
			strings.HasPrefix(u.Password, password.PBKDF2Algorithm+"$")
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 7
	}).Return(nil).Once()

	user, err := svc.CreateUser(ctx, "  Alice@EXAMPLE.com ", nil, ptr("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NotContains(t, user.Password, "s3cret")

	store.assertExpectations(t)
}

func TestCreateUser_NilPasswordIsUnusable(t *testing.T) {
	ctx := context.Background()
	svc, store := newMockAccountService(t)

	store.users.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	user, err := svc.CreateUser(ctx, "bob@example.com", nil, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.Password, password.UnusablePrefix))
	assert.Len(t, user.Password, 41)
	assert.False(t, password.IsUsable(user.Password))
}

func TestCreateUser_RejectsBlankEmail(t *testing.T) {
	svc, store := newMockAccountService(t)

	for _, email := range []string{"", "   ", "\t\n"} {
		_, err := svc.CreateUser(context.Background(), email, nil, ptr("x"))
		assert.ErrorIs(t, err, domain.ErrValidation, "email %q", email)
	}

	store.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUser_RejectsLongEmail(t *testing.T) {
	svc, _ := newMockAccountService(t)

	email := strings.Repeat("a", domain.MaxEmailLength) + "@example.com"
	_, err := svc.CreateUser(context.Background(), email, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateUser_EmailLengthCountsCharacters(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	domainPart := "@example.com"
	local := strings.Repeat("ü", domain.MaxEmailLength-len(domainPart))

	user, err := svc.CreateUser(ctx, local+domainPart, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, local+domainPart, user.Email)

	_, err = svc.CreateUser(ctx, "ü"+local+domainPart, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{FirstName: strings.Repeat("Ж", domain.MaxProfileLength)})
	require.NoError(t, err)
}

func TestCreateUser_PropagatesStoreError(t *testing.T) {
	svc, store := newMockAccountService(t)
	store.users.On("Create", mock.Anything, mock.Anything).Return(domain.ErrIntegrity).Once()

	_, err := svc.CreateUser(context.Background(), "dup@example.com", nil, nil)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestCreateSuperuser_RequiresPassword(t *testing.T) {
	svc, store := newMockAccountService(t)

	_, err := svc.CreateSuperuser(context.Background(), "root@example.com", nil, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	store.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCreateSuperuser_PromotesInsideTransaction(t *testing.T) {
	svc, store := newMockAccountService(t)

	store.On("WithinTx", mock.Anything).Return(nil).Once()
	store.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return !u.IsAdmin
	})).Return(nil).Once()
	store.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.IsAdmin
	})).Return(nil).Once()

	user, err := svc.CreateSuperuser(context.Background(), "root@Example.COM", nil, "toor")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.True(t, user.IsStaff())
	assert.Equal(t, "root@example.com", user.Email)

	store.assertExpectations(t)
}

func TestCreateSuperuser_PromoteFailureFails(t *testing.T) {
	svc, store := newMockAccountService(t)
	boom := errors.New("boom")

	store.On("WithinTx", mock.Anything).Return(nil).Once()
	store.users.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	store.users.On("Update", mock.Anything, mock.Anything).Return(boom).Once()

	user, err := svc.CreateSuperuser(context.Background(), "root@example.com", nil, "toor")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, user)
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	svc, store := newMockAccountService(t)
	store.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound).Once()

	_, err := svc.Authenticate(context.Background(), "ghost@EXAMPLE.com", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

type countingHasher struct {
	password.Hasher
	encodes int
}

func (h *countingHasher) Encode(raw string) (string, error) {
	h.encodes++
	return h.Hasher.Encode(raw)
}

func TestAuthenticate_UnknownEmailStillHashes(t *testing.T) {
	store := newStoreMock()
	hasher := &countingHasher{Hasher: password.NewPBKDF2Hasher(testIterations)}
	svc := NewAccountService(store, password.NewManager(hasher), logger.NewNop())

	store.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrUserNotFound).Once()

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "guess")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.encodes)
}

func TestAuthenticate_StoreFailureIsNotCredentials(t *testing.T) {
	svc, store := newMockAccountService(t)
	boom := errors.New("connection reset")
	store.users.On("GetByEmail", mock.Anything, "a@example.com").Return(nil, boom).Once()

	_, err := svc.Authenticate(context.Background(), "a@example.com", "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountFlow_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	birth := time.Date(1995, 1, 2, 0, 0, 0, 0, time.UTC)
	user, err := svc.CreateUser(ctx, "Carol@Example.com", &birth, ptr("pa55word"))
	require.NoError(t, err)
	assert.Equal(t, "Carol@example.com", user.Email)
	assert.Nil(t, user.LastLogin)

	_, err = svc.Authenticate(ctx, "Carol@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	authed, err := svc.Authenticate(ctx, "Carol@EXAMPLE.COM", "pa55word")
	require.NoError(t, err)
	require.NotNil(t, authed.LastLogin)

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	require.NotNil(t, stored.BirthDate)
	assert.Equal(t, "1995-01-02", stored.BirthDate.Format(time.DateOnly))

	// the local part keeps its case
	_, err = svc.Authenticate(ctx, "carol@example.com", "pa55word")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "Carol@example.com", "pa55word")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountFlow_UnusablePassword(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	user, err := svc.CreateUser(ctx, "svc@example.com", nil, nil)
	require.NoError(t, err)

	ok, err := svc.CheckPassword(ctx, user, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Authenticate(ctx, "svc@example.com", user.Password)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SetPassword(ctx, user.ID, "now-usable")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "svc@example.com", "now-usable")
	require.NoError(t, err)

	_, err = svc.SetUnusablePassword(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "svc@example.com", "now-usable")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SetPassword(ctx, user.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAccountFlow_DuplicateEmailAfterNormalization(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	_, err := svc.CreateUser(ctx, "dave@example.com", nil, nil)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "dave@EXAMPLE.com", nil, nil)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	_, err = svc.CreateSuperuser(ctx, " dave@Example.Com ", nil, "pw")
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].IsAdmin)
}

func TestAccountFlow_Superuser(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	root, err := svc.CreateSuperuser(ctx, "root@example.com", nil, "toor")
	require.NoError(t, err)

	stored, err := svc.GetUserByEmail(ctx, "root@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, root.ID, stored.ID)
	assert.True(t, stored.IsAdmin)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.IsStaff())
	assert.True(t, stored.HasPermission("deploy.any"))
	assert.True(t, stored.HasModulePermission("servers"))

	ok, err := svc.CheckPassword(ctx, stored, "toor")
	require.NoError(t, err)
	assert.True(t, ok)

	demoted, err := svc.SetAdmin(ctx, root.ID, false)
	require.NoError(t, err)
	assert.False(t, demoted.IsStaff())
}

func TestAccountFlow_HashUpgradeOnLogin(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	weak := NewAccountService(store, newTestPasswords(t, password.PBKDF2Algorithm, 500), logger.NewNop())
	user, err := weak.CreateUser(ctx, "erin@example.com", nil, ptr("hunter2"))
	require.NoError(t, err)
	assert.Contains(t, user.Password, "$500$")

	strong := NewAccountService(store, newTestPasswords(t, password.PBKDF2Algorithm, testIterations), logger.NewNop())
	_, err = strong.Authenticate(ctx, "erin@example.com", "hunter2")
	require.NoError(t, err)

	stored, err := strong.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Password, "$1000$")

	switched := NewAccountService(store, newTestPasswords(t, password.BcryptSHA256Algorithm, testIterations), logger.NewNop())
	_, err = switched.Authenticate(ctx, "erin@example.com", "hunter2")
	require.NoError(t, err)

	stored, err = switched.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Password, password.BcryptSHA256Algorithm+"$"))

	// a failed attempt leaves the hash alone
	_, err = switched.Authenticate(ctx, "erin@example.com", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	again, err := switched.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Password, again.Password)
}

func TestAccountFlow_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t)

	user, err := svc.CreateUser(ctx, "frank@example.com", nil, nil)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{
		FirstName:  "Frank",
		LastName:   "Ocean",
		SlackToken: ptr("xoxp-123"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Frank", updated.FirstName)

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ocean", stored.LastName)
	require.NotNil(t, stored.SlackToken)
	assert.Equal(t, "xoxp-123", *stored.SlackToken)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{FirstName: strings.Repeat("x", domain.MaxProfileLength+1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProfile(ctx, 9999, ProfileUpdate{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
