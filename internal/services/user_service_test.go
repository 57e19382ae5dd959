package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cypher-service/internal/domain"
	"cypher-service/internal/mocks"
	"cypher-service/internal/models"
	"cypher-service/internal/security"
)

func newUserService() (*UserService, *mocks.UserRepositoryMock, *mocks.NotificationRepositoryMock) {
	userRepo := new(mocks.UserRepositoryMock)
	notifRepo := new(mocks.NotificationRepositoryMock)
	tokens := security.NewTokenManager("test-secret", time.Hour)
	return NewUserService(userRepo, notifRepo, tokens), userRepo, notifRepo
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, userRepo, _ := newUserService()

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.CypherTag == "neo" && u.Role == models.RoleUser && u.PasswordHash != "" && u.PasswordHash != "s3cretpass"
	})).Return(nil)
	userRepo.On("GetByID", mock.Anything, mock.Anything).Return(models.User{ID: "user-1", CypherTag: "neo"}, nil)

	user, token, err := svc.Register(context.Background(), "neo", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "neo", user.CypherTag)
	assert.NotEmpty(t, token)
}

func TestRegisterDuplicateTagConflicts(t *testing.T) {
	svc, userRepo, _ := newUserService()
	userRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	_, _, err := svc.Register(context.Background(), "neo", "s3cretpass")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterShortPasswordRejected(t *testing.T) {
	svc, userRepo, _ := newUserService()

	_, _, err := svc.Register(context.Background(), "neo", "short")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	svc, userRepo, _ := newUserService()

	hash, err := security.HashPassword("rightpass")
	require.NoError(t, err)
	userRepo.On("GetByTag", mock.Anything, "neo").Return(models.User{ID: "user-1", PasswordHash: hash}, nil)

	_, _, err = svc.Login(context.Background(), "neo", "wrongpass")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginUnknownTagUnauthorized(t *testing.T) {
	svc, userRepo, _ := newUserService()
	userRepo.On("GetByTag", mock.Anything, "ghost").Return(models.User{}, domain.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "ghost", "whatever1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginMarksOnline(t *testing.T) {
	svc, userRepo, _ := newUserService()

	hash, err := security.HashPassword("rightpass")
	require.NoError(t, err)
	userRepo.On("GetByTag", mock.Anything, "neo").Return(models.User{ID: "user-1", PasswordHash: hash}, nil)
	userRepo.On("SetOnline", mock.Anything, "user-1", true).Return(nil)

	user, token, err := svc.Login(context.Background(), "neo", "rightpass")
	require.NoError(t, err)
	assert.True(t, user.Online)
	assert.NotEmpty(t, token)
	userRepo.AssertExpectations(t)
}

func TestSearchRequiresPrefix(t *testing.T) {
	svc, _, _ := newUserService()
	_, err := svc.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestPromoteEmployeeSetsRole(t *testing.T) {
	svc, userRepo, _ := newUserService()

	userRepo.On("SetRole", mock.Anything, "user-1", models.RoleEmployee).Return(nil)
	userRepo.On("GetByID", mock.Anything, "user-1").Return(
		models.User{ID: "user-1", CypherTag: "neo", Role: models.RoleEmployee}, nil)

	user, err := svc.PromoteEmployee(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, user.Role)
	userRepo.AssertExpectations(t)
}

func TestPromoteEmployeeUnknownUser(t *testing.T) {
	svc, userRepo, _ := newUserService()
	userRepo.On("SetRole", mock.Anything, "ghost", models.RoleEmployee).Return(domain.ErrNotFound)

	_, err := svc.PromoteEmployee(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantFreeCreationsRejectsNegative(t *testing.T) {
	svc, userRepo, _ := newUserService()
	err := svc.GrantFreeCreations(context.Background(), "user-1", -1, 0)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	userRepo.AssertNotCalled(t, "SetGrants", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
