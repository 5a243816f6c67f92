package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniexam/exam-scheduler-api/internal/models"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

func TestLoginIssuesValidToken(t *testing.T) {
	service, repo := newAuthFixture(t)
	repo.byEmail["coordinator@uni.edu"] = authUserFixture(t, "coordinator@uni.edu", "s3cretpass", true)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "coordinator@uni.edu",
		Password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "coordinator@uni.edu", resp.User.Email)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleCoordinator, claims.Role)
	assert.Equal(t, "exam-scheduler", claims.Issuer)
}

func TestLoginWrongPassword(t *testing.T) {
	service, repo := newAuthFixture(t)
	repo.byEmail["coordinator@uni.edu"] = authUserFixture(t, "coordinator@uni.edu", "s3cretpass", true)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "coordinator@uni.edu",
		Password: "wrong-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	service, _ := newAuthFixture(t)
	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@uni.edu",
		Password: "whatever1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	service, repo := newAuthFixture(t)
	repo.byEmail["old@uni.edu"] = authUserFixture(t, "old@uni.edu", "s3cretpass", false)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "old@uni.edu",
		Password: "s3cretpass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	service, repo := newAuthFixture(t)
	repo.byEmail["coordinator@uni.edu"] = authUserFixture(t, "coordinator@uni.edu", "s3cretpass", true)
	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "coordinator@uni.edu",
		Password: "s3cretpass",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{Secret: "another-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePassword(t *testing.T) {
	service, repo := newAuthFixture(t)
	user := authUserFixture(t, "coordinator@uni.edu", "s3cretpass", true)
	repo.byID["u1"] = user

	err := service.ChangePassword(context.Background(), "u1", "s3cretpass", "brand-new-pass")
	require.NoError(t, err)
	require.NotEmpty(t, repo.updatedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedHash), []byte("brand-new-pass")))

	err = service.ChangePassword(context.Background(), "u1", "not-the-old-one", "brand-new-pass")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = service.ChangePassword(context.Background(), "u1", "s3cretpass", "short")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

func newAuthFixture(t *testing.T) (*AuthService, *authUserRepoStub) {
	t.Helper()
	repo := &authUserRepoStub{
		byEmail: map[string]*models.User{},
		byID:    map[string]*models.User{},
	}
	service := NewAuthService(repo, nil, nil, AuthConfig{
		Secret: "unit-test-secret",
		Expiry: time.Hour,
		Issuer: "exam-scheduler",
	})
	return service, repo
}

func authUserFixture(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        email,
		FullName:     "Exam Coordinator",
		Role:         models.RoleCoordinator,
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

type authUserRepoStub struct {
	byEmail     map[string]*models.User
	byID        map[string]*models.User
	updatedHash string
}

func (s *authUserRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authUserRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authUserRepoStub) UpdatePassword(_ context.Context, _, passwordHash string, _ time.Time) error {
	s.updatedHash = passwordHash
	return nil
}
