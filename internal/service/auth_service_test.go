package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

func newAuthFixture() (*AuthService, *memUserRepo) {
	users := newMemUserRepo()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4, // cheapest valid cost, tests only
	}, users)
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "hunter22", domain.RoleCustomer)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
	assert.Equal(t, domain.RoleCustomer, claims.Role)

	_, _, _, err = svc.Login(ctx, "jamie@example.com", "hunter22")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "jamie@example.com", "wrong")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "hunter22", domain.RoleCustomer)
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "Other", "jamie@example.com", "hunter23", domain.RoleCustomer)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestChangePassword(t *testing.T) {
	svc, users := newAuthFixture()
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Jamie", "jamie@example.com", "hunter22", domain.RoleCustomer)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong", "newpassword1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	err = svc.ChangePassword(ctx, user.ID, "hunter22", "short")
	assert.True(t, apperrors.IsValidationError(err))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "hunter22", "newpassword1"))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "newpassword1"))

	_, _, _, err = svc.Login(ctx, "jamie@example.com", "hunter22")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}
