package service

import (
	"context"
	"testing"
	"time"

	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc         *AuthServiceImpl
	userRepo    *mocks.MockUserRepository
	accountRepo *mocks.MockAccountRepository
	hashSvc     *mocks.MockHashService
	tokenSvc    *mocks.MockTokenService
	ctrl        *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		userRepo:    mocks.NewMockUserRepository(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		tokenSvc:    mocks.NewMockTokenService(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewAuthService(d.userRepo, d.accountRepo, d.hashSvc, d.tokenSvc, zerolog.Nop())
	return d
}

// ==================== Register Tests ====================

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.hashSvc.EXPECT().Hash("s3cretpass").Return("argon2_hash", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, account *domain.Account) error {
			assert.Zero(t, account.TokenBalance)
			assert.False(t, account.IsRestricted)
			return nil
		})

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Phone:    "+237650000001",
		Password: "s3cretpass",
		Role:     domain.RoleDriver,
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleDriver, user.Role)
	assert.Equal(t, "argon2_hash", user.PasswordHash)
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	user, err := d.svc.Register(context.Background(), ports.RegisterRequest{
		Phone:    "+237650000001",
		Password: "short",
		Role:     domain.RoleRider,
	})
	assert.Nil(t, user)
	assertAppError(t, err, "VAL_001")
}

func TestAuthService_Register_UnknownRole(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	user, err := d.svc.Register(context.Background(), ports.RegisterRequest{
		Phone:    "+237650000001",
		Password: "s3cretpass",
		Role:     domain.Role("admin"),
	})
	assert.Nil(t, user)
	assertAppError(t, err, "VAL_001")
}

func TestAuthService_Register_PhoneTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.hashSvc.EXPECT().Hash("s3cretpass").Return("argon2_hash", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(domain.ErrPhoneExists)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Phone:    "+237650000001",
		Password: "s3cretpass",
		Role:     domain.RoleRider,
	})
	assert.Nil(t, user)
	assertAppError(t, err, "AUTH_002")
}

// ==================== Login Tests ====================

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	expiry := time.Now().Add(time.Hour)

	d.userRepo.EXPECT().GetByPhone(ctx, "+237650000001").Return(&domain.User{
		ID: userID, Phone: "+237650000001", PasswordHash: "argon2_hash", Role: domain.RoleRider,
	}, nil)
	d.hashSvc.EXPECT().Verify("s3cretpass", "argon2_hash").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(userID, domain.RoleRider).Return("jwt_token", expiry, nil)

	token, expiresAt, err := d.svc.Login(ctx, "+237650000001", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token", token)
	assert.Equal(t, expiry, expiresAt)
}

func TestAuthService_Login_UnknownPhone(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByPhone(ctx, "+237650000009").Return(nil, nil)

	token, _, err := d.svc.Login(ctx, "+237650000009", "whatever")
	assert.Empty(t, token)
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByPhone(ctx, "+237650000001").Return(&domain.User{
		ID: uuid.New(), PasswordHash: "argon2_hash",
	}, nil)
	d.hashSvc.EXPECT().Verify("wrongpass", "argon2_hash").Return(false, nil)

	token, _, err := d.svc.Login(ctx, "+237650000001", "wrongpass")
	assert.Empty(t, token)
	assertAppError(t, err, "AUTH_001")
}
