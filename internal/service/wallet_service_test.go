package service

import (
	"context"
	"testing"
	"time"

	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupWalletService(t *testing.T) (*WalletServiceImpl, *mocks.MockAccountRepository, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	return NewWalletService(accountRepo, zerolog.Nop()), accountRepo, ctrl
}

func TestWalletService_GetBalance(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	accountRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Account{
		UserID: userID, TokenBalance: 42,
	}, nil)

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}

func TestWalletService_GetBalance_ClearsExpiredRestriction(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	past := time.Now().UTC().Add(-time.Hour)

	accountRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Account{
		UserID: userID, TokenBalance: 7, IsRestricted: true, RestrictionUntil: &past,
	}, nil)
	accountRepo.EXPECT().ClearExpiredRestriction(ctx, userID).Return(true, nil)

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
}

func TestWalletService_GetBalance_KeepsActiveRestriction(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	future := time.Now().UTC().Add(time.Hour)

	// No ClearExpiredRestriction expectation: the window has not passed.
	accountRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Account{
		UserID: userID, TokenBalance: 3, IsRestricted: true, RestrictionUntil: &future,
	}, nil)

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
}

func TestWalletService_GetBalance_AccountNotFound(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountRepo.EXPECT().GetByUserID(ctx, gomock.Any()).Return(nil, nil)

	_, err := svc.GetBalance(ctx, uuid.New())
	assertAppError(t, err, "LED_002")
}

func TestWalletService_History_DefaultLimit(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	accountRepo.EXPECT().ListLedgerEntries(ctx, userID, 50).Return([]domain.LedgerEntry{
		{ID: uuid.New(), UserID: userID, Delta: 10, Reason: domain.ReasonManualCredit},
		{ID: uuid.New(), UserID: userID, Delta: -1, Reason: domain.ReasonTripStartSpend},
	}, nil)

	entries, err := svc.History(ctx, userID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWalletService_History_CapsLimit(t *testing.T) {
	svc, accountRepo, ctrl := setupWalletService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	accountRepo.EXPECT().ListLedgerEntries(ctx, userID, 200).Return(nil, nil)

	_, err := svc.History(ctx, userID, 5000)
	require.NoError(t, err)
}
