package service

import (
	"context"
	"fmt"
	"time"

	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	accountRepo ports.AccountRepository
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(accountRepo ports.AccountRepository, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{accountRepo: accountRepo, log: log}
}

// GetBalance returns the user's current token balance. A restriction whose
// window has passed is cleared lazily on the way through.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return 0, apperror.ErrAccountNotFound()
	}

	if account.IsRestricted && account.RestrictionExpired(time.Now().UTC()) {
		if _, err := s.accountRepo.ClearExpiredRestriction(ctx, userID); err != nil {
			return 0, apperror.InternalError(fmt.Errorf("clear restriction: %w", err))
		}
	}
	return account.TokenBalance, nil
}

// History returns the user's most recent ledger entries.
func (s *WalletServiceImpl) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.accountRepo.ListLedgerEntries(ctx, userID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, nil
}
