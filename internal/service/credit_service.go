package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CreditServiceImpl implements ports.CreditService. Every external money
// event flows through the same three phases: claim the external id, decide
// the token amount, then apply balance and completion in one transaction.
type CreditServiceImpl struct {
	accountRepo ports.AccountRepository
	eventRepo   ports.EventRepository
	verifier    ports.DepositVerifier
	mmValidator ports.MobileMoneyValidator
	notifier    ports.EventNotifier
	transactor  ports.DBTransactor
	rates       domain.RateCard
	minConfirms uint64
	minDeposit  decimal.Decimal
	log         zerolog.Logger
}

// NewCreditService creates a new CreditServiceImpl.
func NewCreditService(
	accountRepo ports.AccountRepository,
	eventRepo ports.EventRepository,
	verifier ports.DepositVerifier,
	mmValidator ports.MobileMoneyValidator,
	notifier ports.EventNotifier,
	transactor ports.DBTransactor,
	rates domain.RateCard,
	minConfirms uint64,
	minDeposit decimal.Decimal,
	log zerolog.Logger,
) *CreditServiceImpl {
	return &CreditServiceImpl{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		verifier:    verifier,
		mmValidator: mmValidator,
		notifier:    notifier,
		transactor:  transactor,
		rates:       rates,
		minConfirms: minConfirms,
		minDeposit:  minDeposit,
		log:         log,
	}
}

// Credit applies an external financial event to the user's ledger exactly
// once. A deferred deposit leaves its event pending so the same hash can be
// resubmitted once the chain catches up.
func (s *CreditServiceImpl) Credit(ctx context.Context, userID uuid.UUID, src ports.CreditSource) (*ports.CreditResult, error) {
	externalID, amount, err := s.identify(userID, src)
	if err != nil {
		return nil, err
	}

	record, created, err := s.eventRepo.Begin(ctx, &domain.ExternalEventRecord{
		ExternalID: externalID,
		Source:     src.EventSource(),
		UserID:     userID,
		Amount:     amount,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim event: %w", err))
	}
	if !created {
		// Only the original submitter may resume a pending event, and only
		// while it is still pending.
		if record.UserID != userID || record.Status != domain.EventStatusPending {
			return nil, apperror.ErrAlreadyProcessed()
		}
	}

	tokens, err := s.decideTokens(ctx, userID, src, amount)
	if err != nil {
		return nil, err
	}
	if tokens <= 0 {
		s.failEvent(ctx, externalID, "amount converts to zero tokens")
		return nil, apperror.ErrInvalidAmount()
	}

	balance, err := s.apply(ctx, userID, externalID, tokens, src.EventSource().LedgerReason())
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "tokens_credited", userID, externalID, tokens)

	s.log.Info().
		Str("external_id", externalID).
		Str("user_id", userID.String()).
		Str("source", string(src.EventSource())).
		Int64("tokens", tokens).
		Msg("tokens credited")

	return &ports.CreditResult{
		ExternalID:     externalID,
		TokensCredited: tokens,
		Balance:        balance,
	}, nil
}

// FailCardPayment records the terminal outcome of a failed or canceled card
// payment so later deliveries of the same intent are recognized as replays.
func (s *CreditServiceImpl) FailCardPayment(ctx context.Context, paymentIntentID string, reason string) error {
	_, _, err := s.eventRepo.Begin(ctx, &domain.ExternalEventRecord{
		ExternalID: paymentIntentID,
		Source:     domain.SourceCardPayment,
		Amount:     decimal.Zero,
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("claim event: %w", err))
	}

	if err := s.eventRepo.Fail(ctx, paymentIntentID, reason); err != nil {
		if errors.Is(err, domain.ErrEventNotPending) {
			return apperror.ErrAlreadyProcessed()
		}
		return apperror.InternalError(fmt.Errorf("fail event: %w", err))
	}

	s.log.Info().
		Str("external_id", paymentIntentID).
		Str("reason", reason).
		Msg("card payment marked failed")
	return nil
}

// identify derives the deduplication id and the recorded amount for a source.
func (s *CreditServiceImpl) identify(userID uuid.UUID, src ports.CreditSource) (string, decimal.Decimal, error) {
	switch v := src.(type) {
	case ports.ManualCodeSource:
		if !domain.ValidConfirmationCode(v.Code) {
			return "", decimal.Zero, apperror.ErrInvalidConfirmationCode()
		}
		if v.AmountMinor <= 0 {
			return "", decimal.Zero, apperror.ErrInvalidAmount()
		}
		return domain.ManualCodeEventID(userID, v.Code), decimal.NewFromInt(v.AmountMinor), nil
	case ports.DepositSource:
		if !domain.ValidTxHash(v.TxHash) {
			return "", decimal.Zero, apperror.ErrInvalidTxHash()
		}
		// Amount is unknown until the chain is consulted.
		return v.TxHash, decimal.Zero, nil
	case ports.CardPaymentSource:
		if v.PaymentIntentID == "" {
			return "", decimal.Zero, apperror.Validation("payment intent id is required")
		}
		if v.AmountMinor <= 0 {
			return "", decimal.Zero, apperror.ErrInvalidAmount()
		}
		return v.PaymentIntentID, decimal.NewFromInt(v.AmountMinor), nil
	default:
		return "", decimal.Zero, apperror.InternalError(fmt.Errorf("unknown credit source %T", src))
	}
}

// decideTokens runs per-source validation and converts to whole tokens.
func (s *CreditServiceImpl) decideTokens(ctx context.Context, userID uuid.UUID, src ports.CreditSource, amount decimal.Decimal) (int64, error) {
	switch v := src.(type) {
	case ports.ManualCodeSource:
		ok, err := s.mmValidator.Validate(ctx, userID, v.Code, v.AmountMinor)
		if err != nil {
			return 0, apperror.InternalError(fmt.Errorf("validate code: %w", err))
		}
		if !ok {
			s.failEvent(ctx, domain.ManualCodeEventID(userID, v.Code), "confirmation code rejected")
			return 0, apperror.ErrVerificationFailed("confirmation code rejected")
		}
		return s.rates.TokensFromFiat(v.AmountMinor), nil

	case ports.DepositSource:
		return s.decideDepositTokens(ctx, v.TxHash)

	case ports.CardPaymentSource:
		return s.rates.TokensFromCard(v.AmountMinor), nil

	default:
		return 0, apperror.InternalError(fmt.Errorf("unknown credit source %T", src))
	}
}

// decideDepositTokens consults the chain and applies deposit policy. Below
// the confirmation threshold or the minimum amount nothing is committed and
// the event stays pending, so a later retry of the same hash picks up where
// this left off.
func (s *CreditServiceImpl) decideDepositTokens(ctx context.Context, txHash string) (int64, error) {
	deposit, err := s.verifier.Verify(ctx, txHash)
	if err != nil {
		if errors.Is(err, domain.ErrDepositNotFound) {
			s.failEvent(ctx, txHash, "transaction not found on chain")
			return 0, apperror.ErrVerificationFailed("transaction not found on chain")
		}
		return 0, apperror.InternalError(fmt.Errorf("verify deposit: %w", err))
	}

	if !deposit.IsValid {
		s.failEvent(ctx, txHash, "no valid treasury transfer")
		return 0, apperror.ErrVerificationFailed("no valid treasury transfer in transaction")
	}
	// Confirmations are gated before the amount: the amount reading is not
	// final until the transfer has settled.
	if deposit.Confirmations < s.minConfirms {
		s.log.Info().
			Str("tx_hash", txHash).
			Uint64("confirmations", deposit.Confirmations).
			Uint64("required", s.minConfirms).
			Msg("deposit deferred pending confirmations")
		return 0, apperror.ErrDepositDeferred(fmt.Sprintf(
			"deposit has %d of %d required confirmations", deposit.Confirmations, s.minConfirms))
	}
	if deposit.Amount.Cmp(s.minDeposit) < 0 {
		// Rejected without marking the event failed. The pending row keeps
		// the hash resubmittable, as on the deferral path.
		return 0, apperror.ErrVerificationFailed(fmt.Sprintf(
			"deposit %s below minimum %s", deposit.Amount, s.minDeposit))
	}

	return s.rates.TokensFromDeposit(deposit.Amount), nil
}

// apply commits the balance adjustment and the event completion atomically.
func (s *CreditServiceImpl) apply(ctx context.Context, userID uuid.UUID, externalID string, tokens int64, reason domain.LedgerReason) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.AdjustBalance(ctx, dbTx, userID, tokens, reason, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return 0, apperror.ErrAccountNotFound()
		}
		return 0, apperror.InternalError(fmt.Errorf("credit balance: %w", err))
	}

	if err := s.eventRepo.Complete(ctx, dbTx, externalID); err != nil {
		if errors.Is(err, domain.ErrEventNotPending) {
			// A concurrent submission won the race; roll back our credit.
			return 0, apperror.ErrAlreadyProcessed()
		}
		return 0, apperror.InternalError(fmt.Errorf("complete event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return account.TokenBalance, nil
}

// failEvent marks the event failed, best effort. A pending row left behind on
// error is harmless: the id can be resubmitted and will fail the same way.
func (s *CreditServiceImpl) failEvent(ctx context.Context, externalID string, reason string) {
	if err := s.eventRepo.Fail(ctx, externalID, reason); err != nil && !errors.Is(err, domain.ErrEventNotPending) {
		s.log.Warn().Err(err).Str("external_id", externalID).Msg("failed to mark event failed")
	}
}

func (s *CreditServiceImpl) notify(ctx context.Context, kind string, userID uuid.UUID, referenceID string, tokens int64) {
	err := s.notifier.Publish(ctx, ports.Notification{
		Kind:        kind,
		UserID:      userID,
		ReferenceID: referenceID,
		Tokens:      tokens,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("notification publish failed")
	}
}
