package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `user_id, token_balance, is_restricted, restriction_until, no_show_count, last_no_show_at, created_at, updated_at`

// AccountRepo implements ports.AccountRepository. It owns the accounts and
// ledger_entries tables; every balance change writes both in one transaction.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.UserID, &a.TokenBalance, &a.IsRestricted, &a.RestrictionUntil,
		&a.NoShowCount, &a.LastNoShowAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (user_id, token_balance, is_restricted, restriction_until, no_show_count, last_no_show_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		a.UserID, a.TokenBalance, a.IsRestricted, a.RestrictionUntil,
		a.NoShowCount, a.LastNoShowAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByUserID fetches an account (non-locking read).
func (r *AccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetForUpdate fetches an account with a pessimistic row lock.
// MUST be called within a transaction.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// AdjustBalance applies delta to the balance and writes the ledger entry in
// the caller's transaction. The negative-balance guard lives in the UPDATE
// predicate, so the read-check-write cycle is one atomic statement.
func (r *AccountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64, reason domain.LedgerReason, referenceID string) (*domain.Account, error) {
	query := `UPDATE accounts
		SET token_balance = token_balance + $1, updated_at = NOW()
		WHERE user_id = $2 AND token_balance + $1 >= 0
		RETURNING ` + accountColumns

	a, err := scanAccount(tx.QueryRow(ctx, query, delta, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyAdjustFailure(ctx, tx, userID)
		}
		return nil, fmt.Errorf("adjust balance: %w", err)
	}

	if err := r.insertLedgerEntry(ctx, tx, userID, delta, reason, referenceID); err != nil {
		return nil, err
	}
	return a, nil
}

// DeductUpTo deducts min(max, balance) under the row lock, recording the
// actual deducted amount. A zero deduction writes no ledger entry.
func (r *AccountRepo) DeductUpTo(ctx context.Context, tx pgx.Tx, userID uuid.UUID, max int64, reason domain.LedgerReason, referenceID string) (int64, *domain.Account, error) {
	locked, err := r.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, nil, err
	}
	if locked == nil {
		return 0, nil, domain.ErrAccountNotFound
	}

	deduct := max
	if locked.TokenBalance < deduct {
		deduct = locked.TokenBalance
	}
	if deduct <= 0 {
		return 0, locked, nil
	}

	a, err := r.AdjustBalance(ctx, tx, userID, -deduct, reason, referenceID)
	if err != nil {
		return 0, nil, err
	}
	return deduct, a, nil
}

// RecordRiderNoShow writes the incremented count and restriction window.
// MUST be called within the transaction that locked the account.
func (r *AccountRepo) RecordRiderNoShow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, noShowCount int, lastNoShowAt time.Time, restricted bool, until *time.Time) (*domain.Account, error) {
	query := `UPDATE accounts
		SET no_show_count = $1, last_no_show_at = $2, is_restricted = $3, restriction_until = $4, updated_at = NOW()
		WHERE user_id = $5
		RETURNING ` + accountColumns

	a, err := scanAccount(tx.QueryRow(ctx, query, noShowCount, lastNoShowAt, restricted, until, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("record rider no-show: %w", err)
	}
	return a, nil
}

// ClearExpiredRestriction lazily drops a restriction whose window has passed.
func (r *AccountRepo) ClearExpiredRestriction(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `UPDATE accounts
		SET is_restricted = FALSE, restriction_until = NULL, updated_at = NOW()
		WHERE user_id = $1 AND is_restricted = TRUE
		AND restriction_until IS NOT NULL AND restriction_until < NOW()`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("clear expired restriction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListLedgerEntries returns the most recent balance changes for a user.
func (r *AccountRepo) ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT id, user_id, delta, reason, reference_id, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *AccountRepo) insertLedgerEntry(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64, reason domain.LedgerReason, referenceID string) error {
	query := `INSERT INTO ledger_entries (id, user_id, delta, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, uuid.New(), userID, delta, reason, referenceID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// classifyAdjustFailure distinguishes a missing account from an insufficient
// balance after the guarded UPDATE matched no rows.
func (r *AccountRepo) classifyAdjustFailure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM accounts WHERE user_id = $1`, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("classify adjust failure: %w", err)
	}
	return domain.ErrInsufficientBalance
}
