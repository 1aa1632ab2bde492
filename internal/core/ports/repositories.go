package ports

import (
	"context"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository is the ledger store: it exclusively owns Account and
// LedgerEntry persistence. Every balance change funnels through AdjustBalance
// or DeductUpTo; no caller reads a balance, computes a new value in memory,
// and writes it back.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	// GetForUpdate locks the account row. MUST be called within a transaction.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error)
	// AdjustBalance applies delta and writes a LedgerEntry atomically. Returns
	// domain.ErrInsufficientBalance when delta < 0 would push the balance
	// negative, domain.ErrAccountNotFound for unknown users.
	AdjustBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64, reason domain.LedgerReason, referenceID string) (*domain.Account, error)
	// DeductUpTo deducts min(max, balance) and records the actual amount.
	// Used by the driver no-show sanction, which floors at zero instead of
	// rejecting.
	DeductUpTo(ctx context.Context, tx pgx.Tx, userID uuid.UUID, max int64, reason domain.LedgerReason, referenceID string) (int64, *domain.Account, error)
	// RecordRiderNoShow sets the incremented no-show count and restriction
	// window computed by the penalty engine. MUST be called within the same
	// transaction that locked the account.
	RecordRiderNoShow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, noShowCount int, lastNoShowAt time.Time, restricted bool, until *time.Time) (*domain.Account, error)
	// ClearExpiredRestriction lazily drops a restriction whose window has
	// passed. Returns true if a flag was cleared.
	ClearExpiredRestriction(ctx context.Context, userID uuid.UUID) (bool, error)
	ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// EventRepository is the idempotency guard over external financial events.
// Uniqueness of ExternalID is enforced by the storage layer, so concurrent
// duplicate submissions race safely.
type EventRepository interface {
	// Begin inserts a pending record, or returns the existing one when the
	// external id was seen before (created == false).
	Begin(ctx context.Context, record *domain.ExternalEventRecord) (*domain.ExternalEventRecord, bool, error)
	Get(ctx context.Context, externalID string) (*domain.ExternalEventRecord, error)
	// Complete transitions pending -> completed inside the credit transaction.
	// Returns domain.ErrEventNotPending if the event already reached a
	// terminal state, and the caller must roll back and report a replay.
	Complete(ctx context.Context, tx pgx.Tx, externalID string) error
	// Fail transitions pending -> failed with a reason.
	Fail(ctx context.Context, externalID string, reason string) error
}

// TripRepository persists the trip lifecycle. Status transitions that pair
// with ledger writes take a pgx.Tx so both commit or neither does.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	// GetByIDForUpdate locks the trip row. MUST be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Trip, error)
	AssignDriver(ctx context.Context, tx pgx.Tx, id uuid.UUID, driverID uuid.UUID) error
	MarkStarted(ctx context.Context, tx pgx.Tx, id uuid.UUID, startedAt time.Time) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TripStatus, reason *string) error
	SetProposedPrice(ctx context.Context, id uuid.UUID, price int64) (*domain.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
}

// NoShowRepository exclusively owns no-show reports and penalty records.
type NoShowRepository interface {
	CreateReport(ctx context.Context, tx pgx.Tx, report *domain.NoShowReport) error
	CreatePenalty(ctx context.Context, tx pgx.Tx, penalty *domain.NoShowPenalty) error
	ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]domain.NoShowReport, error)
	ListActivePenalties(ctx context.Context, userID uuid.UUID) ([]domain.NoShowPenalty, error)
	CountActivePenalties(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeactivateExpired flips is_active off for penalties whose window passed.
	DeactivateExpired(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UserRepository persists authentication identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
