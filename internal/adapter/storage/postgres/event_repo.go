package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const eventColumns = `external_id, source, user_id, amount, status, failure_reason, created_at, updated_at`

// EventRepo implements ports.EventRepository. The PRIMARY KEY on external_id
// is the deduplication mechanism: concurrent duplicate submissions race on the
// insert and exactly one wins.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func scanEvent(row pgx.Row) (*domain.ExternalEventRecord, error) {
	e := &domain.ExternalEventRecord{}
	err := row.Scan(
		&e.ExternalID, &e.Source, &e.UserID, &e.Amount,
		&e.Status, &e.FailureReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Begin inserts a pending record for the external id, or returns the existing
// record when the id was seen before. Never check-then-insert: the conflict
// clause carries the uniqueness guarantee.
func (r *EventRepo) Begin(ctx context.Context, record *domain.ExternalEventRecord) (*domain.ExternalEventRecord, bool, error) {
	now := time.Now().UTC()
	query := `INSERT INTO external_events (external_id, source, user_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + eventColumns

	created, err := scanEvent(r.pool.QueryRow(ctx, query,
		record.ExternalID, record.Source, record.UserID, record.Amount,
		domain.EventStatusPending, now,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("begin event: %w", err)
	}

	existing, err := r.Get(ctx, record.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("begin event: conflicting record vanished for %s", record.ExternalID)
	}
	return existing, false, nil
}

// Get fetches an event record by external id.
func (r *EventRepo) Get(ctx context.Context, externalID string) (*domain.ExternalEventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM external_events WHERE external_id = $1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Complete transitions pending -> completed within the credit transaction.
// The status predicate makes concurrent replays of the same pending event
// serialize on the row: the second transaction matches no rows, rolls back,
// and the credit is applied exactly once.
func (r *EventRepo) Complete(ctx context.Context, tx pgx.Tx, externalID string) error {
	query := `UPDATE external_events SET status = $1, updated_at = NOW()
		WHERE external_id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, domain.EventStatusCompleted, externalID, domain.EventStatusPending)
	if err != nil {
		return fmt.Errorf("complete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotPending
	}
	return nil
}

// Fail transitions pending -> failed with a reason.
func (r *EventRepo) Fail(ctx context.Context, externalID string, reason string) error {
	query := `UPDATE external_events SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE external_id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, domain.EventStatusFailed, reason, externalID, domain.EventStatusPending)
	if err != nil {
		return fmt.Errorf("fail event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotPending
	}
	return nil
}
