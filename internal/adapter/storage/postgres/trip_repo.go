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

const tripColumns = `id, rider_id, driver_id, origin, destination, proposed_price, status, cancellation_reason, started_at, created_at, updated_at`

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	pool Pool
}

// NewTripRepo creates a new TripRepo.
func NewTripRepo(pool Pool) *TripRepo {
	return &TripRepo{pool: pool}
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	t := &domain.Trip{}
	err := row.Scan(
		&t.ID, &t.RiderID, &t.DriverID, &t.Origin, &t.Destination,
		&t.ProposedPrice, &t.Status, &t.CancellationReason,
		&t.StartedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new trip row.
func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	query := `INSERT INTO trips (id, rider_id, driver_id, origin, destination, proposed_price, status, cancellation_reason, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		trip.ID, trip.RiderID, trip.DriverID, trip.Origin, trip.Destination,
		trip.ProposedPrice, trip.Status, trip.CancellationReason,
		trip.StartedAt, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// GetByID fetches a trip (non-locking read).
func (r *TripRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	t, err := scanTrip(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate fetches a trip with a pessimistic row lock.
// MUST be called within a transaction.
func (r *TripRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	t, err := scanTrip(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get trip for update: %w", err)
	}
	return t, nil
}

// AssignDriver moves a pending trip to accepted. The status predicate keeps
// two drivers from accepting the same trip.
func (r *TripRepo) AssignDriver(ctx context.Context, tx pgx.Tx, id uuid.UUID, driverID uuid.UUID) error {
	query := `UPDATE trips SET driver_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, driverID, domain.TripStatusAccepted, id, domain.TripStatusPending)
	if err != nil {
		return fmt.Errorf("assign driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotPending
	}
	return nil
}

// MarkStarted moves an accepted trip to started within the spend transaction.
func (r *TripRepo) MarkStarted(ctx context.Context, tx pgx.Tx, id uuid.UUID, startedAt time.Time) error {
	query := `UPDATE trips SET status = $1, started_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, domain.TripStatusStarted, startedAt, id, domain.TripStatusAccepted)
	if err != nil {
		return fmt.Errorf("mark trip started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotAccepted
	}
	return nil
}

// UpdateStatus sets a terminal or intermediate status with an optional reason.
func (r *TripRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TripStatus, reason *string) error {
	query := `UPDATE trips SET status = $1, cancellation_reason = $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, reason, id)
	if err != nil {
		return fmt.Errorf("update trip status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// SetProposedPrice updates the negotiated price on a pending trip.
func (r *TripRepo) SetProposedPrice(ctx context.Context, id uuid.UUID, price int64) (*domain.Trip, error) {
	query := `UPDATE trips SET proposed_price = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + tripColumns

	t, err := scanTrip(r.pool.QueryRow(ctx, query, price, id, domain.TripStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTripNotPending
		}
		return nil, fmt.Errorf("set proposed price: %w", err)
	}
	return t, nil
}

// ListByUser returns trips where the user is the rider or assigned driver,
// newest first.
func (r *TripRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE rider_id = $1 OR driver_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(
			&t.ID, &t.RiderID, &t.DriverID, &t.Origin, &t.Destination,
			&t.ProposedPrice, &t.Status, &t.CancellationReason,
			&t.StartedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
