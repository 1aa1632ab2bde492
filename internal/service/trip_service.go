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
)

// TripServiceImpl implements ports.TripService.
type TripServiceImpl struct {
	tripRepo    ports.TripRepository
	accountRepo ports.AccountRepository
	notifier    ports.EventNotifier
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewTripService creates a new TripServiceImpl.
func NewTripService(
	tripRepo ports.TripRepository,
	accountRepo ports.AccountRepository,
	notifier ports.EventNotifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TripServiceImpl {
	return &TripServiceImpl{
		tripRepo:    tripRepo,
		accountRepo: accountRepo,
		notifier:    notifier,
		transactor:  transactor,
		log:         log,
	}
}

// Create registers a new pending trip. Restricted riders are rejected, but a
// restriction whose window already passed is cleared on the spot.
func (s *TripServiceImpl) Create(ctx context.Context, req ports.CreateTripRequest) (*domain.Trip, error) {
	if req.Origin == "" || req.Destination == "" {
		return nil, apperror.Validation("origin and destination are required")
	}

	account, err := s.accountRepo.GetByUserID(ctx, req.RiderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	now := time.Now().UTC()
	if account.IsRestricted {
		if !account.RestrictionExpired(now) {
			return nil, apperror.ErrUserRestricted()
		}
		if _, err := s.accountRepo.ClearExpiredRestriction(ctx, req.RiderID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("clear restriction: %w", err))
		}
	}

	trip := &domain.Trip{
		ID:            uuid.New(),
		RiderID:       req.RiderID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		ProposedPrice: req.ProposedPrice,
		Status:        domain.TripStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create trip: %w", err))
	}

	s.log.Info().
		Str("trip_id", trip.ID.String()).
		Str("rider_id", req.RiderID.String()).
		Msg("trip created")
	return trip, nil
}

// Accept assigns a driver to a pending trip. Accepting is free: the token
// spend waits for Start, so a rider who never shows costs the driver nothing.
func (s *TripServiceImpl) Accept(ctx context.Context, tripID, driverID uuid.UUID) (*domain.Trip, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	trip, err := s.tripRepo.GetByIDForUpdate(ctx, dbTx, tripID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock trip: %w", err))
	}
	if trip == nil {
		return nil, apperror.ErrTripNotFound()
	}
	if !trip.CanAccept() {
		return nil, apperror.ErrTripNotAcceptable(string(trip.Status))
	}

	if err := s.tripRepo.AssignDriver(ctx, dbTx, tripID, driverID); err != nil {
		if errors.Is(err, domain.ErrTripNotPending) {
			return nil, apperror.ErrTripNotAcceptable(string(trip.Status))
		}
		return nil, apperror.InternalError(fmt.Errorf("assign driver: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	trip.DriverID = &driverID
	trip.Status = domain.TripStatusAccepted

	s.log.Info().
		Str("trip_id", tripID.String()).
		Str("driver_id", driverID.String()).
		Msg("trip accepted")
	return trip, nil
}

// Start moves an accepted trip to started and charges the driver one token.
// Both writes commit together: a failed charge leaves the trip accepted, and
// a trip that cannot start never costs a token.
func (s *TripServiceImpl) Start(ctx context.Context, tripID, driverID uuid.UUID) (*domain.Trip, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	trip, err := s.tripRepo.GetByIDForUpdate(ctx, dbTx, tripID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock trip: %w", err))
	}
	if trip == nil {
		return nil, apperror.ErrTripNotFound()
	}
	if trip.Status != domain.TripStatusAccepted {
		return nil, apperror.ErrTripNotStartable(string(trip.Status))
	}
	if trip.DriverID == nil || *trip.DriverID != driverID {
		return nil, apperror.ErrDriverMismatch()
	}

	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, driverID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if account.TokenBalance < domain.TripStartTokenCost {
		return nil, apperror.ErrInsufficientTokens(account.TokenBalance)
	}

	if _, err := s.accountRepo.AdjustBalance(ctx, dbTx, driverID, -domain.TripStartTokenCost, domain.ReasonTripStartSpend, tripID.String()); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, apperror.ErrInsufficientTokens(account.TokenBalance)
		}
		return nil, apperror.InternalError(fmt.Errorf("charge trip start: %w", err))
	}

	startedAt := time.Now().UTC()
	if err := s.tripRepo.MarkStarted(ctx, dbTx, tripID, startedAt); err != nil {
		if errors.Is(err, domain.ErrTripNotAccepted) {
			return nil, apperror.ErrTripNotStartable(string(trip.Status))
		}
		return nil, apperror.InternalError(fmt.Errorf("mark started: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	trip.Status = domain.TripStatusStarted
	trip.StartedAt = &startedAt

	s.publishTripStarted(ctx, trip)

	s.log.Info().
		Str("trip_id", tripID.String()).
		Str("driver_id", driverID.String()).
		Int64("tokens_spent", domain.TripStartTokenCost).
		Msg("trip started")
	return trip, nil
}

// ProposePrice updates the negotiated price on a pending trip.
func (s *TripServiceImpl) ProposePrice(ctx context.Context, tripID, userID uuid.UUID, price int64) (*domain.Trip, error) {
	if price <= 0 {
		return nil, apperror.Validation("price must be positive")
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load trip: %w", err))
	}
	if trip == nil {
		return nil, apperror.ErrTripNotFound()
	}
	if !trip.HasParticipant(userID) {
		return nil, apperror.ErrNotAuthorized()
	}

	updated, err := s.tripRepo.SetProposedPrice(ctx, tripID, price)
	if err != nil {
		if errors.Is(err, domain.ErrTripNotPending) {
			return nil, apperror.ErrTripNotModifiable()
		}
		return nil, apperror.InternalError(fmt.Errorf("set price: %w", err))
	}
	return updated, nil
}

// ListByUser returns the user's trips as rider or driver.
func (s *TripServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	trips, err := s.tripRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list trips: %w", err))
	}
	return trips, nil
}

func (s *TripServiceImpl) publishTripStarted(ctx context.Context, trip *domain.Trip) {
	err := s.notifier.Publish(ctx, ports.Notification{
		Kind:        "trip_started",
		UserID:      trip.RiderID,
		ReferenceID: trip.ID.String(),
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("trip_id", trip.ID.String()).Msg("notification publish failed")
	}
}
