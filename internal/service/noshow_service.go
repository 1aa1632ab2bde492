package service

import (
	"context"
	"fmt"
	"time"

	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const reportStatusConfirmed = "confirmed"

// NoShowServiceImpl implements ports.NoShowService. A confirmed report, the
// sanction it triggers, and the trip cancellation commit as one transaction:
// either the whole penalty lands or none of it does.
type NoShowServiceImpl struct {
	noShowRepo  ports.NoShowRepository
	accountRepo ports.AccountRepository
	tripRepo    ports.TripRepository
	notifier    ports.EventNotifier
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewNoShowService creates a new NoShowServiceImpl.
func NewNoShowService(
	noShowRepo ports.NoShowRepository,
	accountRepo ports.AccountRepository,
	tripRepo ports.TripRepository,
	notifier ports.EventNotifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *NoShowServiceImpl {
	return &NoShowServiceImpl{
		noShowRepo:  noShowRepo,
		accountRepo: accountRepo,
		tripRepo:    tripRepo,
		notifier:    notifier,
		transactor:  transactor,
		log:         log,
	}
}

// Report files a no-show report and applies the matching sanction. All
// authorization checks run before any write, so a rejected report mutates
// nothing.
func (s *NoShowServiceImpl) Report(ctx context.Context, req ports.NoShowReportRequest) (*domain.NoShowPenalty, error) {
	if !req.UserType.Valid() {
		return nil, apperror.Validation("user_type must be rider or driver")
	}
	if req.ReporterID == req.ReportedUserID {
		return nil, apperror.ErrInvalidParticipant()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	trip, err := s.tripRepo.GetByIDForUpdate(ctx, dbTx, req.TripID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock trip: %w", err))
	}
	if trip == nil {
		return nil, apperror.ErrTripNotFound()
	}
	if !trip.HasParticipant(req.ReporterID) {
		return nil, apperror.ErrNotAuthorized()
	}
	if !s.reportedMatchesTrip(trip, req) {
		return nil, apperror.ErrInvalidParticipant()
	}

	now := time.Now().UTC()
	report := &domain.NoShowReport{
		ID:             uuid.New(),
		TripID:         req.TripID,
		ReporterID:     req.ReporterID,
		ReportedUserID: req.ReportedUserID,
		UserType:       req.UserType,
		Reason:         req.Reason,
		Status:         reportStatusConfirmed,
		CreatedAt:      now,
	}
	if err := s.noShowRepo.CreateReport(ctx, dbTx, report); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create report: %w", err))
	}

	var penalty *domain.NoShowPenalty
	if req.UserType == domain.ReportedRider {
		penalty, err = s.sanctionRider(ctx, dbTx, report, now)
	} else {
		penalty, err = s.sanctionDriver(ctx, dbTx, report, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.noShowRepo.CreatePenalty(ctx, dbTx, penalty); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create penalty: %w", err))
	}

	cancelReason := domain.CancelReasonNoShow
	if err := s.tripRepo.UpdateStatus(ctx, dbTx, req.TripID, domain.TripStatusCancelled, &cancelReason); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("cancel trip: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.publishPenalty(ctx, penalty)

	s.log.Info().
		Str("trip_id", req.TripID.String()).
		Str("reported_user_id", req.ReportedUserID.String()).
		Str("user_type", string(req.UserType)).
		Int("severity", penalty.Severity).
		Int64("tokens_deducted", penalty.TokensDeducted).
		Msg("no-show penalty applied")
	return penalty, nil
}

// sanctionRider escalates by total report count: warning first, then
// restriction windows of 1, 7, and 30 days.
func (s *NoShowServiceImpl) sanctionRider(ctx context.Context, dbTx pgx.Tx, report *domain.NoShowReport, now time.Time) (*domain.NoShowPenalty, error) {
	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, report.ReportedUserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	newCount := account.NoShowCount + 1
	days, severity := domain.RiderSanction(newCount)

	var until *time.Time
	restricted := days > 0
	if restricted {
		t := now.Add(time.Duration(days) * 24 * time.Hour)
		until = &t
	}

	if _, err := s.accountRepo.RecordRiderNoShow(ctx, dbTx, report.ReportedUserID, newCount, now, restricted, until); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record no-show: %w", err))
	}

	return &domain.NoShowPenalty{
		ID:          uuid.New(),
		UserID:      report.ReportedUserID,
		TripID:      report.TripID,
		ReportID:    report.ID,
		PenaltyType: domain.PenaltyTypeNoShow,
		Severity:    severity,
		Reason:      report.Reason,
		ExpiresAt:   until,
		IsActive:    true,
		CreatedAt:   now,
	}, nil
}

// sanctionDriver deducts a flat token amount, floored at zero. A broke driver
// still gets the penalty record.
func (s *NoShowServiceImpl) sanctionDriver(ctx context.Context, dbTx pgx.Tx, report *domain.NoShowReport, now time.Time) (*domain.NoShowPenalty, error) {
	deducted, _, err := s.accountRepo.DeductUpTo(ctx, dbTx, report.ReportedUserID, domain.DriverSanctionTokens, domain.ReasonNoShowPenalty, report.ID.String())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deduct sanction: %w", err))
	}

	return &domain.NoShowPenalty{
		ID:             uuid.New(),
		UserID:         report.ReportedUserID,
		TripID:         report.TripID,
		ReportID:       report.ID,
		PenaltyType:    domain.PenaltyTypeNoShow,
		Severity:       domain.DriverSanctionSeverity,
		Reason:         report.Reason,
		TokensDeducted: deducted,
		IsActive:       true,
		CreatedAt:      now,
	}, nil
}

// CheckRestriction answers whether the user may request trips. Expired
// restrictions and penalties are cleaned up lazily on read.
func (s *NoShowServiceImpl) CheckRestriction(ctx context.Context, userID uuid.UUID) (*ports.RestrictionStatus, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	now := time.Now().UTC()
	if account.IsRestricted && account.RestrictionExpired(now) {
		if _, err := s.accountRepo.ClearExpiredRestriction(ctx, userID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("clear restriction: %w", err))
		}
		account.IsRestricted = false
		account.RestrictionUntil = nil
	}

	if _, err := s.noShowRepo.DeactivateExpired(ctx, userID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deactivate penalties: %w", err))
	}

	active, err := s.noShowRepo.CountActivePenalties(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count penalties: %w", err))
	}

	return &ports.RestrictionStatus{
		IsRestricted:     account.IsRestricted,
		RestrictionUntil: account.RestrictionUntil,
		NoShowCount:      account.NoShowCount,
		ActivePenalties:  active,
		CanRequestTrip:   account.CanRequestTrip(now),
	}, nil
}

// ListReports returns reports filed against the user.
func (s *NoShowServiceImpl) ListReports(ctx context.Context, userID uuid.UUID) ([]domain.NoShowReport, error) {
	reports, err := s.noShowRepo.ListReportsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list reports: %w", err))
	}
	return reports, nil
}

// ListPenalties returns the user's active penalties after expiring stale ones.
func (s *NoShowServiceImpl) ListPenalties(ctx context.Context, userID uuid.UUID) ([]domain.NoShowPenalty, error) {
	if _, err := s.noShowRepo.DeactivateExpired(ctx, userID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deactivate penalties: %w", err))
	}
	penalties, err := s.noShowRepo.ListActivePenalties(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list penalties: %w", err))
	}
	return penalties, nil
}

// reportedMatchesTrip checks that the reported user occupies the reported role
// on this trip.
func (s *NoShowServiceImpl) reportedMatchesTrip(trip *domain.Trip, req ports.NoShowReportRequest) bool {
	switch req.UserType {
	case domain.ReportedRider:
		return trip.RiderID == req.ReportedUserID
	case domain.ReportedDriver:
		return trip.DriverID != nil && *trip.DriverID == req.ReportedUserID
	default:
		return false
	}
}

func (s *NoShowServiceImpl) publishPenalty(ctx context.Context, penalty *domain.NoShowPenalty) {
	err := s.notifier.Publish(ctx, ports.Notification{
		Kind:        "penalty_applied",
		UserID:      penalty.UserID,
		ReferenceID: penalty.TripID.String(),
		Tokens:      penalty.TokensDeducted,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("penalty_id", penalty.ID.String()).Msg("notification publish failed")
	}
}
