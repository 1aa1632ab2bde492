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

type tripTestDeps struct {
	svc         *TripServiceImpl
	tripRepo    *mocks.MockTripRepository
	accountRepo *mocks.MockAccountRepository
	notifier    *mocks.MockEventNotifier
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupTripService(t *testing.T) *tripTestDeps {
	ctrl := gomock.NewController(t)
	d := &tripTestDeps{
		tripRepo:    mocks.NewMockTripRepository(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		notifier:    mocks.NewMockEventNotifier(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewTripService(d.tripRepo, d.accountRepo, d.notifier, d.transactor, zerolog.Nop())
	return d
}

// ==================== Create Tests ====================

func TestTripService_Create_Success(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	riderID := uuid.New()

	d.accountRepo.EXPECT().GetByUserID(ctx, riderID).Return(&domain.Account{UserID: riderID}, nil)
	d.tripRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	trip, err := d.svc.Create(ctx, ports.CreateTripRequest{
		RiderID: riderID, Origin: "Akwa", Destination: "Bonapriso",
	})
	require.NoError(t, err)
	require.NotNil(t, trip)
	assert.Equal(t, domain.TripStatusPending, trip.Status)
	assert.Equal(t, riderID, trip.RiderID)
	assert.Nil(t, trip.DriverID)
}

func TestTripService_Create_MissingDestination(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	trip, err := d.svc.Create(context.Background(), ports.CreateTripRequest{
		RiderID: uuid.New(), Origin: "Akwa",
	})
	assert.Nil(t, trip)
	assertAppError(t, err, "VAL_001")
}

func TestTripService_Create_RiderRestricted(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	riderID := uuid.New()
	until := time.Now().UTC().Add(24 * time.Hour)

	d.accountRepo.EXPECT().GetByUserID(ctx, riderID).Return(&domain.Account{
		UserID: riderID, IsRestricted: true, RestrictionUntil: &until,
	}, nil)

	trip, err := d.svc.Create(ctx, ports.CreateTripRequest{
		RiderID: riderID, Origin: "Akwa", Destination: "Bonapriso",
	})
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_005")
}

func TestTripService_Create_ExpiredRestrictionClearedLazily(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	riderID := uuid.New()
	until := time.Now().UTC().Add(-time.Hour)

	d.accountRepo.EXPECT().GetByUserID(ctx, riderID).Return(&domain.Account{
		UserID: riderID, IsRestricted: true, RestrictionUntil: &until,
	}, nil)
	d.accountRepo.EXPECT().ClearExpiredRestriction(ctx, riderID).Return(true, nil)
	d.tripRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	trip, err := d.svc.Create(ctx, ports.CreateTripRequest{
		RiderID: riderID, Origin: "Akwa", Destination: "Bonapriso",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPending, trip.Status)
}

// ==================== Accept Tests ====================

func TestTripService_Accept_Success(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	driverID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), Status: domain.TripStatusPending,
	}, nil)
	d.tripRepo.EXPECT().AssignDriver(ctx, tx, tripID, driverID).Return(nil)

	trip, err := d.svc.Accept(ctx, tripID, driverID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusAccepted, trip.Status)
	require.NotNil(t, trip.DriverID)
	assert.Equal(t, driverID, *trip.DriverID)
}

func TestTripService_Accept_AlreadyTaken(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	otherDriver := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), DriverID: &otherDriver, Status: domain.TripStatusAccepted,
	}, nil)

	trip, err := d.svc.Accept(ctx, tripID, uuid.New())
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_004")
}

func TestTripService_Accept_NotFound(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, gomock.Any()).Return(nil, nil)

	trip, err := d.svc.Accept(ctx, uuid.New(), uuid.New())
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_001")
}

// ==================== Start Tests ====================

func TestTripService_Start_ChargesDriverOneToken(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	riderID := uuid.New()
	driverID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: riderID, DriverID: &driverID, Status: domain.TripStatusAccepted,
	}, nil)
	d.accountRepo.EXPECT().GetForUpdate(ctx, tx, driverID).Return(&domain.Account{
		UserID: driverID, TokenBalance: 5,
	}, nil)
	d.accountRepo.EXPECT().AdjustBalance(ctx, tx, driverID, int64(-1), domain.ReasonTripStartSpend, tripID.String()).
		Return(&domain.Account{UserID: driverID, TokenBalance: 4}, nil)
	d.tripRepo.EXPECT().MarkStarted(ctx, tx, tripID, gomock.Any()).Return(nil)
	d.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	trip, err := d.svc.Start(ctx, tripID, driverID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusStarted, trip.Status)
	assert.NotNil(t, trip.StartedAt)
}

func TestTripService_Start_InsufficientTokens(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	driverID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), DriverID: &driverID, Status: domain.TripStatusAccepted,
	}, nil)
	d.accountRepo.EXPECT().GetForUpdate(ctx, tx, driverID).Return(&domain.Account{
		UserID: driverID, TokenBalance: 0,
	}, nil)
	// No AdjustBalance, no MarkStarted: the trip stays accepted.

	trip, err := d.svc.Start(ctx, tripID, driverID)
	assert.Nil(t, trip)
	assertAppError(t, err, "LED_001")
}

func TestTripService_Start_DriverMismatch(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	assigned := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), DriverID: &assigned, Status: domain.TripStatusAccepted,
	}, nil)

	trip, err := d.svc.Start(ctx, tripID, uuid.New())
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_003")
}

func TestTripService_Start_NotAccepted(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	driverID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.tripRepo.EXPECT().GetByIDForUpdate(ctx, tx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), DriverID: &driverID, Status: domain.TripStatusStarted,
	}, nil)

	trip, err := d.svc.Start(ctx, tripID, driverID)
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_002")
}

// ==================== ProposePrice Tests ====================

func TestTripService_ProposePrice_Success(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	riderID := uuid.New()
	price := int64(1500)

	d.tripRepo.EXPECT().GetByID(ctx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: riderID, Status: domain.TripStatusPending,
	}, nil)
	d.tripRepo.EXPECT().SetProposedPrice(ctx, tripID, price).Return(&domain.Trip{
		ID: tripID, RiderID: riderID, ProposedPrice: &price, Status: domain.TripStatusPending,
	}, nil)

	trip, err := d.svc.ProposePrice(ctx, tripID, riderID, price)
	require.NoError(t, err)
	require.NotNil(t, trip.ProposedPrice)
	assert.Equal(t, price, *trip.ProposedPrice)
}

func TestTripService_ProposePrice_NotParticipant(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()

	d.tripRepo.EXPECT().GetByID(ctx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: uuid.New(), Status: domain.TripStatusPending,
	}, nil)

	trip, err := d.svc.ProposePrice(ctx, tripID, uuid.New(), 1500)
	assert.Nil(t, trip)
	assertAppError(t, err, "NSR_001")
}

func TestTripService_ProposePrice_TripNoLongerPending(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tripID := uuid.New()
	riderID := uuid.New()

	d.tripRepo.EXPECT().GetByID(ctx, tripID).Return(&domain.Trip{
		ID: tripID, RiderID: riderID, Status: domain.TripStatusStarted,
	}, nil)
	d.tripRepo.EXPECT().SetProposedPrice(ctx, tripID, int64(1500)).Return(nil, domain.ErrTripNotPending)

	trip, err := d.svc.ProposePrice(ctx, tripID, riderID, 1500)
	assert.Nil(t, trip)
	assertAppError(t, err, "TRIP_006")
}

func TestTripService_ProposePrice_NonPositivePrice(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	trip, err := d.svc.ProposePrice(context.Background(), uuid.New(), uuid.New(), 0)
	assert.Nil(t, trip)
	assertAppError(t, err, "VAL_001")
}

// ==================== ListByUser Tests ====================

func TestTripService_ListByUser(t *testing.T) {
	d := setupTripService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.tripRepo.EXPECT().ListByUser(ctx, userID).Return([]domain.Trip{
		{ID: uuid.New(), RiderID: userID, Status: domain.TripStatusCompleted},
		{ID: uuid.New(), RiderID: userID, Status: domain.TripStatusPending},
	}, nil)

	trips, err := d.svc.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, trips, 2)
}
