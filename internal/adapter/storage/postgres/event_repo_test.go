package postgres

import (
	"context"
	"testing"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *domain.ExternalEventRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ExternalEventRecord{
		ExternalID: "0x" + uuid.New().String(),
		Source:     domain.SourceBlockchain,
		UserID:     uuid.New(),
		Amount:     decimal.NewFromInt(10),
		Status:     domain.EventStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func eventTestColumns() []string {
	return []string{"external_id", "source", "user_id", "amount", "status", "failure_reason", "created_at", "updated_at"}
}

func eventRow(e *domain.ExternalEventRecord) *pgxmock.Rows {
	return pgxmock.NewRows(eventTestColumns()).AddRow(
		e.ExternalID, e.Source, e.UserID, e.Amount,
		e.Status, e.FailureReason, e.CreatedAt, e.UpdatedAt,
	)
}

func TestEventRepo_Begin_New(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()

	mock.ExpectQuery("INSERT INTO external_events").
		WithArgs(e.ExternalID, e.Source, e.UserID, e.Amount, domain.EventStatusPending, pgxmock.AnyArg()).
		WillReturnRows(eventRow(e))

	result, created, err := repo.Begin(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, e.ExternalID, result.ExternalID)
	assert.Equal(t, domain.EventStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Begin_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := newTestEvent()
	existing := *e
	existing.Status = domain.EventStatusCompleted

	// ON CONFLICT DO NOTHING returns no row, so Begin falls back to Get.
	mock.ExpectQuery("INSERT INTO external_events").
		WithArgs(e.ExternalID, e.Source, e.UserID, e.Amount, domain.EventStatusPending, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(eventTestColumns()))
	mock.ExpectQuery("SELECT .+ FROM external_events WHERE external_id").
		WithArgs(e.ExternalID).
		WillReturnRows(eventRow(&existing))

	result, created, err := repo.Begin(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.EventStatusCompleted, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM external_events WHERE external_id").
		WithArgs("evt-missing").
		WillReturnRows(pgxmock.NewRows(eventTestColumns()))

	result, err := repo.Get(context.Background(), "evt-missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE external_events").
		WithArgs(domain.EventStatusCompleted, "evt-1", domain.EventStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Complete(context.Background(), tx, "evt-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Complete_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE external_events").
		WithArgs(domain.EventStatusCompleted, "evt-1", domain.EventStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Complete(context.Background(), tx, "evt-1")
	assert.ErrorIs(t, err, domain.ErrEventNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)

	mock.ExpectExec("UPDATE external_events").
		WithArgs(domain.EventStatusFailed, "invalid amount", "evt-1", domain.EventStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Fail(context.Background(), "evt-1", "invalid amount")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
