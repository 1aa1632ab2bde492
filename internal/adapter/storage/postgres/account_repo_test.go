package postgres

import (
	"context"
	"testing"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(balance int64) *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		UserID:       uuid.New(),
		TokenBalance: balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountTestColumns() []string {
	return []string{"user_id", "token_balance", "is_restricted", "restriction_until", "no_show_count", "last_no_show_at", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountTestColumns()).AddRow(
		a.UserID, a.TokenBalance, a.IsRestricted, a.RestrictionUntil,
		a.NoShowCount, a.LastNoShowAt, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(0)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.UserID, a.TokenBalance, a.IsRestricted, a.RestrictionUntil,
			a.NoShowCount, a.LastNoShowAt, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByUserID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	userID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(accountTestColumns()))

	result, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(5)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE user_id .+ FOR UPDATE").
		WithArgs(a.UserID).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetForUpdate(context.Background(), tx, a.UserID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(5), result.TokenBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_AdjustBalance_WritesLedgerEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(3)
	after := *a
	after.TokenBalance = 2

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(int64(-1), a.UserID).
		WillReturnRows(accountRow(&after))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(pgxmock.AnyArg(), a.UserID, int64(-1), domain.ReasonTripStartSpend, "trip-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.AdjustBalance(context.Background(), tx, a.UserID, -1, domain.ReasonTripStartSpend, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TokenBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_AdjustBalance_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(int64(-1), userID).
		WillReturnRows(pgxmock.NewRows(accountTestColumns()))
	mock.ExpectQuery("SELECT 1 FROM accounts").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.AdjustBalance(context.Background(), tx, userID, -1, domain.ReasonTripStartSpend, "trip-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_AdjustBalance_AccountNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(int64(10), userID).
		WillReturnRows(pgxmock.NewRows(accountTestColumns()))
	mock.ExpectQuery("SELECT 1 FROM accounts").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.AdjustBalance(context.Background(), tx, userID, 10, domain.ReasonManualCredit, "evt-1")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_DeductUpTo_CapsAtBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(1)
	after := *a
	after.TokenBalance = 0

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE user_id .+ FOR UPDATE").
		WithArgs(a.UserID).
		WillReturnRows(accountRow(a))
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(int64(-1), a.UserID).
		WillReturnRows(accountRow(&after))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(pgxmock.AnyArg(), a.UserID, int64(-1), domain.ReasonNoShowPenalty, "report-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	deducted, result, err := repo.DeductUpTo(context.Background(), tx, a.UserID, 1, domain.ReasonNoShowPenalty, "report-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deducted)
	assert.Equal(t, int64(0), result.TokenBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_DeductUpTo_ZeroBalanceWritesNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(0)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE user_id .+ FOR UPDATE").
		WithArgs(a.UserID).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	deducted, result, err := repo.DeductUpTo(context.Background(), tx, a.UserID, 1, domain.ReasonNoShowPenalty, "report-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deducted)
	assert.Equal(t, int64(0), result.TokenBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_RecordRiderNoShow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(2)
	now := time.Now().UTC().Truncate(time.Microsecond)
	until := now.Add(24 * time.Hour)

	after := *a
	after.NoShowCount = 2
	after.LastNoShowAt = &now
	after.IsRestricted = true
	after.RestrictionUntil = &until

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(2, now, true, &until, a.UserID).
		WillReturnRows(accountRow(&after))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.RecordRiderNoShow(context.Background(), tx, a.UserID, 2, now, true, &until)
	require.NoError(t, err)
	assert.True(t, result.IsRestricted)
	assert.Equal(t, 2, result.NoShowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ClearExpiredRestriction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	userID := uuid.New()

	mock.ExpectExec("UPDATE accounts").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	cleared, err := repo.ClearExpiredRestriction(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ListLedgerEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	userID := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "user_id", "delta", "reason", "reference_id", "created_at"}).
		AddRow(uuid.New(), userID, int64(32), domain.ReasonCryptoCredit, "0xabc", now).
		AddRow(uuid.New(), userID, int64(-1), domain.ReasonTripStartSpend, "trip-1", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE user_id").
		WithArgs(userID, 50).
		WillReturnRows(rows)

	entries, err := repo.ListLedgerEntries(context.Background(), userID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(32), entries[0].Delta)
	assert.Equal(t, domain.ReasonTripStartSpend, entries[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
