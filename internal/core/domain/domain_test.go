package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRiderSanction_Escalation(t *testing.T) {
	tests := []struct {
		count    int
		days     int
		severity int
	}{
		{1, 0, 1},
		{2, 1, 1},
		{3, 7, 2},
		{4, 30, 3},
		{5, 30, 3},
		{12, 30, 3},
	}

	for _, tt := range tests {
		days, severity := RiderSanction(tt.count)
		assert.Equal(t, tt.days, days, "count=%d", tt.count)
		assert.Equal(t, tt.severity, severity, "count=%d", tt.count)
	}
}

func TestAccount_RestrictionExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Account{}).RestrictionExpired(now), "unrestricted account")
	assert.True(t, (&Account{IsRestricted: true, RestrictionUntil: &past}).RestrictionExpired(now))
	assert.False(t, (&Account{IsRestricted: true, RestrictionUntil: &future}).RestrictionExpired(now))
	assert.False(t, (&Account{IsRestricted: true}).RestrictionExpired(now), "no expiry timestamp")
}

func TestAccount_CanRequestTrip(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Account{}).CanRequestTrip(now))
	assert.True(t, (&Account{IsRestricted: true, RestrictionUntil: &past}).CanRequestTrip(now),
		"expired restriction should not block")
	assert.False(t, (&Account{IsRestricted: true, RestrictionUntil: &future}).CanRequestTrip(now))
}

func TestTrip_CanStart(t *testing.T) {
	driver := uuid.New()
	other := uuid.New()

	trip := &Trip{Status: TripStatusAccepted, DriverID: &driver}
	assert.True(t, trip.CanStart(driver))
	assert.False(t, trip.CanStart(other))

	trip.Status = TripStatusPending
	assert.False(t, trip.CanStart(driver))

	assert.False(t, (&Trip{Status: TripStatusAccepted}).CanStart(driver), "no assigned driver")
}

func TestTrip_Participants(t *testing.T) {
	rider := uuid.New()
	driver := uuid.New()
	stranger := uuid.New()
	trip := &Trip{RiderID: rider, DriverID: &driver}

	assert.True(t, trip.HasParticipant(rider))
	assert.True(t, trip.HasParticipant(driver))
	assert.False(t, trip.HasParticipant(stranger))

	got, ok := trip.OtherParticipant(rider)
	assert.True(t, ok)
	assert.Equal(t, driver, got)

	got, ok = trip.OtherParticipant(driver)
	assert.True(t, ok)
	assert.Equal(t, rider, got)

	_, ok = trip.OtherParticipant(stranger)
	assert.False(t, ok)

	_, ok = (&Trip{RiderID: rider}).OtherParticipant(rider)
	assert.False(t, ok, "rider has no counterpart before a driver accepts")
}

func TestValidTxHash(t *testing.T) {
	assert.True(t, ValidTxHash("0x"+"ab12"+"cd34"+"ef56"+"0789"+"ab12"+"cd34"+"ef56"+"0789"+"ab12"+"cd34"+"ef56"+"0789"+"ab12"+"cd34"+"ef56"+"0789"))
	assert.False(t, ValidTxHash("ab12"))
	assert.False(t, ValidTxHash("0x1234"))
	assert.False(t, ValidTxHash(""))
}

func TestValidConfirmationCode(t *testing.T) {
	assert.True(t, ValidConfirmationCode("123456"))
	assert.False(t, ValidConfirmationCode("12345"))
	assert.False(t, ValidConfirmationCode("1234567"))
	assert.False(t, ValidConfirmationCode("12a456"))
}

func TestRateCard_Fiat(t *testing.T) {
	rc := RateCard{FiatTokenCost: 10}

	assert.Equal(t, int64(10), rc.TokensFromFiat(100))
	assert.Equal(t, int64(9), rc.TokensFromFiat(99), "floors")
	assert.Equal(t, int64(0), rc.TokensFromFiat(9))
	assert.Equal(t, int64(0), rc.TokensFromFiat(-100))
	assert.Equal(t, int64(0), RateCard{}.TokensFromFiat(100), "zero unit cost")
}

func TestRateCard_Card(t *testing.T) {
	rc := RateCard{CardTokenCost: 50} // 50 cents per token
	assert.Equal(t, int64(4), rc.TokensFromCard(200))
	assert.Equal(t, int64(3), rc.TokensFromCard(199))
	assert.Equal(t, int64(0), rc.TokensFromCard(0))
}

func TestRateCard_Deposit(t *testing.T) {
	// Defaults from the original deployment: 1 deposit unit = 65.5957 fiat,
	// one token = 20 fiat, so cross rate ~= 3.2798.
	rc := RateCard{
		DepositFiatRate:  decimal.RequireFromString("65.5957"),
		DepositTokenCost: decimal.RequireFromString("20"),
	}

	assert.Equal(t, int64(32), rc.TokensFromDeposit(decimal.NewFromInt(10)))
	assert.Equal(t, int64(3), rc.TokensFromDeposit(decimal.NewFromInt(1)))
	assert.Equal(t, int64(0), rc.TokensFromDeposit(decimal.Zero))
	assert.Equal(t, int64(0), rc.TokensFromDeposit(decimal.NewFromInt(-5)))
	assert.Equal(t, int64(0), RateCard{}.TokensFromDeposit(decimal.NewFromInt(10)), "zero rate card")
}

func TestEventSource_LedgerReason(t *testing.T) {
	assert.Equal(t, ReasonManualCredit, SourceManualCode.LedgerReason())
	assert.Equal(t, ReasonCryptoCredit, SourceBlockchain.LedgerReason())
	assert.Equal(t, ReasonCardCredit, SourceCardPayment.LedgerReason())
}

func TestManualCodeEventID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String()+":123456", ManualCodeEventID(id, "123456"))
}

func TestReporterType_Valid(t *testing.T) {
	assert.True(t, ReportedRider.Valid())
	assert.True(t, ReportedDriver.Valid())
	assert.False(t, ReporterType("passenger").Valid())
}
