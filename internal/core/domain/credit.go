package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDepositNotFound marks a transaction hash the chain has never seen.
var ErrDepositNotFound = errors.New("deposit transaction not found")

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidTxHash reports whether s looks like an EVM transaction hash.
func ValidTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}

var confirmationCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidConfirmationCode reports whether s is a 6-digit mobile-money code.
func ValidConfirmationCode(s string) bool {
	return confirmationCodePattern.MatchString(s)
}

// VerifiedDeposit is the normalized result of an on-chain deposit lookup,
// produced by the deposit verifier collaborator. Amount is denominated in
// whole deposit-token units (decimals already applied).
type VerifiedDeposit struct {
	TxHash        string
	Amount        decimal.Decimal
	Confirmations uint64
	IsValid       bool
	BlockNumber   uint64
	ObservedAt    time.Time
}

// RateCard holds the fixed conversion rates between external money and trip
// tokens. Conversions always floor; partial tokens are never credited.
type RateCard struct {
	// FiatTokenCost is the mobile-money price of one token in minor units
	// (e.g. 10 FCFA per token).
	FiatTokenCost int64
	// CardTokenCost is the card-payment price of one token in the currency's
	// minor units (e.g. cents).
	CardTokenCost int64
	// DepositFiatRate is the fiat value of one deposit-token unit.
	DepositFiatRate decimal.Decimal
	// DepositTokenCost is the fiat price of one trip token on the crypto path.
	DepositTokenCost decimal.Decimal
}

// CrossRate returns trip tokens per deposit-token unit.
func (r RateCard) CrossRate() decimal.Decimal {
	if r.DepositTokenCost.IsZero() {
		return decimal.Zero
	}
	return r.DepositFiatRate.Div(r.DepositTokenCost)
}

// TokensFromFiat converts a mobile-money amount in minor units to tokens.
func (r RateCard) TokensFromFiat(amountMinor int64) int64 {
	if r.FiatTokenCost <= 0 || amountMinor <= 0 {
		return 0
	}
	return amountMinor / r.FiatTokenCost
}

// TokensFromCard converts a card-payment amount in minor units to tokens.
func (r RateCard) TokensFromCard(amountMinor int64) int64 {
	if r.CardTokenCost <= 0 || amountMinor <= 0 {
		return 0
	}
	return amountMinor / r.CardTokenCost
}

// TokensFromDeposit converts a verified deposit amount to tokens via the
// cross rate, flooring to a whole token count.
func (r RateCard) TokensFromDeposit(amount decimal.Decimal) int64 {
	if amount.Sign() <= 0 {
		return 0
	}
	return amount.Mul(r.CrossRate()).Floor().IntPart()
}
