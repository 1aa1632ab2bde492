// Package mobilemoney validates operator confirmation codes for token
// purchases paid over mobile money.
package mobilemoney

import (
	"context"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Validator implements ports.MobileMoneyValidator. Codes are issued out of
// band by the operator; until the operator exposes a verification API this
// validator accepts any well-formed 6-digit code for a positive amount.
// TODO: call the operator's verification endpoint once it ships.
type Validator struct {
	log zerolog.Logger
}

// NewValidator creates a mobile-money code validator.
func NewValidator(log zerolog.Logger) *Validator {
	return &Validator{log: log}
}

// Validate checks the confirmation code for a purchase of amountMinor.
func (v *Validator) Validate(ctx context.Context, userID uuid.UUID, code string, amountMinor int64) (bool, error) {
	if !domain.ValidConfirmationCode(code) {
		return false, nil
	}
	if amountMinor <= 0 {
		return false, nil
	}

	v.log.Debug().
		Str("user_id", userID.String()).
		Int64("amount_minor", amountMinor).
		Msg("mobile money code accepted")
	return true, nil
}
