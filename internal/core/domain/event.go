package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEventNotPending is returned when completing or failing an external event
// that is no longer pending. The losing side of a concurrent replay sees this.
var ErrEventNotPending = errors.New("external event is not pending")

// EventSource identifies where an external financial event came from.
type EventSource string

const (
	SourceManualCode  EventSource = "manual_code"
	SourceBlockchain  EventSource = "blockchain"
	SourceCardPayment EventSource = "card_payment"
)

// LedgerReason returns the ledger reason for credits from this source.
func (s EventSource) LedgerReason() LedgerReason {
	switch s {
	case SourceBlockchain:
		return ReasonCryptoCredit
	case SourceCardPayment:
		return ReasonCardCredit
	default:
		return ReasonManualCredit
	}
}

// EventStatus is the processing state of an external event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusCompleted EventStatus = "completed"
	EventStatusFailed    EventStatus = "failed"
)

// ExternalEventRecord deduplicates external financial events. ExternalID is
// globally unique (tx hash, payment-intent id, or code+user composite) and the
// uniqueness is enforced by the storage layer, not by check-then-insert.
type ExternalEventRecord struct {
	ExternalID    string          `json:"external_id"`
	Source        EventSource     `json:"source"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        EventStatus     `json:"status"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ManualCodeEventID builds the idempotency key for a mobile-money confirmation
// code. Codes are only unique per user, so the user id is part of the key.
func ManualCodeEventID(userID uuid.UUID, code string) string {
	return userID.String() + ":" + code
}
