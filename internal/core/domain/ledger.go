package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerReason categorizes a balance change.
type LedgerReason string

const (
	ReasonTripStartSpend LedgerReason = "trip_start_spend"
	ReasonManualCredit   LedgerReason = "manual_credit"
	ReasonCryptoCredit   LedgerReason = "crypto_credit"
	ReasonCardCredit     LedgerReason = "card_credit"
	ReasonNoShowPenalty  LedgerReason = "no_show_penalty"
)

// LedgerEntry is the immutable audit record of one balance change. Entries are
// insert-only: never updated, never deleted.
type LedgerEntry struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Delta       int64        `json:"delta"`
	Reason      LedgerReason `json:"reason"`
	ReferenceID string       `json:"reference_id"` // external idempotency key or trip id
	CreatedAt   time.Time    `json:"created_at"`
}
