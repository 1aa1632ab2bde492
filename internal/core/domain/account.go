package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Storage-layer sentinels surfaced by the account repository. Services map
// these onto the apperror taxonomy.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Account holds a user's token balance and restriction state. The balance is
// never negative; every change goes through the ledger's single guarded
// adjust operation and writes a LedgerEntry in the same transaction.
type Account struct {
	UserID           uuid.UUID  `json:"user_id"`
	TokenBalance     int64      `json:"token_balance"`
	IsRestricted     bool       `json:"is_restricted"`
	RestrictionUntil *time.Time `json:"restriction_until,omitempty"`
	NoShowCount      int        `json:"no_show_count"`
	LastNoShowAt     *time.Time `json:"last_no_show_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RestrictionExpired reports whether a restriction flag is stale: set, but its
// window has passed. Expiry is lazy: read paths clear it, no background sweep.
func (a *Account) RestrictionExpired(now time.Time) bool {
	return a.IsRestricted && a.RestrictionUntil != nil && a.RestrictionUntil.Before(now)
}

// CanRequestTrip reports whether the account may create trips right now.
func (a *Account) CanRequestTrip(now time.Time) bool {
	if !a.IsRestricted {
		return true
	}
	return a.RestrictionExpired(now)
}
