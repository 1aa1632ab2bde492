package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReporterType distinguishes which side of the trip was reported absent.
type ReporterType string

const (
	ReportedRider  ReporterType = "rider"
	ReportedDriver ReporterType = "driver"
)

// Valid reports whether the reported user type is one of the known values.
func (r ReporterType) Valid() bool {
	return r == ReportedRider || r == ReportedDriver
}

// NoShowReport records one no-show accusation against a trip participant.
type NoShowReport struct {
	ID             uuid.UUID    `json:"id"`
	TripID         uuid.UUID    `json:"trip_id"`
	ReporterID     uuid.UUID    `json:"reporter_id"`
	ReportedUserID uuid.UUID    `json:"reported_user_id"`
	UserType       ReporterType `json:"user_type"`
	Reason         string       `json:"reason"`
	Status         string       `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PenaltyTypeNoShow is currently the only penalty type issued.
const PenaltyTypeNoShow = "no_show"

// NoShowPenalty is the immutable record of one applied sanction. It is
// deactivated, never deleted, when its restriction window lapses or an
// administrator clears it.
type NoShowPenalty struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	TripID         uuid.UUID  `json:"trip_id"`
	ReportID       uuid.UUID  `json:"report_id"`
	PenaltyType    string     `json:"penalty_type"`
	Severity       int        `json:"severity"` // 1..3
	Reason         string     `json:"reason"`
	TokensDeducted int64      `json:"tokens_deducted"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RiderSanction is the progressive escalation applied to a rider, keyed by the
// no-show count after increment. The ladder is deterministic and does not
// depend on time elapsed between reports.
//
//	count 1: warning only
//	count 2: 1 day
//	count 3: 7 days
//	count 4+: 30 days
func RiderSanction(noShowCount int) (restrictionDays int, severity int) {
	switch {
	case noShowCount <= 1:
		return 0, 1
	case noShowCount == 2:
		return 1, 1
	case noShowCount == 3:
		return 7, 2
	default:
		return 30, 3
	}
}

// DriverSanctionTokens is the flat token deduction for a driver no-show.
// Drivers are penalized economically, riders behaviorally: only drivers hold
// spendable tokens in this model.
const DriverSanctionTokens int64 = 1

// DriverSanctionSeverity is the fixed severity for driver sanctions.
const DriverSanctionSeverity = 1
