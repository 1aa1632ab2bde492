package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Trip lifecycle sentinels. Repositories return these when a guarded status
// transition matches no rows; services map them to API errors.
var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrTripNotPending  = errors.New("trip is not pending")
	ErrTripNotAccepted = errors.New("trip is not accepted")
)

// TripStatus is the lifecycle state of a trip.
// pending -> accepted -> started -> completed | cancelled
type TripStatus string

const (
	TripStatusPending   TripStatus = "pending"
	TripStatusAccepted  TripStatus = "accepted"
	TripStatusStarted   TripStatus = "started"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// CancelReasonNoShow marks trips cancelled by a confirmed no-show report.
const CancelReasonNoShow = "no_show"

// TripStartTokenCost is the flat price of starting a trip. Charged to the
// driver on the accepted -> started transition, never at acceptance.
const TripStartTokenCost int64 = 1

// Trip is a ride request. The token spend is gated on the accepted->started
// transition: accepting costs nothing, so a rider no-show before start costs
// the driver nothing.
type Trip struct {
	ID                 uuid.UUID  `json:"id"`
	RiderID            uuid.UUID  `json:"rider_id"`
	DriverID           *uuid.UUID `json:"driver_id,omitempty"`
	Origin             string     `json:"origin"`
	Destination        string     `json:"destination"`
	ProposedPrice      *int64     `json:"proposed_price,omitempty"`
	Status             TripStatus `json:"status"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CanAccept reports whether a driver may accept the trip.
func (t *Trip) CanAccept() bool {
	return t.Status == TripStatusPending
}

// CanStart reports whether the given driver may start the trip.
func (t *Trip) CanStart(driverID uuid.UUID) bool {
	return t.Status == TripStatusAccepted && t.DriverID != nil && *t.DriverID == driverID
}

// HasParticipant reports whether userID is the trip's rider or assigned driver.
func (t *Trip) HasParticipant(userID uuid.UUID) bool {
	if t.RiderID == userID {
		return true
	}
	return t.DriverID != nil && *t.DriverID == userID
}

// OtherParticipant returns the counterpart of userID on this trip, if any.
func (t *Trip) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	if t.RiderID == userID {
		if t.DriverID == nil {
			return uuid.Nil, false
		}
		return *t.DriverID, true
	}
	if t.DriverID != nil && *t.DriverID == userID {
		return t.RiderID, true
	}
	return uuid.Nil, false
}
