package ports

import (
	"context"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the auth context.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// DepositVerifier checks an on-chain deposit and returns its normalized form.
// The credit engine applies its own minimum-amount and minimum-confirmation
// policy on top of the verifier's answer.
type DepositVerifier interface {
	Verify(ctx context.Context, txHash string) (*domain.VerifiedDeposit, error)
}

// MobileMoneyValidator checks a confirmation code against the operator.
type MobileMoneyValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, code string, amountMinor int64) (bool, error)
}

// Notification is a fire-and-forget event published after a commit.
type Notification struct {
	Kind        string    `json:"kind"` // trip_started, tokens_credited, penalty_applied
	UserID      uuid.UUID `json:"user_id"`
	ReferenceID string    `json:"reference_id"`
	Tokens      int64     `json:"tokens,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventNotifier publishes notifications at most once, best effort. Delivery
// failure must never fail the operation that produced the notification.
type EventNotifier interface {
	Publish(ctx context.Context, n Notification) error
}

// --- Service Ports (Business Logic) ---

// CreditSource is the closed set of external credit origins. Each variant
// carries exactly the fields its validation needs.
type CreditSource interface {
	EventSource() domain.EventSource
	isCreditSource()
}

// ManualCodeSource is a mobile-money purchase confirmed by a 6-digit code.
type ManualCodeSource struct {
	Code        string
	AmountMinor int64
}

func (ManualCodeSource) EventSource() domain.EventSource { return domain.SourceManualCode }
func (ManualCodeSource) isCreditSource()                 {}

// DepositSource is an on-chain token deposit identified by its tx hash.
type DepositSource struct {
	TxHash string
}

func (DepositSource) EventSource() domain.EventSource { return domain.SourceBlockchain }
func (DepositSource) isCreditSource()                 {}

// CardPaymentSource is a confirmed card payment delivered by webhook.
type CardPaymentSource struct {
	PaymentIntentID string
	AmountMinor     int64
	Currency        string
}

func (CardPaymentSource) EventSource() domain.EventSource { return domain.SourceCardPayment }
func (CardPaymentSource) isCreditSource()                 {}

// CreditResult is the success payload of a credit operation.
type CreditResult struct {
	ExternalID     string `json:"external_id"`
	TokensCredited int64  `json:"tokens_credited"`
	Balance        int64  `json:"balance"`
}

// CreditService applies external financial events to the ledger exactly once.
type CreditService interface {
	Credit(ctx context.Context, userID uuid.UUID, src CreditSource) (*CreditResult, error)
	// FailCardPayment records the terminal non-credit outcome of a failed or
	// canceled card payment.
	FailCardPayment(ctx context.Context, paymentIntentID string, reason string) error
}

// CreateTripRequest holds validated input for trip creation.
type CreateTripRequest struct {
	RiderID       uuid.UUID
	Origin        string
	Destination   string
	ProposedPrice *int64
}

// TripService owns the trip lifecycle, including the single token spend on
// the accepted -> started transition.
type TripService interface {
	Create(ctx context.Context, req CreateTripRequest) (*domain.Trip, error)
	Accept(ctx context.Context, tripID, driverID uuid.UUID) (*domain.Trip, error)
	Start(ctx context.Context, tripID, driverID uuid.UUID) (*domain.Trip, error)
	ProposePrice(ctx context.Context, tripID, userID uuid.UUID, price int64) (*domain.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
}

// NoShowReportRequest holds validated input for a no-show report.
type NoShowReportRequest struct {
	TripID         uuid.UUID
	ReporterID     uuid.UUID
	ReportedUserID uuid.UUID
	UserType       domain.ReporterType
	Reason         string
}

// RestrictionStatus is the current answer of the lazy restriction check.
type RestrictionStatus struct {
	IsRestricted     bool       `json:"is_restricted"`
	RestrictionUntil *time.Time `json:"restriction_until,omitempty"`
	NoShowCount      int        `json:"no_show_count"`
	ActivePenalties  int64      `json:"active_penalties_count"`
	CanRequestTrip   bool       `json:"can_request_trip"`
}

// NoShowService applies no-show sanctions and answers restriction queries.
type NoShowService interface {
	Report(ctx context.Context, req NoShowReportRequest) (*domain.NoShowPenalty, error)
	CheckRestriction(ctx context.Context, userID uuid.UUID) (*RestrictionStatus, error)
	ListReports(ctx context.Context, userID uuid.UUID) ([]domain.NoShowReport, error)
	ListPenalties(ctx context.Context, userID uuid.UUID) ([]domain.NoShowPenalty, error)
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Phone    string
	Password string
	Role     domain.Role
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, phone, password string) (string, time.Time, error) // token, expiry, error
}

// WebhookVerifier authenticates an inbound webhook delivery by its signature
// header and raw body.
type WebhookVerifier interface {
	Verify(header string, body []byte, now time.Time) error
}

// WalletService exposes the ledger read paths.
type WalletService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}
