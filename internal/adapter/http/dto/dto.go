package dto

import "time"

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Phone    string `json:"phone" binding:"required,e164"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=rider driver"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PurchaseRequest is the request body for a mobile-money token purchase.
type PurchaseRequest struct {
	ConfirmationCode string `json:"confirmation_code" binding:"required,confirm_code"`
	Amount           int64  `json:"amount" binding:"required,gt=0"` // fiat minor units
}

// DepositRequest is the request body for crediting an on-chain deposit.
type DepositRequest struct {
	TxHash string `json:"tx_hash" binding:"required,tx_hash"`
}

// CreditResponse is the response body for a successful credit.
type CreditResponse struct {
	ExternalID     string `json:"external_id"`
	TokensCredited int64  `json:"tokens_credited"`
	Balance        int64  `json:"balance"`
}

// CreateTripRequest is the request body for trip creation.
type CreateTripRequest struct {
	Origin        string `json:"origin" binding:"required,min=1,max=200"`
	Destination   string `json:"destination" binding:"required,min=1,max=200"`
	ProposedPrice *int64 `json:"proposed_price,omitempty" binding:"omitempty,gt=0"`
}

// ProposePriceRequest is the request body for price negotiation.
type ProposePriceRequest struct {
	Price int64 `json:"price" binding:"required,gt=0"`
}

// TripResponse is the response body for trip operations.
type TripResponse struct {
	ID                 string  `json:"id"`
	RiderID            string  `json:"rider_id"`
	DriverID           *string `json:"driver_id,omitempty"`
	Origin             string  `json:"origin"`
	Destination        string  `json:"destination"`
	ProposedPrice      *int64  `json:"proposed_price,omitempty"`
	Status             string  `json:"status"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
	StartedAt          *string `json:"started_at,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

// NoShowReportRequest is the request body for filing a no-show report.
type NoShowReportRequest struct {
	TripID         string `json:"trip_id" binding:"required,uuid"`
	ReportedUserID string `json:"reported_user_id" binding:"required,uuid"`
	UserType       string `json:"user_type" binding:"required,oneof=rider driver"`
	Reason         string `json:"reason" binding:"max=500"`
}

// PenaltyResponse is the response body for an applied or listed penalty.
type PenaltyResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	TripID         string  `json:"trip_id"`
	PenaltyType    string  `json:"penalty_type"`
	Severity       int     `json:"severity"`
	Reason         string  `json:"reason,omitempty"`
	TokensDeducted int64   `json:"tokens_deducted"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// LedgerEntryResponse is one row of the token history.
type LedgerEntryResponse struct {
	ID          string `json:"id"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"reference_id"`
	CreatedAt   string `json:"created_at"`
}

// CardWebhookEvent is the provider's webhook delivery payload.
type CardWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CardPaymentIntent `json:"object"`
	} `json:"data"`
}

// CardPaymentIntent is the payment object inside a webhook event.
type CardPaymentIntent struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Metadata      map[string]string `json:"metadata"`
}

// FormatTime renders a timestamp for response bodies.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatTimePtr renders an optional timestamp, nil in stays nil out.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
