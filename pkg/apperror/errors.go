package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInsufficientTokens(balance int64) *AppError {
	return New("LED_001", fmt.Sprintf("Insufficient tokens (balance: %d)", balance), http.StatusPaymentRequired)
}

func ErrAccountNotFound() *AppError {
	return New("LED_002", "Account not found", http.StatusNotFound)
}

// ---- Credit / external events (EVT) ----

func ErrInvalidAmount() *AppError {
	return New("EVT_001", "Invalid amount", http.StatusBadRequest)
}

// ErrAlreadyProcessed signals an expected replay: the external event has
// already been applied. Webhook-style callers treat this as a successful no-op.
func ErrAlreadyProcessed() *AppError {
	return New("EVT_002", "Event already processed", http.StatusConflict)
}

// ErrDepositDeferred signals a deposit below the confirmation threshold. The
// event stays pending; the same transaction hash can be resubmitted later
// without risk of double credit.
func ErrDepositDeferred(reason string) *AppError {
	return New("EVT_003", reason, http.StatusAccepted)
}

func ErrVerificationFailed(reason string) *AppError {
	return New("EVT_004", reason, http.StatusBadRequest)
}

func ErrInvalidConfirmationCode() *AppError {
	return New("EVT_005", "Invalid confirmation code", http.StatusBadRequest)
}

func ErrInvalidTxHash() *AppError {
	return New("EVT_006", "Invalid transaction hash", http.StatusBadRequest)
}

// ---- Trips (TRIP) ----

func ErrTripNotFound() *AppError {
	return New("TRIP_001", "Trip not found", http.StatusNotFound)
}

func ErrTripNotStartable(status string) *AppError {
	return New("TRIP_002", fmt.Sprintf("Trip cannot be started from status %q", status), http.StatusConflict)
}

func ErrDriverMismatch() *AppError {
	return New("TRIP_003", "Driver is not assigned to this trip", http.StatusForbidden)
}

func ErrTripNotAcceptable(status string) *AppError {
	return New("TRIP_004", fmt.Sprintf("Trip cannot be accepted from status %q", status), http.StatusConflict)
}

func ErrUserRestricted() *AppError {
	return New("TRIP_005", "User is restricted from requesting trips", http.StatusForbidden)
}

func ErrTripNotModifiable() *AppError {
	return New("TRIP_006", "Trip can no longer be modified", http.StatusConflict)
}

// ---- No-show reports (NSR) ----

func ErrNotAuthorized() *AppError {
	return New("NSR_001", "User is not a participant of this trip", http.StatusForbidden)
}

func ErrInvalidParticipant() *AppError {
	return New("NSR_002", "Reported user is not part of this trip", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrPhoneExists() *AppError {
	return New("AUTH_002", "Phone number already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("AUTH_004", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a generic bad-input error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
