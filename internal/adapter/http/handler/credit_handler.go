package handler

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"ride-token-ledger/internal/adapter/http/dto"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"
	"ride-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SignatureHeader carries the card provider's webhook signature.
const SignatureHeader = "Webhook-Signature"

// CreditHandler handles token purchase, deposit, and card webhook endpoints.
type CreditHandler struct {
	creditSvc ports.CreditService
	verifier  ports.WebhookVerifier
	log       zerolog.Logger
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(creditSvc ports.CreditService, verifier ports.WebhookVerifier, log zerolog.Logger) *CreditHandler {
	return &CreditHandler{creditSvc: creditSvc, verifier: verifier, log: log}
}

// Purchase handles POST /api/v1/credits/purchase: a mobile-money purchase
// confirmed by a 6-digit code.
func (h *CreditHandler) Purchase(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.creditSvc.Credit(c.Request.Context(), userID, ports.ManualCodeSource{
		Code:        req.ConfirmationCode,
		AmountMinor: req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCreditResponse(result))
}

// Deposit handles POST /api/v1/credits/deposit: an on-chain token deposit
// identified by transaction hash. A deposit still waiting on confirmations
// answers 202 and may be resubmitted with the same hash.
func (h *CreditHandler) Deposit(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.creditSvc.Credit(c.Request.Context(), userID, ports.DepositSource{
		TxHash: req.TxHash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toCreditResponse(result))
}

// CardWebhook handles POST /api/v1/webhooks/card. The provider retries
// deliveries until acknowledged, so replays answer 200 like first deliveries.
func (h *CreditHandler) CardWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	if err := h.verifier.Verify(c.GetHeader(SignatureHeader), body, time.Now()); err != nil {
		h.log.Warn().Err(err).Msg("webhook signature rejected")
		response.Error(c, apperror.ErrInvalidSignature())
		return
	}

	var event dto.CardWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(c, apperror.Validation("malformed event payload"))
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handleCardSuccess(c, event.Data.Object)
	case "payment_intent.payment_failed", "payment_intent.canceled":
		h.handleCardFailure(c, event.Data.Object)
	default:
		// Unknown event types are acknowledged and dropped.
		response.OK(c, gin.H{"received": true})
	}
}

func (h *CreditHandler) handleCardSuccess(c *gin.Context, intent dto.CardPaymentIntent) {
	userID, err := uuid.Parse(intent.Metadata["user_id"])
	if err != nil {
		response.Error(c, apperror.Validation("missing or malformed user_id metadata"))
		return
	}

	result, err := h.creditSvc.Credit(c.Request.Context(), userID, ports.CardPaymentSource{
		PaymentIntentID: intent.ID,
		AmountMinor:     intent.Amount,
		Currency:        intent.Currency,
	})
	if err != nil {
		if isAlreadyProcessed(err) {
			response.OK(c, gin.H{"received": true, "duplicate": true})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, toCreditResponse(result))
}

func (h *CreditHandler) handleCardFailure(c *gin.Context, intent dto.CardPaymentIntent) {
	reason := intent.FailureReason
	if reason == "" {
		reason = "payment failed"
	}

	if err := h.creditSvc.FailCardPayment(c.Request.Context(), intent.ID, reason); err != nil {
		if isAlreadyProcessed(err) {
			response.OK(c, gin.H{"received": true, "duplicate": true})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"received": true})
}

func isAlreadyProcessed(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == "EVT_002"
}

func toCreditResponse(r *ports.CreditResult) dto.CreditResponse {
	return dto.CreditResponse{
		ExternalID:     r.ExternalID,
		TokensCredited: r.TokensCredited,
		Balance:        r.Balance,
	}
}
