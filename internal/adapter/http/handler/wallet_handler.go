package handler

import (
	"strconv"

	"ride-token-ledger/internal/adapter/http/dto"
	"ride-token-ledger/internal/adapter/http/middleware"
	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"
	"ride-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles token balance and history endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// authedUserID pulls the caller's id set by the JWT middleware.
func authedUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance})
}

// History handles GET /api/v1/wallet/history.
func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.walletSvc.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryResponse(e))
	}
	response.OK(c, out)
}

func toLedgerEntryResponse(e domain.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:          e.ID.String(),
		Delta:       e.Delta,
		Reason:      string(e.Reason),
		ReferenceID: e.ReferenceID,
		CreatedAt:   dto.FormatTime(e.CreatedAt),
	}
}
