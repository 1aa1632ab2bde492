package handler

import (
	"ride-token-ledger/internal/adapter/http/dto"
	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/pkg/apperror"
	"ride-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NoShowHandler handles no-show reporting and restriction endpoints.
type NoShowHandler struct {
	noShowSvc ports.NoShowService
}

// NewNoShowHandler creates a new NoShowHandler.
func NewNoShowHandler(noShowSvc ports.NoShowService) *NoShowHandler {
	return &NoShowHandler{noShowSvc: noShowSvc}
}

// Report handles POST /api/v1/no-show/report.
func (h *NoShowHandler) Report(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req dto.NoShowReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	tripID, _ := uuid.Parse(req.TripID)
	reportedID, _ := uuid.Parse(req.ReportedUserID)

	penalty, err := h.noShowSvc.Report(c.Request.Context(), ports.NoShowReportRequest{
		TripID:         tripID,
		ReporterID:     userID,
		ReportedUserID: reportedID,
		UserType:       domain.ReporterType(req.UserType),
		Reason:         req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPenaltyResponse(penalty))
}

// Restriction handles GET /api/v1/no-show/restriction.
func (h *NoShowHandler) Restriction(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	status, err := h.noShowSvc.CheckRestriction(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, status)
}

// Reports handles GET /api/v1/no-show/reports.
func (h *NoShowHandler) Reports(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	reports, err := h.noShowSvc.ListReports(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, reports)
}

// Penalties handles GET /api/v1/no-show/penalties.
func (h *NoShowHandler) Penalties(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	penalties, err := h.noShowSvc.ListPenalties(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.PenaltyResponse, 0, len(penalties))
	for i := range penalties {
		out = append(out, toPenaltyResponse(&penalties[i]))
	}
	response.OK(c, out)
}

func toPenaltyResponse(p *domain.NoShowPenalty) dto.PenaltyResponse {
	return dto.PenaltyResponse{
		ID:             p.ID.String(),
		UserID:         p.UserID.String(),
		TripID:         p.TripID.String(),
		PenaltyType:    p.PenaltyType,
		Severity:       p.Severity,
		Reason:         p.Reason,
		TokensDeducted: p.TokensDeducted,
		ExpiresAt:      dto.FormatTimePtr(p.ExpiresAt),
		IsActive:       p.IsActive,
		CreatedAt:      dto.FormatTime(p.CreatedAt),
	}
}
