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

// TripHandler handles trip lifecycle endpoints.
type TripHandler struct {
	tripSvc ports.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripSvc ports.TripService) *TripHandler {
	return &TripHandler{tripSvc: tripSvc}
}

// Create handles POST /api/v1/trips.
func (h *TripHandler) Create(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req dto.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	trip, err := h.tripSvc.Create(c.Request.Context(), ports.CreateTripRequest{
		RiderID:       userID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		ProposedPrice: req.ProposedPrice,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTripResponse(trip))
}

// tripIDParam parses the :id path parameter.
func tripIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed trip id"))
		return uuid.Nil, false
	}
	return id, true
}

// Accept handles POST /api/v1/trips/:id/accept.
func (h *TripHandler) Accept(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(c)
	if !ok {
		return
	}

	trip, err := h.tripSvc.Accept(c.Request.Context(), tripID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTripResponse(trip))
}

// Start handles POST /api/v1/trips/:id/start.
func (h *TripHandler) Start(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(c)
	if !ok {
		return
	}

	trip, err := h.tripSvc.Start(c.Request.Context(), tripID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTripResponse(trip))
}

// ProposePrice handles PUT /api/v1/trips/:id/price.
func (h *TripHandler) ProposePrice(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	tripID, ok := tripIDParam(c)
	if !ok {
		return
	}

	var req dto.ProposePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	trip, err := h.tripSvc.ProposePrice(c.Request.Context(), tripID, userID, req.Price)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTripResponse(trip))
}

// List handles GET /api/v1/trips.
func (h *TripHandler) List(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	trips, err := h.tripSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TripResponse, 0, len(trips))
	for i := range trips {
		out = append(out, toTripResponse(&trips[i]))
	}
	response.OK(c, out)
}

func toTripResponse(t *domain.Trip) dto.TripResponse {
	resp := dto.TripResponse{
		ID:                 t.ID.String(),
		RiderID:            t.RiderID.String(),
		Origin:             t.Origin,
		Destination:        t.Destination,
		ProposedPrice:      t.ProposedPrice,
		Status:             string(t.Status),
		CancellationReason: t.CancellationReason,
		StartedAt:          dto.FormatTimePtr(t.StartedAt),
		CreatedAt:          dto.FormatTime(t.CreatedAt),
	}
	if t.DriverID != nil {
		s := t.DriverID.String()
		resp.DriverID = &s
	}
	return resp
}
