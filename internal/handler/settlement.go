package handler

import (
	"net/http"
	"time"

	"tillpoint/internal/apierror"
	"tillpoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SettlementHandler struct{ svc service.SettlementService }

func NewSettlementHandler(svc service.SettlementService) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

// Summary godoc
// @Summary Recomputes the settlement summary for a location and business date
// @Tags settlement
// @Produce json
// @Security BearerAuth
// @Param location_id query string true "Location ID"
// @Param business_date query string true "Business date (YYYY-MM-DD)"
// @Success 200 {object} dto.SettlementSummary
// @Failure 400 {object} apierror.APIError
// @Router /v1/settlement-summary [get]
func (h *SettlementHandler) Summary(c *gin.Context) {
	locationID, err := uuid.Parse(c.Query("location_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("bad_request", "invalid location_id"))
		return
	}
	businessDate := c.Query("business_date")
	if _, err := time.Parse("2006-01-02", businessDate); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("bad_request", "business_date must be YYYY-MM-DD"))
		return
	}

	resp, err := h.svc.Summary(c.Request.Context(), locationID, businessDate)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
