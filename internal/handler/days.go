package handler

import (
	"net/http"

	"tillpoint/internal/apierror"
	"tillpoint/internal/dto"
	"tillpoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DaysHandler struct{ svc service.DayService }

func NewDaysHandler(svc service.DayService) *DaysHandler { return &DaysHandler{svc: svc} }

// Open godoc
// @Summary Opens a business day for a location
// @Tags days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenDayRequest true "Location and business date"
// @Success 201 {object} dto.DayResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/days [post]
func (h *DaysHandler) Open(c *gin.Context) {
	var req dto.OpenDayRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.OpenDay(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Closes a business day through the checklist gate
// @Tags days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Day ID"
// @Param body body dto.CloseDayRequest true "Checklist self-certification"
// @Success 200 {object} dto.CloseDayResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ChecklistError
// @Router /v1/days/{id}/close [post]
func (h *DaysHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("bad_request", "invalid day id"))
		return
	}
	var req dto.CloseDayRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CloseDay(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a day record with its checklist state.
func (h *DaysHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("bad_request", "invalid day id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
