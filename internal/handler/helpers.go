package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tillpoint/internal/apierror"
	"tillpoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid_json", "invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeServiceError translates core error kinds into stable wire codes.
// Anything unrecognized surfaces as a generic 400 with the message only.
func writeServiceError(c *gin.Context, err error) {
	var checklistErr *service.ChecklistIncompleteError
	switch {
	case errors.As(err, &checklistErr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewChecklist(checklistErr.Missing))
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, apierror.New("session_not_found", err.Error()))
	case errors.Is(err, service.ErrDayNotFound):
		c.JSON(http.StatusNotFound, apierror.New("day_not_found", err.Error()))
	case errors.Is(err, service.ErrAlreadyClosed):
		c.JSON(http.StatusConflict, apierror.New("already_closed", err.Error()))
	case errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, apierror.New("invalid_state_transition", err.Error()))
	case errors.Is(err, service.ErrMissingVarianceReason):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("missing_variance_reason", err.Error()))
	case errors.Is(err, service.ErrCountedCashRequired):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("validation_error", err.Error()))
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.New("storage_unavailable", "storage unavailable, retry later"))
	default:
		c.JSON(http.StatusBadRequest, apierror.New("bad_request", err.Error()))
	}
}
