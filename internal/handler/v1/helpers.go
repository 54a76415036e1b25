package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// PrescriptionStateResponse carries the current prescription state so the
// caller can decide on remediation.
type PrescriptionStateResponse struct {
	Error              string `json:"error"`
	PrescriptionStatus string `json:"prescription_status,omitempty"`
	VerificationStatus string `json:"verification_status"`
	Revoked            bool   `json:"revoked"`
	Reason             string `json:"reason,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var stateErr *prescription.InvalidStateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusBadRequest, PrescriptionStateResponse{
			Error:              stateErr.Error(),
			VerificationStatus: string(stateErr.VerificationStatus),
			Revoked:            stateErr.Revoked,
		})
		return
	}

	var invalidErr *order.PrescriptionInvalidError
	if errors.As(err, &invalidErr) {
		c.JSON(http.StatusBadRequest, PrescriptionStateResponse{
			Error:              invalidErr.Error(),
			PrescriptionStatus: string(invalidErr.PrescriptionStatus),
			VerificationStatus: string(invalidErr.VerificationStatus),
			Revoked:            invalidErr.Revoked,
			Reason:             invalidErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, prescription.ErrInvalidOutcome),
		errors.Is(err, prescription.ErrInvalidMethod),
		errors.Is(err, prescription.ErrRevokeReasonRequired),
		errors.Is(err, prescription.ErrRejectReasonRequired),
		errors.Is(err, prescription.ErrExpirationInPast),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, order.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

func mustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authentication"})
		return domain.Actor{}, false
	}
	return actor, true
}
