package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/push/internal/domain/push"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// statusFor maps controller errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, push.ErrOwnershipConflict):
		return http.StatusConflict
	case errors.Is(err, push.ErrPermissionDenied), errors.Is(err, transport.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, push.ErrNotFound):
		return http.StatusNotFound
	case invalid(err):
		return http.StatusBadRequest
	case errors.Is(err, push.ErrReservationFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, push.ErrPersistenceFailure), errors.Is(err, push.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable error kind returned to clients
func errorCode(err error) string {
	switch {
	case errors.Is(err, push.ErrOwnershipConflict):
		return "ownership_conflict"
	case errors.Is(err, push.ErrPermissionDenied), errors.Is(err, transport.ErrPermission):
		return "permission_denied"
	case errors.Is(err, push.ErrNotFound):
		return "not_found"
	case invalid(err):
		return "invalid_request"
	case errors.Is(err, push.ErrReservationFailure):
		return "reservation_failure"
	case errors.Is(err, push.ErrPersistenceFailure):
		return "persistence_failure"
	case errors.Is(err, push.ErrClosed):
		return "shutting_down"
	default:
		return "internal"
	}
}

func invalid(err error) bool {
	return errors.Is(err, transport.ErrInvalidConnection) ||
		errors.Is(err, transport.ErrInvalidFilter) ||
		errors.Is(err, transport.ErrUnsupportedScheme)
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error": err.Error(),
		"code":  errorCode(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": msg,
		"code":  "invalid_request",
	})
}
