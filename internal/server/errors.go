package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	clientdomain "github.com/smallbiznis/chaseless/internal/client/domain"
	followupdomain "github.com/smallbiznis/chaseless/internal/followup/domain"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/invoice/sequence"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError turns a domain error into a status and a stable body. The message
// is the sentinel text, never the wrapped detail.
func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: sentinelMessage(err, validationErrors)}

	case matchesAny(err, unauthorizedErrors):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: sentinelMessage(err, unauthorizedErrors)}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: sentinelMessage(err, notFoundErrors)}

	case isConflictError(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: sentinelMessage(err, conflictErrors)}

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: ErrRateLimited.Error()}

	case errors.Is(err, paymentdomain.ErrProcessorFailed):
		return http.StatusBadGateway, errorPayload{Type: "upstream_error", Message: paymentdomain.ErrProcessorFailed.Error()}

	case errors.Is(err, paymentdomain.ErrInvalidConfig),
		errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, sequence.ErrLockNotObtained):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: sentinelMessage(err, unavailableErrors)}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

var validationErrors = []error{
	ErrInvalidRequest,
	invoicedomain.ErrInvalidClient,
	invoicedomain.ErrInvalidIssueDate,
	invoicedomain.ErrInvalidDueDate,
	invoicedomain.ErrEmptyItems,
	invoicedomain.ErrInvalidItem,
	invoicedomain.ErrInvalidStatus,
	invoicedomain.ErrInvalidReminderDays,
	clientdomain.ErrInvalidName,
	clientdomain.ErrInvalidEmail,
	issuerdomain.ErrInvalidEmail,
	followupdomain.ErrInvalidMethod,
	followupdomain.ErrInvalidMessage,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidPayload,
	paymentdomain.ErrInvalidEvent,
	auditdomain.ErrInvalidAction,
}

var unauthorizedErrors = []error{
	ErrUnauthorized,
	paymentdomain.ErrInvalidSignature,
	invoicedomain.ErrInvalidIssuer,
	clientdomain.ErrInvalidIssuer,
	issuerdomain.ErrInvalidIssuer,
	auditdomain.ErrInvalidIssuer,
}

// Malformed ids read as not found so a caller cannot tell a bad id from
// someone else's invoice.
var notFoundErrors = []error{
	ErrNotFound,
	invoicedomain.ErrNotFound,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrClientNotFound,
	clientdomain.ErrNotFound,
	clientdomain.ErrInvalidID,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	invoicedomain.ErrPaidImmutable,
	invoicedomain.ErrNumberConflict,
	paymentdomain.ErrNotPayable,
	paymentdomain.ErrAccountMissing,
}

var unavailableErrors = []error{
	paymentdomain.ErrInvalidConfig,
	ErrServiceUnavailable,
	sequence.ErrLockNotObtained,
}

func isValidationError(err error) bool {
	return matchesAny(err, validationErrors)
}

func isNotFoundError(err error) bool {
	return matchesAny(err, notFoundErrors)
}

func isConflictError(err error) bool {
	return matchesAny(err, conflictErrors)
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func sentinelMessage(err error, targets []error) string {
	for _, target := range targets {
		if errors.Is(err, target) {
			return strings.TrimSpace(target.Error())
		}
	}
	return err.Error()
}

// classifyErrorForLog feeds the request log line.
func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
}
