package server

import (
	"errors"
	"net/http"
	"strings"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	clientimportdomain "github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrOrgRequired        = errors.New("org_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels map to 400 with the sentinel text as the error code.
var validationSentinels = []error{
	ErrInvalidRequest,
	ErrOrgRequired,
	pagination.ErrInvalidPageToken,
	customerdomain.ErrInvalidOrganization,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidField,
	customerdomain.ErrInvalidID,
	documentdomain.ErrInvalidOrganization,
	documentdomain.ErrInvalidID,
	documentdomain.ErrInvalidKind,
	documentdomain.ErrInvalidStatus,
	documentdomain.ErrInvalidCustomer,
	documentdomain.ErrInvalidDueDate,
	documentdomain.ErrInvalidField,
	documentdomain.ErrMissingRecipient,
	documentdomain.ErrItemPrecision,
	accountdomain.ErrInvalidOrganization,
	accountdomain.ErrInvalidEmail,
	accountdomain.ErrInvalidIndirectMode,
	accountdomain.ErrInvalidReminderDays,
	accountdomain.ErrInvalidField,
	clientimportdomain.ErrUnsupportedFileType,
	clientimportdomain.ErrNoUsableRows,
	clientimportdomain.ErrTooManyRows,
	clientimportdomain.ErrMalformedFile,
}

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
		c.Header("Content-Type", "application/json")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, documentdomain.ErrNotEditable),
		errors.Is(err, documentdomain.ErrInvalidTransition),
		errors.Is(err, documentdomain.ErrNumberConflict),
		errors.Is(err, reminderdomain.ErrDispatchInProgress):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, documentdomain.ErrNotEditable):
		return "document can no longer be edited"
	case errors.Is(err, documentdomain.ErrInvalidTransition):
		return "status change not allowed"
	case errors.Is(err, reminderdomain.ErrDispatchInProgress):
		return "reminder dispatch already running"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "org_required":
		return "X-Org-ID"
	case "missing_recipient_email":
		return "email"
	case "unsupported_file_type", "no_usable_rows", "too_many_rows", "malformed_file":
		return "file"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "org_required":
		return "X-Org-ID header is required"
	case "missing_recipient_email":
		return "client has no email address"
	case "unsupported_file_type":
		return "upload a .csv or .xlsx file"
	case "no_usable_rows":
		return "no rows with a name, email, or phone"
	case "too_many_rows":
		return "too many rows in one import"
	case "malformed_file":
		return "file could not be read"
	default:
		return "invalid value"
	}
}
