package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/apperrors"
	"clinic-appointments-server/internal/observability"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	c.JSON(http.StatusBadRequest, ResponseData{
		Status:  http.StatusBadRequest,
		Message: "An error occurred",
		Error:   errorMessage,
		Kind:    string(apperrors.KindValidation),
		Reason:  string(apperrors.ReasonInvalidInput),
	})
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	c.JSON(http.StatusForbidden, ResponseData{
		Status:  http.StatusForbidden,
		Message: "An error occurred",
		Error:   errorMessage,
		Kind:    string(apperrors.KindAuthorization),
	})
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	c.JSON(http.StatusNotFound, ResponseData{
		Status:  http.StatusNotFound,
		Message: "An error occurred",
		Error:   errorMessage,
		Kind:    string(apperrors.KindNotFound),
	})
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	c.JSON(http.StatusInternalServerError, ResponseData{
		Status:  http.StatusInternalServerError,
		Message: "An error occurred",
		Error:   errorMessage,
		Kind:    string(apperrors.KindInternal),
	})
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict, apperrors.KindInvalidTransition:
		return http.StatusConflict
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err with its kind tag. Internal failures are logged
// and their detail is withheld from the caller.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)

	message := err.Error()
	var reason string
	if appErr, ok := apperrors.As(err); ok {
		message = appErr.Message
		reason = string(appErr.Reason)
	}

	logger := observability.LoggerFromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("request failed")
		if kind == apperrors.KindInternal {
			message = "internal server error"
		}
	} else {
		logger.Debug().Err(err).Str("kind", string(kind)).Msg("request rejected")
	}

	c.JSON(status, ResponseData{
		Status:  status,
		Message: "An error occurred",
		Error:   message,
		Kind:    string(kind),
		Reason:  reason,
	})
}
