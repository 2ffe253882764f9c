package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// Recovery turns a panic into a 500 AppError response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))
		sendErrorResponse(c, appErr)
	})
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// ErrorResponder renders the last error a handler attached with c.Error.
func ErrorResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Wrap(err, errors.ErrCodeInternal, "handler error occurred")
		}
		sendErrorResponse(c, appErr)
	}
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError) {
	requestID := RequestIDFrom(c)
	appErr.WithRequestID(requestID).
		WithContext("path", c.Request.URL.Path).
		WithContext("method", c.Request.Method)

	logError(c, appErr)

	c.AbortWithStatusJSON(StatusCode(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// StatusCode maps an application error code onto an HTTP status.
func StatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodePoolExhausted:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeDependency, errors.ErrCodeTelegramAPI:
		return http.StatusBadGateway
	case errors.ErrCodeCache:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func logError(c *gin.Context, appErr *errors.AppError) {
	var ev *zerolog.Event
	switch {
	case appErr.IsInternal():
		ev = logger.Error()
	case appErr.IsUnauthorized():
		ev = logger.Warn()
	default:
		ev = logger.Info()
	}

	ev = ev.
		Str("request_id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code))
	if len(appErr.Details) > 0 {
		ev = ev.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		ev = ev.Err(appErr.Cause)
	}
	ev.Msg(appErr.Message)
}

func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return "unknown"
}
