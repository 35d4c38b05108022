package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

// Response wraps all API responses.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an API error payload.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a 200 envelope.
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// RespondCreated sends a 201 envelope.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// RespondWithError maps an application error onto an HTTP status.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrNotFound:
			status = http.StatusNotFound
		case apperrors.ErrBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrInvalidState:
			status = http.StatusConflict
		case apperrors.ErrUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrConfigurationMissing:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, Response{Success: false, Error: &Error{Code: status, Message: message}})
}
