package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seochat/internal/pkg/apperr"
)

type ErrorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes {"success": true} merged with fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error maps err to its status and writes the error envelope. Internal
// errors never leak their message.
func Error(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	if code == "" {
		code = apperr.CodeInternal
	}
	c.JSON(Status(code), ErrorBody{
		Success: false,
		Code:    string(code),
		Message: apperr.MessageOf(err),
	})
}

// Abort is Error for middleware.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func Status(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeConflict:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case apperr.CodeBadUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
