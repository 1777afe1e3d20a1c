package middleware

import (
	"errors"
	"net/http"

	"go-recruitment-scheduler/internal/delivery/http/response"
	"go-recruitment-scheduler/pkg/apperror"
	"go-recruitment-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body for failed requests
type ErrorResponse struct {
	Kind    apperror.Kind          `json:"kind"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
			response.Error(c, appErr.Code, appErr.Message, ErrorResponse{Kind: appErr.Kind, Details: appErr.Details})
			return
		}

		// SECURITY: Never expose internal error details to clients.
		logger.Log.Error("internal server error",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(RequestIDKey),
		)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.",
			ErrorResponse{Kind: apperror.KindInternal})
	}
}
