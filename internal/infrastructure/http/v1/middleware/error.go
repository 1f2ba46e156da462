package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orgregistry/internal/core/apperror"
	"orgregistry/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
// Validation and integrity errors carry the full violation set so the
// caller can fix everything in one round trip.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			if len(appErr.Violations) > 0 {
				body["violations"] = appErr.Violations
			}
			if len(appErr.Details) > 0 {
				body["details"] = appErr.Details
			}

			c.JSON(appErr.HTTPStatus, body)
			return
		}

		// Unknown error: log and return generic message.
		logger.Error(c.Request.Context(), "unhandled error", "error", err)

		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString("request_id"),
			},
		})
	}
}
