package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/persistkit/errors"
)

// BodySizeLimit caps request bodies at maxBytes. A declared Content-Length
// over the cap is rejected with 413 before the handler runs; undeclared
// bodies are wrapped in http.MaxBytesReader so reading past the cap fails
// with *http.MaxBytesError. A non-positive maxBytes disables the limit.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			appErr := apperrors.PayloadTooLarge(maxBytes)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
