package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/observability"
)

// Tracing starts one server span per request and stores it in the request
// context, so persistence scopes opened by handlers become child spans.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := observability.StartServerSpan(c.Request.Context(), c.Request.Method, route, c.GetString(RequestIDKey))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		observability.EndServerSpan(span, c.Writer.Status(), c.Errors.String())
	}
}
