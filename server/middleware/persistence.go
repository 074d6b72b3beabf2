package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/persistkit/errors"
	"github.com/kbukum/persistkit/persistence"
)

// HandleKey is the gin context key holding the request's persistence handle.
const HandleKey = "persistence.handle"

// PersistenceHandle binds one persistence handle to each request and
// closes it once the rest of the chain returns, including on panic. An
// uninitialized or closed factory answers 503 without running the chain.
func PersistenceHandle(mgr *persistence.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := mgr.Factory()
		if err != nil {
			abort(c, persistence.FromDatabase(err, ""))
			return
		}

		ran := false
		err = persistence.WithHandle(c.Request.Context(), f, func(h *persistence.Handle) error {
			ran = true
			c.Set(HandleKey, h)
			c.Next()
			return nil
		})
		if err == nil {
			return
		}
		if !ran {
			abort(c, persistence.FromDatabase(err, ""))
			return
		}
		// The chain completed but releasing the handle failed.
		_ = c.Error(err)
	}
}

// HandleFrom returns the persistence handle bound by PersistenceHandle.
func HandleFrom(c *gin.Context) (*persistence.Handle, bool) {
	v, ok := c.Get(HandleKey)
	if !ok {
		return nil, false
	}
	h, ok := v.(*persistence.Handle)
	return h, ok
}

func abort(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
