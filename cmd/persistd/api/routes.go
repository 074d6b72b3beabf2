// Package api implements the persistd HTTP resources.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/server/middleware"
)

// Register mounts the /v1 routes. Note routes run behind the
// per-request persistence handle middleware; the factory status route
// does not, so it answers even when the factory is closed.
func Register(r gin.IRouter, mgr *persistence.Manager) {
	v1 := r.Group("/v1")

	fh := FactoryHandler{mgr: mgr}
	v1.GET("/factory", fh.Status)

	var nh NoteHandler
	notes := v1.Group("/notes", middleware.PersistenceHandle(mgr))
	notes.GET("", nh.List)
	notes.POST("", nh.Create)
	notes.GET("/:id", nh.Get)
	notes.PUT("/:id", nh.Update)
	notes.DELETE("/:id", nh.Delete)
}
