package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/server"
)

// FactoryStatus is the body of GET /v1/factory.
type FactoryStatus struct {
	State string             `json:"state"`
	Stats *persistence.Stats `json:"stats,omitempty"`
}

// FactoryHandler reports the shared factory's lifecycle state.
type FactoryHandler struct {
	mgr *persistence.Manager
}

// Status answers 200 while the factory is open and 503 otherwise, so it
// doubles as a data-store readiness check.
func (fh FactoryHandler) Status(c *gin.Context) {
	state := fh.mgr.State()
	body := FactoryStatus{State: state.String()}
	if f, err := fh.mgr.Factory(); err == nil {
		stats := f.Stats()
		body.Stats = &stats
	}

	if state != persistence.StateOpen {
		c.JSON(http.StatusServiceUnavailable, server.DataResponse{Data: body})
		return
	}
	server.RespondOK(c, body)
}
