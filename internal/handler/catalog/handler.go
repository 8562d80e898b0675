package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// Handler serves the configured service catalog.
type Handler struct {
	entries []model.CatalogEntry
}

func NewHandler(entries []model.CatalogEntry) *Handler {
	return &Handler{entries: entries}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/services", h.List)
}

func (h *Handler) List(c *gin.Context) {
	httputil.RespondWithList(c, h.entries, len(h.entries))
}
