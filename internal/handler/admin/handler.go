package admin

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

const maxLimit = 500

// Handler serves the operator's read views.
type Handler struct {
	appointments *appointment.Service
	audit        *audit.Service
}

func NewHandler(appointments *appointment.Service, audit *audit.Service) *Handler {
	return &Handler{appointments: appointments, audit: audit}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.ListAppointments)
	r.GET("/audit-logs", h.ListAuditLogs)
}

type appointmentQuery struct {
	From   string `form:"from" json:"from" binding:"omitempty,datekey"`
	To     string `form:"to" json:"to" binding:"omitempty,datekey"`
	Status string `form:"status" json:"status" binding:"omitempty,oneof=CONFIRMED COMPLETED CANCELED confirmed completed canceled"`
	Limit  int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=500"`
}

// ListAppointments filters on the derived status, so COMPLETED is its own
// bucket rather than a kind of CONFIRMED.
func (h *Handler) ListAppointments(c *gin.Context) {
	var q appointmentQuery
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	from, err := handler.ParseDate("from", q.From)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	to, err := handler.ParseDate("to", q.To)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	filters := model.AppointmentFilters{
		From:   from,
		To:     to,
		Status: model.AppointmentStatus(strings.ToUpper(q.Status)),
		Limit:  q.Limit,
	}

	views, err := h.appointments.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, views, len(views))
}

type auditQuery struct {
	EntityType string `form:"entity_type" json:"entity_type"`
	EntityID   string `form:"entity_id" json:"entity_id"`
	Action     string `form:"action" json:"action"`
	Limit      int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=500"`
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	var q auditQuery
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = maxLimit
	}

	logs, err := h.audit.List(c.Request.Context(), &model.AuditLogFilters{
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		Action:     q.Action,
		Limit:      q.Limit,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, logs, len(logs))
}
