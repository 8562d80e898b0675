package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/calendar"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

type Handler struct {
	service *calendar.Service
}

func NewHandler(service *calendar.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/availability", h.ListAvailable)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	days := r.Group("/availability")
	{
		days.GET("", h.ListDays)
		days.POST("", h.SetDay)
		days.PUT("/:date", h.ReplaceDay)
	}
}

// ListAvailable is what the booking flow offers: future days with at least
// one open slot.
func (h *Handler) ListAvailable(c *gin.Context) {
	var q handler.DateRange
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	from, to, err := q.Dates()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	days, err := h.service.ListAvailable(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, days, len(days))
}

func (h *Handler) ListDays(c *gin.Context) {
	var q handler.DateRange
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	from, to, err := q.Dates()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	days, err := h.service.ListDays(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, days, len(days))
}

func (h *Handler) SetDay(c *gin.Context) {
	var req model.SetDayRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.setDay(c, &req)
}

// ReplaceDay takes the date from the path; a body date, if any, must agree.
func (h *Handler) ReplaceDay(c *gin.Context) {
	date, err := civildate.Parse(c.Param("date"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("date must be in YYYY-MM-DD format", err))
		return
	}

	var req model.SetDayRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !req.Date.IsZero() && !req.Date.Equal(date) {
		httputil.RespondWithError(c, errors.BadRequest("body date does not match path", nil))
		return
	}
	req.Date = date
	h.setDay(c, &req)
}

func (h *Handler) setDay(c *gin.Context, req *model.SetDayRequest) {
	res, err := h.service.SetDay(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, res)
}
