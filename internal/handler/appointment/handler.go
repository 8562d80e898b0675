package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	"github.com/jwalitptl/booking-api/internal/service/booking"
	"github.com/jwalitptl/booking-api/internal/service/cancellation"
	"github.com/jwalitptl/booking-api/internal/service/reschedule"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// Handler serves the customer side of the appointment lifecycle.
type Handler struct {
	booking      *booking.Service
	appointments *appointment.Service
	reschedule   *reschedule.Service
	cancellation *cancellation.Service
	clock        *civildate.Clock
}

func NewHandler(
	booking *booking.Service,
	appointments *appointment.Service,
	reschedule *reschedule.Service,
	cancellation *cancellation.Service,
	clock *civildate.Clock,
) *Handler {
	return &Handler{
		booking:      booking,
		appointments: appointments,
		reschedule:   reschedule,
		cancellation: cancellation,
		clock:        clock,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.Confirm)
		bookings.GET("/:bookingId", h.Get)
		bookings.GET("/:bookingId/refund-quote", h.RefundQuote)
		bookings.POST("/:bookingId/reschedule", h.Reschedule)
		bookings.POST("/:bookingId/cancel", h.Cancel)
	}
}

type emailQuery struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

type rescheduleRequest struct {
	Email string         `json:"email"`
	Date  civildate.Date `json:"date"`
	Slot  model.Slot     `json:"slot"`
}

type cancelRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Confirm answers 201 for a new appointment and 200 when the request id was
// already confirmed.
func (h *Handler) Confirm(c *gin.Context) {
	var req booking.ConfirmRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	res, err := h.booking.Confirm(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httputil.RespondWithSuccess(c, status, res.Appointment.View(h.clock.Today()))
}

func (h *Handler) Get(c *gin.Context) {
	var q emailQuery
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.appointments.Get(c.Request.Context(), c.Param("bookingId"), q.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, view)
}

func (h *Handler) RefundQuote(c *gin.Context) {
	var q emailQuery
	if err := handler.BindQuery(c, &q); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	quote, err := h.cancellation.Quote(c.Request.Context(), c.Param("bookingId"), q.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, quote)
}

func (h *Handler) Reschedule(c *gin.Context) {
	var body rescheduleRequest
	if err := handler.BindJSON(c, &body); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apt, err := h.reschedule.Reschedule(c.Request.Context(), &reschedule.Request{
		BookingID: c.Param("bookingId"),
		Email:     body.Email,
		Date:      body.Date,
		Slot:      body.Slot,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apt.View(h.clock.Today()))
}

func (h *Handler) Cancel(c *gin.Context) {
	var body cancelRequest
	if err := handler.BindJSON(c, &body); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	res, err := h.cancellation.Cancel(c.Request.Context(), &cancellation.Request{
		BookingID: c.Param("bookingId"),
		Email:     body.Email,
		Reason:    body.Reason,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, res)
}
