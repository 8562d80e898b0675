package cancellation

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/internal/service/calendar"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/internal/service/refund"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type Request struct {
	BookingID string `json:"booking_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

type Service struct {
	calendar   *calendar.Service
	lookup     *appointment.Service
	repo       repository.AppointmentRepository
	calculator *refund.Calculator
	events     event.Emitter
	auditor    *audit.Service
	clock      *civildate.Clock
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	cal *calendar.Service,
	lookup *appointment.Service,
	repo repository.AppointmentRepository,
	calculator *refund.Calculator,
	events event.Emitter,
	auditor *audit.Service,
	clock *civildate.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		calendar:   cal,
		lookup:     lookup,
		repo:       repo,
		calculator: calculator,
		events:     events,
		auditor:    auditor,
		clock:      clock,
		logger:     log,
		metrics:    m,
	}
}

// cancelable resolves the appointment and checks it may still be canceled.
func (s *Service) cancelable(ctx context.Context, bookingID, email string) (*model.Appointment, civildate.Date, error) {
	apt, err := s.lookup.Find(ctx, bookingID, email)
	if err != nil {
		return nil, civildate.Date{}, err
	}

	today := s.clock.Today()
	switch apt.EffectiveStatus(today) {
	case model.AppointmentStatusCanceled:
		return nil, today, errors.AlreadyCanceled(nil)
	case model.AppointmentStatusCompleted:
		return nil, today, errors.NotEligible("completed appointments cannot be canceled", nil)
	}
	return apt, today, nil
}

func (s *Service) breakdown(apt *model.Appointment, today civildate.Date) (model.RefundBreakdown, error) {
	return s.calculator.Calculate(refund.Input{
		ChargedAmount:  apt.ChargedAmount,
		ApplicationFee: apt.ApplicationFee,
		PaypalFee:      apt.PaypalFee,
		NoticeDays:     today.DaysUntil(apt.AppointmentDate),
	})
}

// Quote reports what Cancel would refund right now without changing anything.
func (s *Service) Quote(ctx context.Context, bookingID, email string) (*model.RefundResult, error) {
	apt, today, err := s.cancelable(ctx, bookingID, email)
	if err != nil {
		return nil, err
	}
	b, err := s.breakdown(apt, today)
	if err != nil {
		return nil, err
	}
	return &model.RefundResult{
		BookingID: apt.BookingID,
		Status:    apt.Status,
		Refund:    b.Rounded(),
		Quote:     true,
	}, nil
}

// Cancel transitions a confirmed appointment to CANCELED, frees its slot and
// returns the refund owed. The reason is recorded but never changes the amount.
func (s *Service) Cancel(ctx context.Context, req *Request) (*model.RefundResult, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validator.Struct(req); err != nil {
		return nil, errors.BadRequest(validator.Summary(err), err)
	}

	apt, today, err := s.cancelable(ctx, req.BookingID, req.Email)
	if err != nil {
		return nil, s.fail(err)
	}

	b, err := s.breakdown(apt, today)
	if err != nil {
		return nil, s.fail(err)
	}
	refundAmount := b.RefundAmount.Round(2)
	canceledAt := s.clock.Now()

	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{"booking_id": apt.BookingID})

	if err := s.repo.Cancel(ctx, apt.ID, req.Reason, canceledAt, refundAmount); err != nil {
		if stderrors.Is(err, repository.ErrStaleState) {
			// Lost a race with another cancel or a reschedule.
			if current, lookupErr := s.lookup.Find(ctx, req.BookingID, req.Email); lookupErr == nil &&
				current.Status == model.AppointmentStatusCanceled {
				return nil, s.fail(errors.AlreadyCanceled(err))
			}
			return nil, s.fail(errors.NotFound("booking", err))
		}
		log.Error(err, "failed to cancel appointment")
		return nil, s.fail(errors.Persistence(err))
	}

	s.calendar.ReleaseReliably(ctx, apt.Ref(), "canceled", apt.BookingID)

	apt.Status = model.AppointmentStatusCanceled
	view := b.Rounded()
	tier := "partial"
	if s.calculator.IsFullTier(b) {
		tier = "full"
	}
	s.metrics.Cancellations.WithLabelValues(tier).Inc()
	s.metrics.RefundAmount.Observe(refundAmount.InexactFloat64())

	payload := event.NewBookingEvent(apt)
	payload.Refund = &view
	payload.Reason = req.Reason
	if err := s.events.Emit(ctx, model.EventAppointmentCanceled, apt.BookingID, payload); err != nil {
		log.Error(err, "failed to emit appointment.canceled")
	}
	s.auditor.Record(ctx, model.AuditActorCustomer, model.AuditActionCancel, model.AuditEntityAppointment, apt.BookingID,
		&audit.LogOptions{
			Changes:  map[string]interface{}{"status": model.AppointmentStatusCanceled, "refund_amount": view.RefundAmount},
			Metadata: map[string]interface{}{"reason": req.Reason, "notice_days": b.NoticeDays},
		})
	log.Info("appointment canceled", "refund_amount", view.RefundAmount, "notice_days", b.NoticeDays)

	return &model.RefundResult{
		BookingID:  apt.BookingID,
		Status:     model.AppointmentStatusCanceled,
		Refund:     view,
		CanceledAt: &canceledAt,
	}, nil
}

func (s *Service) fail(err error) error {
	s.metrics.Cancellations.WithLabelValues("rejected").Inc()
	return err
}
