package reschedule

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
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type Request struct {
	BookingID string         `json:"booking_id" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Date      civildate.Date `json:"date" validate:"required,datekey"`
	Slot      model.Slot     `json:"slot" validate:"required,slot"`
}

type Service struct {
	calendar *calendar.Service
	lookup   *appointment.Service
	repo     repository.AppointmentRepository
	events   event.Emitter
	auditor  *audit.Service
	clock    *civildate.Clock
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	cal *calendar.Service,
	lookup *appointment.Service,
	repo repository.AppointmentRepository,
	events event.Emitter,
	auditor *audit.Service,
	clock *civildate.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		calendar: cal,
		lookup:   lookup,
		repo:     repo,
		events:   events,
		auditor:  auditor,
		clock:    clock,
		logger:   log,
		metrics:  m,
	}
}

// Reschedule moves a confirmed appointment to another date and slot. The
// new slot is claimed before anything else changes and the old one is
// released last, so a failure at any step leaves the original booking intact.
func (s *Service) Reschedule(ctx context.Context, req *Request) (*model.Appointment, error) {
	req.Slot = model.Slot(strings.ToUpper(string(req.Slot)))
	if err := validator.Struct(req); err != nil {
		return nil, errors.BadRequest(validator.Summary(err), err)
	}

	apt, err := s.lookup.Find(ctx, req.BookingID, req.Email)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	if apt.EffectiveStatus(today) != model.AppointmentStatusConfirmed {
		return nil, errors.NotFound("booking", nil)
	}
	if !apt.AppointmentDate.After(today) {
		return nil, errors.NotEligible("same-day appointments can only be changed by the operator", nil)
	}

	from := apt.Ref()
	to := model.SlotRef{Date: req.Date, Slot: req.Slot}
	if from == to {
		return nil, errors.BadRequest("new date and slot are the same as the current booking", nil)
	}
	if !to.Date.After(today) {
		return nil, s.fail("conflict", errors.SlotUnavailable("rescheduling requires a future date", nil))
	}

	offered, err := s.calendar.IsOffered(ctx, to)
	if err != nil {
		return nil, s.fail("failed", err)
	}
	if !offered {
		return nil, s.fail("conflict", errors.SlotUnavailable("", nil))
	}

	if err := s.calendar.Claim(ctx, to); err != nil {
		return nil, s.fail("conflict", err)
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{"booking_id": apt.BookingID})

	if err := s.repo.Reschedule(ctx, apt.ID, from, to); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrSlotTaken):
			// Held by another confirmed appointment; not ours to release.
			log.Warn("calendar and appointments disagree", "slot", to.String())
			return nil, s.fail("conflict", errors.SlotUnavailable("", err))
		case stderrors.Is(err, repository.ErrStaleState):
			s.calendar.ReleaseReliably(ctx, to, "reschedule lost race", apt.BookingID)
			return nil, s.fail("conflict", errors.NotFound("booking", err))
		default:
			log.Error(err, "failed to move appointment, compensating", "to", to.String())
			s.calendar.ReleaseReliably(ctx, to, "reschedule persistence failure", apt.BookingID)
			return nil, s.fail("failed", errors.Persistence(err))
		}
	}

	s.calendar.ReleaseReliably(ctx, from, "rescheduled", apt.BookingID)

	apt.AppointmentDate = to.Date
	apt.Time = to.Slot
	s.metrics.Reschedules.WithLabelValues("rescheduled").Inc()

	payload := event.NewBookingEvent(apt)
	payload.PreviousDate = from.Date.String()
	payload.PreviousSlot = from.Slot
	if err := s.events.Emit(ctx, model.EventAppointmentRescheduled, apt.BookingID, payload); err != nil {
		log.Error(err, "failed to emit appointment.rescheduled")
	}
	s.auditor.Record(ctx, model.AuditActorCustomer, model.AuditActionReschedule, model.AuditEntityAppointment, apt.BookingID,
		&audit.LogOptions{Changes: map[string]interface{}{"from": from, "to": to}})
	log.Info("appointment rescheduled", "from", from.String(), "to", to.String())

	return apt, nil
}

func (s *Service) fail(result string, err error) error {
	s.metrics.Reschedules.WithLabelValues(result).Inc()
	return err
}
