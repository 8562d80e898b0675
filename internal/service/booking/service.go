package booking

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/internal/service/calendar"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

const bookingIDAttempts = 3

type Config struct {
	// IdempotencyTTL must cover the checkout window so retries of a paid
	// checkout are answered from memory.
	IdempotencyTTL time.Duration
}

// ConfirmRequest turns a captured payment and a draft into an appointment.
type ConfirmRequest struct {
	RequestID string                    `json:"request_id" validate:"required,requestid"`
	Payment   model.PaymentConfirmation `json:"payment"`
	Draft     model.BookingDraft        `json:"booking"`
}

// Result reports whether the appointment was created by this call or an
// earlier one with the same request id.
type Result struct {
	Appointment *model.Appointment
	Replayed    bool
}

type Service struct {
	calendar *calendar.Service
	repo     repository.AppointmentRepository
	events   event.Emitter
	auditor  *audit.Service
	clock    *civildate.Clock
	logger   *logger.Logger
	metrics  *metrics.Metrics

	recent   *cache.Cache
	inflight singleflight.Group
	newID    func() (string, error)
}

func NewService(
	cal *calendar.Service,
	repo repository.AppointmentRepository,
	events event.Emitter,
	auditor *audit.Service,
	clock *civildate.Clock,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	ttl := config.IdempotencyTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		calendar: cal,
		repo:     repo,
		events:   events,
		auditor:  auditor,
		clock:    clock,
		logger:   log,
		metrics:  m,
		recent:   cache.New(ttl, ttl/2),
		newID:    NewBookingID,
	}
}

// Confirm creates the appointment for a paid checkout. Calls sharing a
// request id return the same appointment and claim the slot at most once.
func (s *Service) Confirm(ctx context.Context, req *ConfirmRequest) (*Result, error) {
	normalize(req)
	if err := validator.Struct(req); err != nil {
		return nil, errors.BadRequest(validator.Summary(err), err)
	}

	v, err, _ := s.inflight.Do(req.RequestID, func() (interface{}, error) {
		return s.confirm(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	apt := *res.Appointment
	return &Result{Appointment: &apt, Replayed: res.Replayed}, nil
}

func normalize(req *ConfirmRequest) {
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Draft.Slot = model.Slot(strings.ToUpper(string(req.Draft.Slot)))
	req.Draft.Service = model.ServiceType(strings.ToUpper(string(req.Draft.Service)))
	req.Draft.Email = strings.TrimSpace(req.Draft.Email)
	req.Draft.ClientName = strings.TrimSpace(req.Draft.ClientName)
}

func (s *Service) confirm(ctx context.Context, req *ConfirmRequest) (*Result, error) {
	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{"request_id": req.RequestID})

	if existing, err := s.existing(ctx, req.RequestID); err != nil || existing != nil {
		return existing, err
	}

	ref := model.SlotRef{Date: req.Draft.Date, Slot: req.Draft.Slot}
	if !ref.Date.After(s.clock.Today()) {
		s.metrics.Bookings.WithLabelValues("conflict").Inc()
		return nil, errors.SlotUnavailable("bookings must be for a future date", nil)
	}

	if err := s.calendar.Claim(ctx, ref); err != nil {
		// Another instance may have finished this very checkout.
		if stderrors.Is(err, errors.SlotUnavailableError) {
			if existing, lookupErr := s.existing(ctx, req.RequestID); lookupErr == nil && existing != nil {
				return existing, nil
			}
			s.metrics.Bookings.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	apt := &model.Appointment{
		RequestID:       req.RequestID,
		PaymentOrderID:  req.Payment.OrderID,
		ClientName:      req.Draft.ClientName,
		Email:           req.Draft.Email,
		Phone:           req.Draft.Phone,
		Address:         req.Draft.Address,
		AppointmentDate: ref.Date,
		Time:            ref.Slot,
		Service:         req.Draft.Service,
		Notes:           req.Draft.Notes,
		Status:          model.AppointmentStatusConfirmed,
		ChargedAmount:   req.Payment.ChargedAmount,
		ApplicationFee:  req.Payment.ApplicationFee,
		PaypalFee:       req.Payment.PaypalFee,
	}

	err := s.persist(ctx, apt)
	switch {
	case err == nil:
	case stderrors.Is(err, repository.ErrDuplicateRequest):
		s.calendar.ReleaseReliably(ctx, ref, "duplicate request", "")
		existing, lookupErr := s.existing(ctx, req.RequestID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing == nil {
			return nil, errors.Persistence(fmt.Errorf("request %s reported duplicate but not found", req.RequestID))
		}
		return existing, nil
	case stderrors.Is(err, repository.ErrSlotTaken):
		// The calendar said open but a confirmed appointment holds the slot;
		// the claim belongs to that appointment, so nothing is released.
		s.metrics.Bookings.WithLabelValues("conflict").Inc()
		log.Warn("calendar and appointments disagree", "slot", ref.String())
		return nil, errors.SlotUnavailable("", err)
	default:
		s.metrics.Bookings.WithLabelValues("failed").Inc()
		log.Error(err, "failed to persist appointment, compensating", "slot", ref.String())
		s.calendar.ReleaseReliably(ctx, ref, "confirm persistence failure", "")
		return nil, errors.Persistence(err)
	}

	s.metrics.Bookings.WithLabelValues("confirmed").Inc()
	s.recent.SetDefault(req.RequestID, apt.BookingID)

	if err := s.events.Emit(ctx, model.EventBookingConfirmed, apt.BookingID, event.NewBookingEvent(apt)); err != nil {
		log.Error(err, "failed to emit booking.confirmed", "booking_id", apt.BookingID)
	}
	s.auditor.Record(ctx, model.AuditActorCustomer, model.AuditActionConfirm, model.AuditEntityAppointment, apt.BookingID,
		&audit.LogOptions{Metadata: map[string]interface{}{
			"request_id":       apt.RequestID,
			"payment_order_id": apt.PaymentOrderID,
			"slot":             ref.String(),
		}})
	log.Info("booking confirmed", "booking_id", apt.BookingID, "slot", ref.String())

	return &Result{Appointment: apt}, nil
}

// persist retries only booking id collisions.
func (s *Service) persist(ctx context.Context, apt *model.Appointment) error {
	var err error
	for i := 0; i < bookingIDAttempts; i++ {
		if apt.BookingID, err = s.newID(); err != nil {
			return err
		}
		err = s.repo.Create(ctx, apt)
		if !stderrors.Is(err, repository.ErrDuplicateBookingID) {
			return err
		}
	}
	return err
}

// existing looks for an appointment already created for requestID. The
// retention cache maps request ids to booking ids; the row itself is always
// read from the store so a replay reflects later reschedules and cancels.
func (s *Service) existing(ctx context.Context, requestID string) (*Result, error) {
	var (
		apt *model.Appointment
		err error
	)
	if v, ok := s.recent.Get(requestID); ok {
		apt, err = s.repo.GetByBookingID(ctx, v.(string))
	} else {
		apt, err = s.repo.GetByRequestID(ctx, requestID)
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Persistence(err)
	}
	s.recent.SetDefault(requestID, apt.BookingID)
	s.metrics.Bookings.WithLabelValues("duplicate").Inc()
	return &Result{Appointment: apt, Replayed: true}, nil
}
