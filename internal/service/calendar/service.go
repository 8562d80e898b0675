package calendar

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type Config struct {
	ReleaseAttempts int
	ReleaseBackoff  time.Duration
	MaxRangeDays    int
}

func DefaultConfig() Config {
	return Config{
		ReleaseAttempts: 3,
		ReleaseBackoff:  200 * time.Millisecond,
		MaxRangeDays:    180,
	}
}

type Service struct {
	repo    repository.CalendarRepository
	events  event.Emitter
	auditor *audit.Service
	clock   *civildate.Clock
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	repo repository.CalendarRepository,
	events event.Emitter,
	auditor *audit.Service,
	clock *civildate.Clock,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if config.ReleaseAttempts < 1 {
		config.ReleaseAttempts = 1
	}
	return &Service{
		repo:    repo,
		events:  events,
		auditor: auditor,
		clock:   clock,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

// Today is the civil date every "after today" rule is measured against.
func (s *Service) Today() civildate.Date {
	return s.clock.Today()
}

func (s *Service) checkRange(from, to civildate.Date) error {
	if to.Before(from) {
		return errors.BadRequest("'to' must not be before 'from'", nil)
	}
	if s.config.MaxRangeDays > 0 && from.DaysUntil(to) > s.config.MaxRangeDays {
		return errors.BadRequest(fmt.Sprintf("range must not exceed %d days", s.config.MaxRangeDays), nil)
	}
	return nil
}

// ListAvailable returns the days customers may book in [from, to]. Today and
// earlier are never offered.
func (s *Service) ListAvailable(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}

	tomorrow := s.Today().AddDays(1)
	if from.Before(tomorrow) {
		from = tomorrow
	}
	if to.Before(from) {
		return []*model.AvailabilityDay{}, nil
	}

	days, err := s.repo.ListOfferable(ctx, from, to)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return days, nil
}

// IsOffered reports whether ref would appear in ListAvailable right now.
func (s *Service) IsOffered(ctx context.Context, ref model.SlotRef) (bool, error) {
	if !ref.Date.After(s.Today()) {
		return false, nil
	}
	day, err := s.repo.GetDay(ctx, ref.Date)
	if stderrors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Persistence(err)
	}
	return day.Offerable() && day.IsOpen(ref.Slot), nil
}

// Claim atomically takes an open slot.
func (s *Service) Claim(ctx context.Context, ref model.SlotRef) error {
	ok, err := s.repo.ClaimSlot(ctx, ref.Date, ref.Slot)
	if err != nil {
		s.metrics.SlotClaims.WithLabelValues("error").Inc()
		return errors.Persistence(err)
	}
	if !ok {
		s.metrics.SlotClaims.WithLabelValues("conflict").Inc()
		return errors.SlotUnavailable("", fmt.Errorf("slot %s is not open", ref))
	}
	s.metrics.SlotClaims.WithLabelValues("claimed").Inc()
	return nil
}

// Release reopens a slot. Releasing an open slot or a withdrawn day is a no-op.
func (s *Service) Release(ctx context.Context, ref model.SlotRef) error {
	if err := s.repo.ReleaseSlot(ctx, ref.Date, ref.Slot); err != nil {
		s.metrics.SlotReleases.WithLabelValues("error").Inc()
		return errors.Persistence(err)
	}
	s.metrics.SlotReleases.WithLabelValues("released").Inc()
	return nil
}

// ReleaseReliably releases with bounded retries. When every attempt fails
// the release is handed to the outbox worker. It ignores cancellation of
// ctx so an aborted request cannot strand a claim.
func (s *Service) ReleaseReliably(ctx context.Context, ref model.SlotRef, reason, bookingID string) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.WithContext(ctx)

	var err error
	for attempt := 0; attempt < s.config.ReleaseAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.config.ReleaseBackoff * time.Duration(attempt))
		}
		if err = s.Release(ctx, ref); err == nil {
			s.metrics.Compensations.WithLabelValues("released").Inc()
			return
		}
		log.Warn("slot release failed", "slot", ref.String(), "attempt", attempt+1, "error", err.Error())
	}

	payload := model.SlotReleasePayload{
		Date:      ref.Date.String(),
		Slot:      ref.Slot,
		BookingID: bookingID,
		Reason:    reason,
	}
	if emitErr := s.events.Emit(ctx, model.EventSlotReleaseRequested, ref.String(), payload); emitErr != nil {
		s.metrics.Compensations.WithLabelValues("lost").Inc()
		log.Error(emitErr, "slot release could not be deferred, manual release required",
			"slot", ref.String(), "booking_id", bookingID, "reason", reason, "release_error", err.Error())
		return
	}

	s.metrics.Compensations.WithLabelValues("deferred").Inc()
	log.Error(err, "slot release deferred to outbox worker",
		"slot", ref.String(), "booking_id", bookingID, "reason", reason)
}

func (s *Service) GetDay(ctx context.Context, date civildate.Date) (*model.AvailabilityDay, error) {
	day, err := s.repo.GetDay(ctx, date)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFound("availability day", err)
	}
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return day, nil
}

// ListDays is the operator view, withdrawn and fully booked days included.
func (s *Service) ListDays(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}
	days, err := s.repo.ListDays(ctx, from, to)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return days, nil
}

// SetDay replaces a day wholesale. Slots held by confirmed appointments stay
// claimed whatever the operator submitted, and are reported back.
func (s *Service) SetDay(ctx context.Context, req *model.SetDayRequest) (*model.SetDayResult, error) {
	if err := validator.Struct(req); err != nil {
		return nil, errors.BadRequest(validator.Summary(err), err)
	}
	if req.Date.Before(s.Today()) {
		return nil, errors.BadRequest("cannot edit availability for past dates", nil)
	}

	day := &model.AvailabilityDay{
		Date:      req.Date,
		Morning:   req.Morning,
		Afternoon: req.Afternoon,
		Night:     req.Night,
		Available: req.IsAvailable(),
	}
	// The store closes held slots in the same write and hands back what it kept.
	if err := s.repo.UpsertDay(ctx, day); err != nil {
		return nil, errors.Persistence(err)
	}

	var kept []model.Slot
	for _, slot := range model.Slots {
		if requested(req, slot) && !day.IsOpen(slot) {
			kept = append(kept, slot)
		}
	}

	s.auditor.Record(ctx, model.AuditActorOperator, model.AuditActionSetDay, model.AuditEntityAvailability, day.Date.String(),
		&audit.LogOptions{Changes: req, Metadata: map[string]interface{}{"kept_claimed": kept}})
	s.logger.WithContext(ctx).Info("availability day updated", "date", day.Date.String(), "kept_claimed", len(kept))

	return &model.SetDayResult{Day: day, KeptClaimed: kept}, nil
}

func requested(req *model.SetDayRequest, slot model.Slot) bool {
	switch slot {
	case model.SlotMorning:
		return req.Morning
	case model.SlotAfternoon:
		return req.Afternoon
	case model.SlotNight:
		return req.Night
	}
	return false
}
