// Package servicetest wires the lifecycle services against the in-memory
// store with a controllable clock.
package servicetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/internal/service/booking"
	"github.com/jwalitptl/booking-api/internal/service/calendar"
	"github.com/jwalitptl/booking-api/internal/service/cancellation"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/internal/service/refund"
	"github.com/jwalitptl/booking-api/internal/service/reschedule"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// DefaultNow is 2026-03-10 10:00 UTC.
var DefaultNow = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)

type Fixture struct {
	Store   *memory.Store
	Clock   *civildate.Clock
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	CalendarRepo    repository.CalendarRepository
	AppointmentRepo repository.AppointmentRepository

	Events       *event.EventService
	Auditor      *audit.Service
	Calendar     *calendar.Service
	Appointments *appointment.Service
	Refunds      *refund.Calculator
	Booking      *booking.Service
	Reschedule   *reschedule.Service
	Cancellation *cancellation.Service

	mu  sync.Mutex
	now time.Time
}

type Option func(*Fixture)

// WithNow sets the initial instant.
func WithNow(now time.Time) Option {
	return func(f *Fixture) { f.now = now }
}

// WithLocation sets the civil zone.
func WithLocation(loc *time.Location) Option {
	return func(f *Fixture) { f.Clock = civildate.NewClock(loc, f.Now) }
}

// WithCalendarRepo wraps the in-memory calendar, e.g. to inject failures.
func WithCalendarRepo(wrap func(repository.CalendarRepository) repository.CalendarRepository) Option {
	return func(f *Fixture) { f.CalendarRepo = wrap(f.CalendarRepo) }
}

// WithAppointmentRepo wraps the in-memory appointment store.
func WithAppointmentRepo(wrap func(repository.AppointmentRepository) repository.AppointmentRepository) Option {
	return func(f *Fixture) { f.AppointmentRepo = wrap(f.AppointmentRepo) }
}

func New(t testing.TB, opts ...Option) *Fixture {
	t.Helper()

	f := &Fixture{
		Store:   memory.New(),
		Metrics: metrics.NewNop(),
		Logger:  logger.Nop(),
		now:     DefaultNow,
	}
	f.Clock = civildate.NewClock(time.UTC, f.Now)
	f.CalendarRepo = f.Store.Calendar
	f.AppointmentRepo = f.Store.Appointments

	for _, opt := range opts {
		opt(f)
	}

	f.Events = event.NewEventService(f.Store.Outbox)
	f.Auditor = audit.NewService(f.Store.Audit, f.Logger)
	f.Refunds = refund.NewCalculator(refund.DefaultPolicy())
	f.Calendar = calendar.NewService(f.CalendarRepo, f.Events, f.Auditor, f.Clock,
		calendar.Config{ReleaseAttempts: 2, ReleaseBackoff: time.Millisecond, MaxRangeDays: 180},
		f.Logger, f.Metrics)
	f.Appointments = appointment.NewService(f.AppointmentRepo, f.Clock)
	f.Booking = booking.NewService(f.Calendar, f.AppointmentRepo, f.Events, f.Auditor, f.Clock,
		booking.Config{IdempotencyTTL: 30 * time.Minute}, f.Logger, f.Metrics)
	f.Reschedule = reschedule.NewService(f.Calendar, f.Appointments, f.AppointmentRepo, f.Events, f.Auditor,
		f.Clock, f.Logger, f.Metrics)
	f.Cancellation = cancellation.NewService(f.Calendar, f.Appointments, f.AppointmentRepo, f.Refunds, f.Events,
		f.Auditor, f.Clock, f.Logger, f.Metrics)
	return f
}

func (f *Fixture) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixture) SetNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Today is the fixture clock's civil date.
func (f *Fixture) Today() civildate.Date {
	return f.Clock.Today()
}

// OpenDay stores an available day with the given slots open.
func (f *Fixture) OpenDay(t testing.TB, date civildate.Date, slots ...model.Slot) {
	t.Helper()
	day := &model.AvailabilityDay{Date: date, Available: true}
	for _, s := range slots {
		day.SetSlot(s, true)
	}
	require.NoError(t, f.Store.Calendar.UpsertDay(context.Background(), day))
}

// Day reads a day straight from the store.
func (f *Fixture) Day(t testing.TB, date civildate.Date) *model.AvailabilityDay {
	t.Helper()
	day, err := f.Store.Calendar.GetDay(context.Background(), date)
	require.NoError(t, err)
	return day
}

var requestSeq struct {
	sync.Mutex
	n int
}

// RequestID returns a valid, unique idempotency key.
func RequestID() string {
	requestSeq.Lock()
	defer requestSeq.Unlock()
	requestSeq.n++
	return fmt.Sprintf("%024x", requestSeq.n)
}

// ConfirmRequest builds a paid checkout of 200.00 with 3.00 + 7.00 fees.
func ConfirmRequest(requestID string, date civildate.Date, slot model.Slot) *booking.ConfirmRequest {
	return &booking.ConfirmRequest{
		RequestID: requestID,
		Payment: model.PaymentConfirmation{
			OrderID:        "ORDER-" + requestID[len(requestID)-6:],
			ChargedAmount:  decimal.RequireFromString("200.00"),
			ApplicationFee: decimal.RequireFromString("3.00"),
			PaypalFee:      decimal.RequireFromString("7.00"),
		},
		Draft: model.BookingDraft{
			Date:       date,
			Slot:       slot,
			Service:    model.ServiceRepair,
			ClientName: "Ana Torres",
			Email:      "ana@example.com",
			Phone:      "555-0100",
			Address:    "1 Main St",
		},
	}
}

// Book opens the slot and confirms a booking on it.
func (f *Fixture) Book(t testing.TB, date civildate.Date, slot model.Slot) *model.Appointment {
	t.Helper()
	day, err := f.Store.Calendar.GetDay(context.Background(), date)
	if err != nil {
		f.OpenDay(t, date, slot)
	} else {
		day.SetSlot(slot, true)
		day.Available = true
		require.NoError(t, f.Store.Calendar.UpsertDay(context.Background(), day))
	}

	res, err := f.Booking.Confirm(context.Background(), ConfirmRequest(RequestID(), date, slot))
	require.NoError(t, err)
	return res.Appointment
}

// EventTypes lists outbox event types in creation order.
func (f *Fixture) EventTypes() []string {
	var types []string
	for _, e := range f.Store.Outbox.Events() {
		types = append(types, e.EventType)
	}
	return types
}
