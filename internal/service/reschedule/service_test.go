package reschedule_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/cancellation"
	"github.com/jwalitptl/booking-api/internal/service/reschedule"
	"github.com/jwalitptl/booking-api/internal/service/servicetest"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func date(s string) civildate.Date { return civildate.MustParse(s) }

func request(apt *model.Appointment, d string, slot model.Slot) *reschedule.Request {
	return &reschedule.Request{BookingID: apt.BookingID, Email: apt.Email, Date: date(d), Slot: slot}
}

func TestRescheduleMovesClaim(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-14"), model.SlotNight)

	moved, err := f.Reschedule.Reschedule(context.Background(), request(apt, "2026-03-14", "night"))
	require.NoError(t, err)
	assert.Equal(t, apt.BookingID, moved.BookingID)
	assert.Equal(t, "2026-03-14", moved.AppointmentDate.String())
	assert.Equal(t, model.SlotNight, moved.Time)
	assert.Equal(t, model.AppointmentStatusConfirmed, moved.Status)

	assert.True(t, f.Day(t, date("2026-03-12")).Morning)
	assert.False(t, f.Day(t, date("2026-03-14")).Night)
	assert.Equal(t, []string{model.EventBookingConfirmed, model.EventAppointmentRescheduled}, f.EventTypes())

	stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.SlotRef{Date: date("2026-03-14"), Slot: model.SlotNight}, stored.Ref())
}

func TestRescheduleWithinSameDay(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-12"), model.SlotAfternoon)

	_, err := f.Reschedule.Reschedule(context.Background(), request(apt, "2026-03-12", model.SlotAfternoon))
	require.NoError(t, err)

	day := f.Day(t, date("2026-03-12"))
	assert.True(t, day.Morning)
	assert.False(t, day.Afternoon)
}

func TestFailedRescheduleLeavesStateUnchanged(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-14"), model.SlotMorning)
	other := f.Book(t, date("2026-03-14"), model.SlotNight)

	cases := []struct {
		name string
		req  *reschedule.Request
		want error
	}{
		{"claimed by another booking", request(apt, other.AppointmentDate.String(), other.Time), apperrors.SlotUnavailableError},
		{"closed slot", request(apt, "2026-03-14", model.SlotAfternoon), apperrors.SlotUnavailableError},
		{"day not in calendar", request(apt, "2026-03-20", model.SlotMorning), apperrors.SlotUnavailableError},
		{"today", request(apt, "2026-03-10", model.SlotMorning), apperrors.SlotUnavailableError},
		{"same slot", request(apt, "2026-03-12", model.SlotMorning), apperrors.ValidationError},
		{"bad slot", request(apt, "2026-03-14", "EVENING"), apperrors.ValidationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Reschedule.Reschedule(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)

			stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
			require.NoError(t, err)
			assert.Equal(t, apt.Ref(), stored.Ref())
			assert.False(t, f.Day(t, date("2026-03-12")).Morning)
			assert.True(t, f.Day(t, date("2026-03-14")).Morning)
		})
	}
}

func TestRescheduleLookup(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-14"), model.SlotNight)

	t.Run("email mismatch", func(t *testing.T) {
		req := request(apt, "2026-03-14", model.SlotNight)
		req.Email = "someone@example.com"
		_, err := f.Reschedule.Reschedule(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.NotFoundError)
	})

	t.Run("unknown booking", func(t *testing.T) {
		req := request(apt, "2026-03-14", model.SlotNight)
		req.BookingID = "BK-ZZZZ-ZZZ"
		_, err := f.Reschedule.Reschedule(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.NotFoundError)
	})

	t.Run("booking id is case-insensitive", func(t *testing.T) {
		req := request(apt, "2026-03-14", model.SlotNight)
		req.BookingID = " " + strings.ToLower(apt.BookingID)
		_, err := f.Reschedule.Reschedule(context.Background(), req)
		assert.NoError(t, err)
	})
}

func TestRescheduleCanceledIsNotFound(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-14"), model.SlotNight)

	_, err := f.Cancellation.Cancel(context.Background(), &cancellation.Request{
		BookingID: apt.BookingID, Email: apt.Email, Reason: "plans changed",
	})
	require.NoError(t, err)

	_, err = f.Reschedule.Reschedule(context.Background(), request(apt, "2026-03-14", model.SlotNight))
	assert.ErrorIs(t, err, apperrors.NotFoundError)
	assert.True(t, f.Day(t, date("2026-03-14")).Night)
}

func TestRescheduleOnAppointmentDayIsNotEligible(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotNight)
	f.OpenDay(t, date("2026-03-14"), model.SlotNight)

	f.SetNow(time.Date(2026, time.March, 12, 8, 0, 0, 0, time.UTC))

	_, err := f.Reschedule.Reschedule(context.Background(), request(apt, "2026-03-14", model.SlotNight))
	assert.ErrorIs(t, err, apperrors.NotEligibleError)
	assert.True(t, f.Day(t, date("2026-03-14")).Night)
}

type failingMove struct {
	repository.AppointmentRepository
}

func (r *failingMove) Reschedule(ctx context.Context, id uuid.UUID, from, to model.SlotRef) error {
	return errors.New("connection reset")
}

func TestRescheduleCompensatesWhenMoveFails(t *testing.T) {
	f := servicetest.New(t, servicetest.WithAppointmentRepo(func(inner repository.AppointmentRepository) repository.AppointmentRepository {
		return &failingMove{AppointmentRepository: inner}
	}))
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-14"), model.SlotNight)

	_, err := f.Reschedule.Reschedule(context.Background(), request(apt, "2026-03-14", model.SlotNight))
	assert.ErrorIs(t, err, apperrors.PersistenceError)

	assert.True(t, f.Day(t, date("2026-03-14")).Night, "new claim must be released")
	assert.False(t, f.Day(t, date("2026-03-12")).Morning, "original claim must be kept")

	stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, apt.Ref(), stored.Ref())
}
