package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	"github.com/jwalitptl/booking-api/internal/service/cancellation"
	"github.com/jwalitptl/booking-api/internal/service/servicetest"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func date(s string) civildate.Date { return civildate.MustParse(s) }

func TestNormalizeBookingID(t *testing.T) {
	assert.Equal(t, "BK-AB12-XY9", appointment.NormalizeBookingID("  bk-ab12-xy9 "))
}

func TestGet(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotAfternoon)

	view, err := f.Appointments.Get(context.Background(), apt.BookingID, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, apt.BookingID, view.BookingID)
	assert.Equal(t, "200.00", view.ChargedAmount)
	assert.Equal(t, "3.00", view.ApplicationFee)
	assert.Equal(t, model.AppointmentStatusConfirmed, view.Status)
	assert.Nil(t, view.RefundAmount)

	_, err = f.Appointments.Get(context.Background(), apt.BookingID, "")
	assert.ErrorIs(t, err, apperrors.ValidationError)

	_, err = f.Appointments.Get(context.Background(), "garbage", apt.Email)
	assert.ErrorIs(t, err, apperrors.NotFoundError)
}

func TestCompletedIsDerived(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-12"), model.SlotMorning)

	f.SetNow(time.Date(2026, time.March, 12, 23, 0, 0, 0, time.UTC))
	view, err := f.Appointments.Get(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, view.Status)

	f.SetNow(time.Date(2026, time.March, 13, 0, 0, 1, 0, time.UTC))
	view, err = f.Appointments.Get(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, view.Status)

	stored, err := f.Store.Appointments.GetByBookingID(context.Background(), apt.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)
}

func TestListFiltersOnDerivedStatus(t *testing.T) {
	f := servicetest.New(t)
	past := f.Book(t, date("2026-03-11"), model.SlotMorning)
	upcoming := f.Book(t, date("2026-03-14"), model.SlotNight)
	canceled := f.Book(t, date("2026-03-15"), model.SlotMorning)
	_, err := f.Cancellation.Cancel(context.Background(), &cancellation.Request{
		BookingID: canceled.BookingID, Email: canceled.Email, Reason: "no longer needed",
	})
	require.NoError(t, err)

	f.SetNow(time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC))

	ids := func(status model.AppointmentStatus) []string {
		views, err := f.Appointments.List(context.Background(), model.AppointmentFilters{Status: status})
		require.NoError(t, err)
		var out []string
		for _, v := range views {
			out = append(out, v.BookingID)
		}
		return out
	}

	assert.Equal(t, []string{past.BookingID, upcoming.BookingID, canceled.BookingID}, ids(""))
	assert.Equal(t, []string{past.BookingID}, ids(model.AppointmentStatusCompleted))
	assert.Equal(t, []string{upcoming.BookingID}, ids(model.AppointmentStatusConfirmed))
	assert.Equal(t, []string{canceled.BookingID}, ids(model.AppointmentStatusCanceled))

	_, err = f.Appointments.List(context.Background(), model.AppointmentFilters{Status: "PENDING"})
	assert.ErrorIs(t, err, apperrors.ValidationError)
}
