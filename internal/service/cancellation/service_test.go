package cancellation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/cancellation"
	"github.com/jwalitptl/booking-api/internal/service/servicetest"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func date(s string) civildate.Date { return civildate.MustParse(s) }

func cancel(apt *model.Appointment) *cancellation.Request {
	return &cancellation.Request{BookingID: apt.BookingID, Email: apt.Email, Reason: "schedule conflict"}
}

func TestCancelRefundTiers(t *testing.T) {
	cases := []struct {
		date    string
		refund  string
		percent int64
		notice  int
	}{
		{"2026-03-13", "180.50", 95, 3},
		{"2026-03-12", "180.50", 95, 2},
		{"2026-03-11", "95.00", 50, 1},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			f := servicetest.New(t)
			apt := f.Book(t, date(tc.date), model.SlotMorning)

			res, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
			require.NoError(t, err)
			assert.Equal(t, model.AppointmentStatusCanceled, res.Status)
			assert.Equal(t, tc.refund, res.Refund.RefundAmount)
			assert.Equal(t, "10.00", res.Refund.BaseCancellationFee)
			assert.Equal(t, "190.00", res.Refund.RefundableAmount)
			assert.Equal(t, tc.percent, res.Refund.RefundPercent)
			assert.Equal(t, tc.notice, res.Refund.NoticeDays)
			require.NotNil(t, res.CanceledAt)
			assert.True(t, res.CanceledAt.Equal(f.Now()))
		})
	}
}

func TestCancelPersistsAndReleases(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-13"), model.SlotNight)

	_, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
	require.NoError(t, err)

	stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCanceled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "schedule conflict", *stored.CancelReason)
	assert.Equal(t, "180.50", stored.RefundAmount.Decimal.StringFixed(2))

	assert.True(t, f.Day(t, date("2026-03-13")).Night)
	assert.Equal(t, []string{model.EventBookingConfirmed, model.EventAppointmentCanceled}, f.EventTypes())

	// The freed slot can be booked again.
	again := f.Book(t, date("2026-03-13"), model.SlotNight)
	assert.NotEqual(t, apt.BookingID, again.BookingID)
}

func TestCancelOnWithdrawnDayKeepsDayClosed(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-13"), model.SlotMorning)
	closed := false
	_, err := f.Calendar.SetDay(context.Background(), &model.SetDayRequest{Date: apt.AppointmentDate, Available: &closed})
	require.NoError(t, err)

	_, err = f.Cancellation.Cancel(context.Background(), cancel(apt))
	require.NoError(t, err)

	day := f.Day(t, apt.AppointmentDate)
	assert.False(t, day.Available)
	assert.False(t, day.Morning)
}

func TestCancelTwice(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-13"), model.SlotMorning)

	_, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
	require.NoError(t, err)

	_, err = f.Cancellation.Cancel(context.Background(), cancel(apt))
	assert.ErrorIs(t, err, apperrors.AlreadyCanceledError)
	assert.Len(t, f.EventTypes(), 2)
}

func TestCancelRejects(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-13"), model.SlotMorning)

	t.Run("missing reason", func(t *testing.T) {
		req := cancel(apt)
		req.Reason = "   "
		_, err := f.Cancellation.Cancel(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ValidationError)
	})

	t.Run("wrong email", func(t *testing.T) {
		req := cancel(apt)
		req.Email = "other@example.com"
		_, err := f.Cancellation.Cancel(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.NotFoundError)
	})

	t.Run("completed", func(t *testing.T) {
		f.SetNow(time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC))
		defer f.SetNow(servicetest.DefaultNow)

		_, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
		assert.ErrorIs(t, err, apperrors.NotEligibleError)
	})

	stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)
}

func TestCancelOnAppointmentDayUsesPartialTier(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-13"), model.SlotNight)
	f.SetNow(time.Date(2026, time.March, 13, 6, 0, 0, 0, time.UTC))

	res, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Refund.NoticeDays)
	assert.Equal(t, "95.00", res.Refund.RefundAmount)
}

func TestQuoteHasNoSideEffects(t *testing.T) {
	f := servicetest.New(t)
	apt := f.Book(t, date("2026-03-11"), model.SlotMorning)

	quote, err := f.Cancellation.Quote(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.True(t, quote.Quote)
	assert.Equal(t, "95.00", quote.Refund.RefundAmount)
	assert.Equal(t, model.AppointmentStatusConfirmed, quote.Status)
	assert.Nil(t, quote.CanceledAt)

	stored, err := f.Appointments.Find(context.Background(), apt.BookingID, apt.Email)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, stored.Status)
	assert.False(t, f.Day(t, date("2026-03-11")).Morning)
	assert.Equal(t, []string{model.EventBookingConfirmed}, f.EventTypes())

	res, err := f.Cancellation.Cancel(context.Background(), cancel(apt))
	require.NoError(t, err)
	assert.Equal(t, quote.Refund, res.Refund)
}
