package calendar_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/servicetest"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func date(s string) civildate.Date { return civildate.MustParse(s) }

func TestListAvailableNeverOffersToday(t *testing.T) {
	f := servicetest.New(t)
	f.OpenDay(t, date("2026-03-09"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-10"), model.SlotMorning)
	f.OpenDay(t, date("2026-03-11"), model.SlotMorning)

	days, err := f.Calendar.ListAvailable(context.Background(), date("2026-03-01"), date("2026-03-31"))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-11", days[0].Date.String())
}

func TestListAvailableUsesCivilZone(t *testing.T) {
	// 23:00 on the 9th in UTC-8 is 07:00 on the 10th in UTC.
	f := servicetest.New(t,
		servicetest.WithNow(time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)),
		servicetest.WithLocation(time.FixedZone("UTC-8", -8*60*60)),
	)
	f.OpenDay(t, date("2026-03-09"), model.SlotNight)
	f.OpenDay(t, date("2026-03-10"), model.SlotNight)

	assert.Equal(t, "2026-03-09", f.Today().String())

	days, err := f.Calendar.ListAvailable(context.Background(), date("2026-03-01"), date("2026-03-31"))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-10", days[0].Date.String())
}

func TestListAvailableValidatesRange(t *testing.T) {
	f := servicetest.New(t)

	_, err := f.Calendar.ListAvailable(context.Background(), date("2026-04-10"), date("2026-04-01"))
	assert.ErrorIs(t, err, apperrors.ValidationError)

	_, err = f.Calendar.ListAvailable(context.Background(), date("2026-04-01"), date("2027-04-01"))
	assert.ErrorIs(t, err, apperrors.ValidationError)

	days, err := f.Calendar.ListAvailable(context.Background(), date("2026-03-01"), date("2026-03-05"))
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := servicetest.New(t)
	ref := model.SlotRef{Date: date("2026-03-20"), Slot: model.SlotAfternoon}
	f.OpenDay(t, ref.Date, ref.Slot)

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.Calendar.Claim(context.Background(), ref)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, apperrors.SlotUnavailableError):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(31), conflicts)
	assert.False(t, f.Day(t, ref.Date).Afternoon)
}

func TestReleaseTwiceIsHarmless(t *testing.T) {
	f := servicetest.New(t)
	ref := model.SlotRef{Date: date("2026-03-20"), Slot: model.SlotMorning}
	f.OpenDay(t, ref.Date, ref.Slot)
	require.NoError(t, f.Calendar.Claim(context.Background(), ref))

	require.NoError(t, f.Calendar.Release(context.Background(), ref))
	require.NoError(t, f.Calendar.Release(context.Background(), ref))
	assert.True(t, f.Day(t, ref.Date).Morning)
}

func TestSetDay(t *testing.T) {
	f := servicetest.New(t)
	ctx := context.Background()

	t.Run("rejects past dates", func(t *testing.T) {
		_, err := f.Calendar.SetDay(ctx, &model.SetDayRequest{Date: date("2026-03-09"), Morning: true})
		assert.ErrorIs(t, err, apperrors.ValidationError)
	})

	t.Run("today is editable", func(t *testing.T) {
		res, err := f.Calendar.SetDay(ctx, &model.SetDayRequest{Date: date("2026-03-10"), Morning: true})
		require.NoError(t, err)
		assert.True(t, res.Day.Morning)
	})

	t.Run("keeps booked slots claimed", func(t *testing.T) {
		apt := f.Book(t, date("2026-03-15"), model.SlotNight)

		res, err := f.Calendar.SetDay(ctx, &model.SetDayRequest{
			Date: apt.AppointmentDate, Morning: true, Afternoon: true, Night: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []model.Slot{model.SlotNight}, res.KeptClaimed)

		day := f.Day(t, apt.AppointmentDate)
		assert.True(t, day.Morning)
		assert.True(t, day.Afternoon)
		assert.False(t, day.Night)
	})

	t.Run("last writer wins", func(t *testing.T) {
		_, err := f.Calendar.SetDay(ctx, &model.SetDayRequest{Date: date("2026-03-16"), Morning: true})
		require.NoError(t, err)
		closed := false
		_, err = f.Calendar.SetDay(ctx, &model.SetDayRequest{Date: date("2026-03-16"), Night: true, Available: &closed})
		require.NoError(t, err)

		day := f.Day(t, date("2026-03-16"))
		assert.False(t, day.Morning)
		assert.True(t, day.Night)
		assert.False(t, day.Available)
	})

	t.Run("absent available flag opens the day", func(t *testing.T) {
		res, err := f.Calendar.SetDay(ctx, &model.SetDayRequest{Date: date("2026-03-17"), Afternoon: true})
		require.NoError(t, err)
		assert.True(t, res.Day.Available)

		days, err := f.Calendar.ListAvailable(ctx, date("2026-03-17"), date("2026-03-17"))
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, []model.Slot{model.SlotAfternoon}, days[0].OpenSlots())
	})
}

// bookingDuringUpsert books a slot just before the day is written, standing
// in for a confirmation that commits between an operator's read and write.
type bookingDuringUpsert struct {
	repository.CalendarRepository
	armed  atomic.Bool
	before func()
}

func (r *bookingDuringUpsert) UpsertDay(ctx context.Context, day *model.AvailabilityDay) error {
	if r.armed.CompareAndSwap(true, false) {
		r.before()
	}
	return r.CalendarRepository.UpsertDay(ctx, day)
}

func TestSetDayKeepsSlotBookedMidWrite(t *testing.T) {
	var (
		f    *servicetest.Fixture
		repo *bookingDuringUpsert
		apt  *model.Appointment
	)
	day := date("2026-03-18")
	f = servicetest.New(t, servicetest.WithCalendarRepo(func(inner repository.CalendarRepository) repository.CalendarRepository {
		repo = &bookingDuringUpsert{CalendarRepository: inner}
		return repo
	}))
	repo.before = func() { apt = f.Book(t, day, model.SlotAfternoon) }
	repo.armed.Store(true)

	res, err := f.Calendar.SetDay(context.Background(), &model.SetDayRequest{
		Date: day, Morning: true, Afternoon: true, Night: true,
	})
	require.NoError(t, err)
	require.NotNil(t, apt)
	assert.Equal(t, []model.Slot{model.SlotAfternoon}, res.KeptClaimed)
	assert.False(t, res.Day.Afternoon)

	stored := f.Day(t, day)
	assert.True(t, stored.Morning)
	assert.False(t, stored.Afternoon)
	assert.True(t, stored.Night)

	// A second booking on the same slot must be refused.
	_, err = f.Booking.Confirm(context.Background(), servicetest.ConfirmRequest(servicetest.RequestID(), day, model.SlotAfternoon))
	assert.ErrorIs(t, err, apperrors.SlotUnavailableError)
}

type failingRelease struct {
	repository.CalendarRepository
	calls int32
}

func (r *failingRelease) ReleaseSlot(ctx context.Context, d civildate.Date, s model.Slot) error {
	atomic.AddInt32(&r.calls, 1)
	return errors.New("database unavailable")
}

func TestReleaseReliablyDefersToOutbox(t *testing.T) {
	var repo *failingRelease
	f := servicetest.New(t, servicetest.WithCalendarRepo(func(inner repository.CalendarRepository) repository.CalendarRepository {
		repo = &failingRelease{CalendarRepository: inner}
		return repo
	}))
	ref := model.SlotRef{Date: date("2026-03-20"), Slot: model.SlotMorning}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Calendar.ReleaseReliably(ctx, ref, "test", "BK-AAAA-AAA")

	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.calls))
	assert.Equal(t, []string{model.EventSlotReleaseRequested}, f.EventTypes())
}
