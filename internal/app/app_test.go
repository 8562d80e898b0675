package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: app.DriverMemory},
		Calendar: config.CalendarConfig{Timezone: "America/Los_Angeles", MaxRangeDays: 180},
		Booking: config.BookingConfig{
			IdempotencyTTL:  time.Minute,
			ReleaseAttempts: 2,
			ReleaseBackoff:  time.Millisecond,
		},
		Refund: config.RefundConfig{FullRefundPercent: 95, PartialRefundPercent: 50, FullRefundNoticeDays: 2},
	}
}

func TestMemoryWiring(t *testing.T) {
	cfg := memoryConfig()

	repos, err := app.OpenRepositories(cfg.Database)
	require.NoError(t, err)
	defer repos.Close()
	require.NoError(t, repos.Calendar.Ping(context.Background()))

	svc, err := app.NewServices(cfg, repos, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", svc.Clock.Location().String())

	ctx := context.Background()
	tomorrow := svc.Clock.Today().AddDays(1)
	_, err = svc.Calendar.SetDay(ctx, &model.SetDayRequest{Date: tomorrow, Morning: true})
	require.NoError(t, err)

	days, err := svc.Calendar.ListAvailable(ctx, tomorrow, tomorrow)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Morning)
}

func TestNewServicesRejectsUnknownZone(t *testing.T) {
	cfg := memoryConfig()
	cfg.Calendar.Timezone = "Mars/Olympus"

	repos, err := app.OpenRepositories(cfg.Database)
	require.NoError(t, err)

	_, err = app.NewServices(cfg, repos, logger.Nop(), metrics.NewNop())
	assert.Error(t, err)
}
