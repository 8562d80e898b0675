// Package app turns configuration into the repositories and services shared
// by the api and worker binaries.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
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

const DriverMemory = "memory"

func NewLogger(cfg config.LoggingConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
}

type Repositories struct {
	Calendar     repository.CalendarRepository
	Appointments repository.AppointmentRepository
	Outbox       repository.OutboxRepository
	Audit        repository.AuditRepository

	closer func() error
}

func OpenRepositories(cfg config.DatabaseConfig) (*Repositories, error) {
	if cfg.Driver == DriverMemory {
		store := memory.New()
		return &Repositories{
			Calendar:     store.Calendar,
			Appointments: store.Appointments,
			Outbox:       store.Outbox,
			Audit:        store.Audit,
			closer:       func() error { return nil },
		}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	base := postgres.NewBaseRepository(db)
	return &Repositories{
		Calendar:     postgres.NewCalendarRepository(base),
		Appointments: postgres.NewAppointmentRepository(base),
		Outbox:       postgres.NewOutboxRepository(base),
		Audit:        postgres.NewAuditRepository(base),
		closer:       db.Close,
	}, nil
}

func (r *Repositories) Close() error {
	return r.closer()
}

// Services is the lifecycle layer built over one set of repositories.
type Services struct {
	Clock        *civildate.Clock
	Events       *event.EventService
	Auditor      *audit.Service
	Calendar     *calendar.Service
	Appointments *appointment.Service
	Booking      *booking.Service
	Reschedule   *reschedule.Service
	Cancellation *cancellation.Service
}

func NewServices(cfg *config.Config, repos *Repositories, log *logger.Logger, m *metrics.Metrics) (*Services, error) {
	clock, err := civildate.LoadClock(cfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to build clock: %w", err)
	}

	s := &Services{Clock: clock}
	s.Events = event.NewEventService(repos.Outbox)
	s.Auditor = audit.NewService(repos.Audit, log)

	calCfg := calendar.DefaultConfig()
	if cfg.Booking.ReleaseAttempts > 0 {
		calCfg.ReleaseAttempts = cfg.Booking.ReleaseAttempts
	}
	if cfg.Booking.ReleaseBackoff > 0 {
		calCfg.ReleaseBackoff = cfg.Booking.ReleaseBackoff
	}
	if cfg.Calendar.MaxRangeDays > 0 {
		calCfg.MaxRangeDays = cfg.Calendar.MaxRangeDays
	}
	s.Calendar = calendar.NewService(repos.Calendar, s.Events, s.Auditor, clock, calCfg, log, m)
	s.Appointments = appointment.NewService(repos.Appointments, clock)
	s.Booking = booking.NewService(s.Calendar, repos.Appointments, s.Events, s.Auditor, clock,
		booking.Config{IdempotencyTTL: cfg.Booking.IdempotencyTTL}, log, m)
	s.Reschedule = reschedule.NewService(s.Calendar, s.Appointments, repos.Appointments, s.Events, s.Auditor,
		clock, log, m)

	refunds := refund.NewCalculator(refund.Policy{
		FullRefundPercent:    cfg.Refund.FullRefundPercent,
		PartialRefundPercent: cfg.Refund.PartialRefundPercent,
		FullRefundNoticeDays: cfg.Refund.FullRefundNoticeDays,
	})
	s.Cancellation = cancellation.NewService(s.Calendar, s.Appointments, repos.Appointments, refunds, s.Events,
		s.Auditor, clock, log, m)
	return s, nil
}
