package memory

import (
	"github.com/jwalitptl/booking-api/internal/repository"
)

// Store bundles the in-memory repositories.
type Store struct {
	Calendar     *CalendarStore
	Appointments *AppointmentStore
	Outbox       *OutboxStore
	Audit        *AuditStore
}

// New links the calendar to the appointment store so releases and day
// edits never reopen a slot a confirmed appointment holds. Lock order is
// calendar then appointments.
func New() *Store {
	appointments := NewAppointmentStore()
	calendar := NewCalendarStore()
	calendar.held = appointments.Holds
	return &Store{
		Calendar:     calendar,
		Appointments: appointments,
		Outbox:       NewOutboxStore(),
		Audit:        NewAuditStore(),
	}
}

var (
	_ repository.CalendarRepository    = (*CalendarStore)(nil)
	_ repository.AppointmentRepository = (*AppointmentStore)(nil)
	_ repository.OutboxRepository      = (*OutboxStore)(nil)
	_ repository.AuditRepository       = (*AuditStore)(nil)
)
