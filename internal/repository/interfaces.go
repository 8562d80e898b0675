package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/civildate"
)

// All repository interfaces in one file
type (
	// CalendarRepository stores availability days. ClaimSlot and ReleaseSlot
	// must each be a single atomic conditional write.
	CalendarRepository interface {
		GetDay(ctx context.Context, date civildate.Date) (*model.AvailabilityDay, error)
		ListDays(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error)
		ListOfferable(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error)
		// UpsertDay replaces a day. Slots a CONFIRMED appointment holds are
		// stored closed whatever day says, and day is updated to what was stored.
		UpsertDay(ctx context.Context, day *model.AvailabilityDay) error
		// ClaimSlot flips an open slot of an available day to taken. It
		// returns false when nothing matched.
		ClaimSlot(ctx context.Context, date civildate.Date, slot model.Slot) (bool, error)
		// ReleaseSlot reopens a slot if its day exists, is available and no
		// CONFIRMED appointment holds the slot.
		ReleaseSlot(ctx context.Context, date civildate.Date, slot model.Slot) error
		Ping(ctx context.Context) error
	}

	AppointmentRepository interface {
		// Create inserts a CONFIRMED appointment. Unique violations surface
		// as ErrDuplicateRequest, ErrDuplicateBookingID or ErrSlotTaken.
		Create(ctx context.Context, appointment *model.Appointment) error
		GetByBookingID(ctx context.Context, bookingID string) (*model.Appointment, error)
		GetByRequestID(ctx context.Context, requestID string) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListConfirmedOn(ctx context.Context, date civildate.Date) ([]*model.Appointment, error)
		// Reschedule moves a CONFIRMED appointment from one slot to another.
		// ErrStaleState when the row is no longer CONFIRMED at from.
		Reschedule(ctx context.Context, id uuid.UUID, from, to model.SlotRef) error
		// Cancel transitions CONFIRMED to CANCELED. ErrStaleState when the
		// row is no longer CONFIRMED.
		Cancel(ctx context.Context, id uuid.UUID, reason string, canceledAt time.Time, refund decimal.Decimal) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as PROCESSING and returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		CountPending(ctx context.Context) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error)
	}
)
