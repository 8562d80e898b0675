package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/civildate"
)

type AppointmentStore struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*model.Appointment
}

func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{appointments: make(map[uuid.UUID]*model.Appointment)}
}

// Create enforces the same unique constraints as the SQL schema.
func (r *AppointmentStore) Create(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	checks := []struct {
		conflict func(*model.Appointment) bool
		err      error
	}{
		{func(e *model.Appointment) bool { return e.RequestID == appointment.RequestID }, repository.ErrDuplicateRequest},
		{func(e *model.Appointment) bool { return e.BookingID == appointment.BookingID }, repository.ErrDuplicateBookingID},
		{func(e *model.Appointment) bool {
			return e.Status == model.AppointmentStatusConfirmed && e.Ref() == appointment.Ref()
		}, repository.ErrSlotTaken},
	}
	for _, check := range checks {
		for _, existing := range r.appointments {
			if check.conflict(existing) {
				return check.err
			}
		}
	}

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	cp := *appointment
	r.appointments[cp.ID] = &cp
	return nil
}

func (r *AppointmentStore) GetByBookingID(ctx context.Context, bookingID string) (*model.Appointment, error) {
	return r.find(func(a *model.Appointment) bool { return a.BookingID == bookingID })
}

func (r *AppointmentStore) GetByRequestID(ctx context.Context, requestID string) (*model.Appointment, error) {
	return r.find(func(a *model.Appointment) bool { return a.RequestID == requestID })
}

func (r *AppointmentStore) find(match func(*model.Appointment) bool) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appointments {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// List filters on stored status; callers derive COMPLETED themselves.
func (r *AppointmentStore) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Appointment, 0)
	for _, a := range r.appointments {
		if filters != nil {
			if !filters.From.IsZero() && a.AppointmentDate.Before(filters.From) {
				continue
			}
			if !filters.To.IsZero() && a.AppointmentDate.After(filters.To) {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
		}
		cp := *a
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AppointmentDate != result[j].AppointmentDate {
			return result[i].AppointmentDate.Before(result[j].AppointmentDate)
		}
		return slotOrder(result[i].Time) < slotOrder(result[j].Time)
	})
	if filters != nil && filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (r *AppointmentStore) ListConfirmedOn(ctx context.Context, date civildate.Date) ([]*model.Appointment, error) {
	return r.List(ctx, &model.AppointmentFilters{From: date, To: date, Status: model.AppointmentStatusConfirmed})
}

// Holds reports whether a CONFIRMED appointment occupies the slot.
func (r *AppointmentStore) Holds(date civildate.Date, slot model.Slot) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref := model.SlotRef{Date: date, Slot: slot}
	for _, a := range r.appointments {
		if a.Status == model.AppointmentStatusConfirmed && a.Ref() == ref {
			return true
		}
	}
	return false
}

func (r *AppointmentStore) Reschedule(ctx context.Context, id uuid.UUID, from, to model.SlotRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != model.AppointmentStatusConfirmed || a.Ref() != from {
		return repository.ErrStaleState
	}
	for otherID, other := range r.appointments {
		if otherID != id && other.Status == model.AppointmentStatusConfirmed && other.Ref() == to {
			return repository.ErrSlotTaken
		}
	}
	a.AppointmentDate = to.Date
	a.Time = to.Slot
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AppointmentStore) Cancel(ctx context.Context, id uuid.UUID, reason string, canceledAt time.Time, refund decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != model.AppointmentStatusConfirmed {
		return repository.ErrStaleState
	}
	a.Status = model.AppointmentStatusCanceled
	a.CancelReason = &reason
	at := canceledAt
	a.CanceledAt = &at
	a.RefundAmount = decimal.NewNullDecimal(refund)
	a.UpdatedAt = time.Now()
	return nil
}

func slotOrder(s model.Slot) int {
	for i, slot := range model.Slots {
		if slot == s {
			return i
		}
	}
	return len(model.Slots)
}
